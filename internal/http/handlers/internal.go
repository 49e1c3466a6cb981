package handlers

import (
	"net/http"

	"ugcfactory/internal/pipeline"
)

type internalFinalizeRequest struct {
	JobID        string `json:"job_id"`
	VariantIndex int    `json:"variant_index"`
	FinalURL     string `json:"final_url"`
	StorageKey   string `json:"storage_key"`
}

type internalFinalizeResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
}

// InternalFinalize receives the worker callback that records a delivered
// final video and recomputes the job status.
func (a *App) InternalFinalize(w http.ResponseWriter, r *http.Request) {
	var req internalFinalizeRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	res, err := a.Pipeline.CompleteFinalize(r.Context(), pipeline.CallbackInput{
		JobID:        req.JobID,
		VariantIndex: req.VariantIndex,
		FinalURL:     req.FinalURL,
		StorageKey:   req.StorageKey,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, internalFinalizeResponse{OK: res.OK, Status: string(res.Status)})
}
