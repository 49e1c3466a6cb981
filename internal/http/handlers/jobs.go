package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ugcfactory/internal/pipeline"
)

type jobCreateRequest struct {
	ProductMeta map[string]any `json:"product_meta"`
	TargetCount int            `json:"target_count"`
	ImageURL    string         `json:"image_url"`
	ImageBase64 string         `json:"image_base64"`
}

type jobCreateResponse struct {
	JobID string `json:"job_id"`
}

func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	job, err := a.Pipeline.CreateJob(r.Context(), pipeline.CreateJobInput{
		ProductMeta: req.ProductMeta,
		TargetCount: req.TargetCount,
		ImageURL:    req.ImageURL,
		ImageBase64: req.ImageBase64,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, jobCreateResponse{JobID: job.ID})
}

type assetView struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	VariantIndex int             `json:"variant_index"`
	URL          string          `json:"url"`
	Meta         json.RawMessage `json:"meta"`
	CreatedAt    time.Time       `json:"created_at"`
}

type jobView struct {
	JobID       string      `json:"job_id"`
	Status      string      `json:"status"`
	TargetCount int         `json:"target_count"`
	Assets      []assetView `json:"assets"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (a *App) JobsGet(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, assets, err := a.Pipeline.GetJob(r.Context(), jobID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	views := make([]assetView, 0, len(assets))
	for _, asset := range assets {
		meta := asset.Meta
		if len(meta) == 0 {
			meta = json.RawMessage("{}")
		}
		views = append(views, assetView{
			ID:           asset.ID,
			Kind:         string(asset.Kind),
			VariantIndex: asset.VariantIndex,
			URL:          asset.URL,
			Meta:         meta,
			CreatedAt:    asset.CreatedAt,
		})
	}

	a.json(w, http.StatusOK, jobView{
		JobID:       job.ID,
		Status:      string(job.Status),
		TargetCount: job.TargetCount,
		Assets:      views,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	})
}

type runOutcomeView struct {
	VariantIndex int    `json:"variant_index"`
	Status       string `json:"status"`
	FinalURL     string `json:"final_url,omitempty"`
	Error        string `json:"error,omitempty"`
}

type runResponse struct {
	Results []runOutcomeView `json:"results"`
	Status  string           `json:"status"`
}

func (a *App) JobsRun(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	res, err := a.Pipeline.RunAll(r.Context(), jobID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	results := make([]runOutcomeView, 0, len(res.Results))
	for _, outcome := range res.Results {
		results = append(results, runOutcomeView{
			VariantIndex: outcome.VariantIndex,
			Status:       outcome.Status,
			FinalURL:     outcome.FinalURL,
			Error:        outcome.Error,
		})
	}
	a.json(w, http.StatusOK, runResponse{Results: results, Status: string(res.Status)})
}
