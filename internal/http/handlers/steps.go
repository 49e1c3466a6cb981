package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ugcfactory/internal/pipeline"
)

type scriptStepResponse struct {
	Scripts []json.RawMessage `json:"scripts"`
}

func (a *App) StepScript(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	res, err := a.Pipeline.RunScriptStep(r.Context(), jobID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	scripts := res.Scripts
	if scripts == nil {
		scripts = []json.RawMessage{}
	}
	a.json(w, http.StatusOK, scriptStepResponse{Scripts: scripts})
}

type ttsStepRequest struct {
	VariantIndex int    `json:"variant_index"`
	VoiceID      string `json:"voice_id"`
	Text         string `json:"text"`
}

type ttsStepResponse struct {
	AudioURL   string `json:"audio_url"`
	DurationMs int    `json:"duration_ms"`
}

func (a *App) StepTTS(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	var req ttsStepRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	res, err := a.Pipeline.RunVoiceStep(r.Context(), jobID, pipeline.VoiceInput{
		VariantIndex: req.VariantIndex,
		VoiceID:      req.VoiceID,
		Text:         req.Text,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, ttsStepResponse{AudioURL: res.AudioURL, DurationMs: res.DurationMs})
}

type videoStepRequest struct {
	VariantIndex int    `json:"variant_index"`
	ImageURL     string `json:"image_url"`
	AudioURL     string `json:"audio_url"`
	StylePreset  string `json:"style_preset"`
}

type videoStepResponse struct {
	VideoURLRaw string `json:"video_url_raw"`
}

func (a *App) StepVideo(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	var req videoStepRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	res, err := a.Pipeline.RunVideoStep(r.Context(), jobID, pipeline.VideoInput{
		VariantIndex: req.VariantIndex,
		ImageURL:     req.ImageURL,
		AudioURL:     req.AudioURL,
		StylePreset:  req.StylePreset,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, videoStepResponse{VideoURLRaw: res.VideoURLRaw})
}

type finalizeStepRequest struct {
	VariantIndex int    `json:"variant_index"`
	VideoURLRaw  string `json:"video_url_raw"`
	// Captions are accepted for compatibility but ignored; the worker reads
	// captions from the stored script asset.
	Captions []json.RawMessage `json:"captions"`
}

type finalizeStepResponse struct {
	Queued   bool   `json:"queued"`
	FinalURL string `json:"final_url,omitempty"`
}

func (a *App) StepFinalize(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	var req finalizeStepRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	res, err := a.Pipeline.RequestFinalize(r.Context(), jobID, pipeline.FinalizeInput{
		VariantIndex: req.VariantIndex,
		VideoURLRaw:  req.VideoURLRaw,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, finalizeStepResponse{Queued: res.Queued, FinalURL: res.FinalURL})
}
