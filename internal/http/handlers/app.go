package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ugcfactory/internal/domain"
	"ugcfactory/internal/infra"
	"ugcfactory/internal/pipeline"
)

type App struct {
	Pipeline *pipeline.Service
	Log      infra.Logger
}

func NewApp(p *pipeline.Service, log infra.Logger) *App {
	return &App{Pipeline: p, Log: log}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}

// fail translates pipeline errors onto the wire. Internal errors are logged
// here once so handlers do not have to.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Kind == domain.KindInternal {
			a.Log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		}
		a.error(w, de.HTTPStatus(), de.Message)
		return
	}
	a.Log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	a.error(w, http.StatusInternalServerError, "internal_error")
}

// decode parses a JSON body, rejecting unknown fields. An empty body decodes
// to the zero value so step endpoints can be called without a payload.
func (a *App) decode(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
