package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"ugcfactory/internal/domain"
	"ugcfactory/internal/idempotency"
	"ugcfactory/internal/pipeline"
	"ugcfactory/internal/providers/script"
	"ugcfactory/internal/providers/video"
	"ugcfactory/internal/providers/voice"
	"ugcfactory/internal/queue"
)

type fakeJobs struct {
	items map[string]domain.Job
}

func (f *fakeJobs) Create(_ context.Context, job *domain.Job) error {
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	f.items[job.ID] = *job
	return nil
}

func (f *fakeJobs) GetByID(_ context.Context, jobID string) (*domain.Job, error) {
	job, ok := f.items[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (f *fakeJobs) UpdateStatus(_ context.Context, jobID string, status domain.JobStatus) error {
	job, ok := f.items[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = status
	job.UpdatedAt = time.Now()
	f.items[jobID] = job
	return nil
}

type fakeAssets struct {
	items []domain.Asset
}

func (f *fakeAssets) Upsert(_ context.Context, asset *domain.Asset) error {
	for i := range f.items {
		a := &f.items[i]
		if a.JobID == asset.JobID && a.Kind == asset.Kind && a.VariantIndex == asset.VariantIndex {
			a.URL = asset.URL
			a.Meta = asset.Meta
			return nil
		}
	}
	stored := *asset
	stored.CreatedAt = time.Now()
	f.items = append(f.items, stored)
	return nil
}

func (f *fakeAssets) ListByJobID(_ context.Context, jobID string) ([]domain.Asset, error) {
	var out []domain.Asset
	for _, a := range f.items {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssets) GetByJobKindVariant(_ context.Context, jobID string, kind domain.AssetKind, variantIndex int) (*domain.Asset, error) {
	for _, a := range f.items {
		if a.JobID == jobID && a.Kind == kind && a.VariantIndex == variantIndex {
			found := a
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeRunLogs struct {
	items []domain.RunLog
}

func (f *fakeRunLogs) Append(_ context.Context, rl *domain.RunLog) error {
	f.items = append(f.items, *rl)
	return nil
}

func (f *fakeRunLogs) ListByJobID(_ context.Context, jobID string) ([]domain.RunLog, error) {
	var out []domain.RunLog
	for _, rl := range f.items {
		if rl.JobID == jobID {
			out = append(out, rl)
		}
	}
	return out, nil
}

type fakeQueue struct {
	pushed []queue.Message
}

func (f *fakeQueue) Push(_ context.Context, msg queue.Message) error {
	f.pushed = append(f.pushed, msg)
	return nil
}

func (f *fakeQueue) Key() string { return "ugc:finalize" }

type fakeStore struct {
	objects map[string][]byte
}

func (f *fakeStore) Put(_ context.Context, key string, data []byte, _ string) error {
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeStore) PresignedGetURL(key string, _ time.Duration) (string, error) {
	return "http://store/" + key, nil
}

func newTestApp() (*App, *fakeJobs, *fakeQueue) {
	jobs := &fakeJobs{items: map[string]domain.Job{}}
	q := &fakeQueue{}
	svc := pipeline.NewService(pipeline.Deps{
		Jobs:       jobs,
		Assets:     &fakeAssets{},
		RunLogs:    &fakeRunLogs{},
		Guard:      idempotency.NewGuard(idempotency.NewMemoryStore(), time.Minute),
		Queue:      q,
		Store:      &fakeStore{objects: map[string][]byte{}},
		Script:     script.NewDummyGenerator(),
		Voice:      voice.NewDummySynthesizer(),
		Video:      video.NewDummyGenerator(),
		PresignTTL: 10 * time.Minute,
		Logger:     zerolog.Nop(),
	})
	return NewApp(svc, zerolog.Nop()), jobs, q
}

func withJobID(req *http.Request, jobID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("job_id", jobID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestJobsCreate(t *testing.T) {
	app, jobs, _ := newTestApp()

	body := `{"product_meta":{"product_name":"Singkana"},"target_count":2,"image_url":"http://img/p.jpg"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(body))
	rr := httptest.NewRecorder()
	app.JobsCreate(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("job_id missing")
	}
	if _, ok := jobs.items[resp.JobID]; !ok {
		t.Fatal("job not persisted")
	}
}

func TestJobsCreateValidationEnvelope(t *testing.T) {
	app, _, _ := newTestApp()

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(`{"target_count":2}`))
	rr := httptest.NewRecorder()
	app.JobsCreate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] == "" {
		t.Fatalf("error envelope missing: %v", resp)
	}
}

func TestJobsCreateRejectsUnknownFields(t *testing.T) {
	app, _, _ := newTestApp()

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(`{"image_url":"http://img/p.jpg","bogus":1}`))
	rr := httptest.NewRecorder()
	app.JobsCreate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestJobsGetNotFound(t *testing.T) {
	app, _, _ := newTestApp()

	req := withJobID(httptest.NewRequest(http.MethodGet, "/v1/jobs/nope", nil), "nope")
	rr := httptest.NewRecorder()
	app.JobsGet(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "job_not_found" {
		t.Fatalf("error = %q, want job_not_found", resp["error"])
	}
}

func TestStepTTSAllowsEmptyBody(t *testing.T) {
	app, _, _ := newTestApp()

	create := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(`{"image_url":"http://img/p.jpg","target_count":1}`))
	rr := httptest.NewRecorder()
	app.JobsCreate(rr, create)
	var created struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode create: %v", err)
	}

	// Script first so variant 1 has text to synthesize.
	scriptReq := withJobID(httptest.NewRequest(http.MethodPost, "/v1/jobs/"+created.JobID+"/steps/script", nil), created.JobID)
	rr = httptest.NewRecorder()
	app.StepScript(rr, scriptReq)
	if rr.Code != http.StatusOK {
		t.Fatalf("script status = %d, body %s", rr.Code, rr.Body)
	}

	tts := withJobID(httptest.NewRequest(http.MethodPost, "/v1/jobs/"+created.JobID+"/steps/tts", nil), created.JobID)
	rr = httptest.NewRecorder()
	app.StepTTS(rr, tts)
	if rr.Code != http.StatusOK {
		t.Fatalf("tts status = %d, body %s", rr.Code, rr.Body)
	}
	var resp struct {
		AudioURL   string `json:"audio_url"`
		DurationMs int    `json:"duration_ms"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode tts: %v", err)
	}
	if resp.AudioURL == "" || resp.DurationMs <= 0 {
		t.Fatalf("unexpected tts response: %+v", resp)
	}
}

func TestStepFinalizeAcceptsCaptionsField(t *testing.T) {
	app, _, q := newTestApp()

	create := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(`{"image_url":"http://img/p.jpg","target_count":1}`))
	rr := httptest.NewRecorder()
	app.JobsCreate(rr, create)
	var created struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode create: %v", err)
	}

	body := `{"variant_index":1,"video_url_raw":"http://store/raw.mp4","captions":[{"t":0,"text":"hi"}]}`
	fin := withJobID(httptest.NewRequest(http.MethodPost, "/v1/jobs/"+created.JobID+"/steps/finalize", strings.NewReader(body)), created.JobID)
	rr = httptest.NewRecorder()
	app.StepFinalize(rr, fin)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	var resp struct {
		Queued bool `json:"queued"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode finalize: %v", err)
	}
	if !resp.Queued {
		t.Fatal("expected queued=true")
	}
	if len(q.pushed) != 1 {
		t.Fatalf("queue length = %d, want 1", len(q.pushed))
	}
}
