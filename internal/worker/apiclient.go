package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIClient calls the orchestrator API: the caller surface to read job
// state, and the internal surface to report delivered finals.
type APIClient struct {
	baseURL       string
	apiKey        string
	internalToken string
	httpc         *http.Client
}

// APIClientOptions configures the orchestrator API client.
type APIClientOptions struct {
	BaseURL       string
	APIKey        string
	InternalToken string
	Timeout       time.Duration
}

func NewAPIClient(opts APIClientOptions) (*APIClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &APIClient{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		apiKey:        opts.APIKey,
		internalToken: opts.InternalToken,
		httpc:         &http.Client{Timeout: timeout},
	}, nil
}

// JobView is the slice of the job read model the worker needs.
type JobView struct {
	JobID       string      `json:"job_id"`
	Status      string      `json:"status"`
	TargetCount int         `json:"target_count"`
	Assets      []AssetView `json:"assets"`
}

// AssetView is one artifact row from the job read model.
type AssetView struct {
	Kind         string          `json:"kind"`
	VariantIndex int             `json:"variant_index"`
	URL          string          `json:"url"`
	Meta         json.RawMessage `json:"meta"`
}

// FetchJob loads the job read model through the caller API.
func (c *APIClient) FetchJob(ctx context.Context, jobID string) (*JobView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		head, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch job: status %d: %s", resp.StatusCode, head)
	}

	var view JobView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &view, nil
}

// NotifyFinalized reports a delivered final video on the internal surface.
func (c *APIClient) NotifyFinalized(ctx context.Context, jobID string, variantIndex int, finalURL, storageKey string) error {
	payload, err := json.Marshal(map[string]any{
		"job_id":        jobID,
		"variant_index": variantIndex,
		"final_url":     finalURL,
		"storage_key":   storageKey,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/finalize", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-internal-token", c.internalToken)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("notify finalize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		head, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify finalize: status %d: %s", resp.StatusCode, head)
	}
	return nil
}
