package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HeyGenOptions configures the HeyGen avatar-video provider.
type HeyGenOptions struct {
	APIKey     string
	AvatarID   string
	BaseURL    string
	HTTPClient *http.Client
}

// HeyGenProvider drives avatar video generation through the HeyGen API. It
// is asynchronous: Submit starts a render, Poll reports its progress.
type HeyGenProvider struct {
	apiKey   string
	avatarID string
	baseURL  string
	client   *http.Client
}

type heygenGenerateRequest struct {
	VideoInputs []heygenVideoInput `json:"video_inputs"`
	Dimension   heygenDimension    `json:"dimension"`
}

type heygenVideoInput struct {
	Character heygenCharacter `json:"character"`
	Voice     heygenVoice     `json:"voice"`
}

type heygenCharacter struct {
	Type     string `json:"type"`
	AvatarID string `json:"avatar_id"`
}

type heygenVoice struct {
	Type     string `json:"type"`
	AudioURL string `json:"audio_url"`
}

type heygenDimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Responses arrive with or without a data envelope depending on the API
// version, so both layers are decoded and the first non-empty value wins.
type heygenSubmitResponse struct {
	Data struct {
		VideoID string `json:"video_id"`
		ID      string `json:"id"`
	} `json:"data"`
	VideoID string `json:"video_id"`
	ID      string `json:"id"`
}

type heygenStatusResponse struct {
	Data struct {
		Status   string          `json:"status"`
		VideoURL json.RawMessage `json:"video_url"`
		URL      json.RawMessage `json:"url"`
	} `json:"data"`
	Status   string          `json:"status"`
	VideoURL json.RawMessage `json:"video_url"`
	URL      json.RawMessage `json:"url"`
}

// NewHeyGenProvider validates options and builds the client.
func NewHeyGenProvider(opts HeyGenOptions) (*HeyGenProvider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("heygen api key is required")
	}
	if strings.TrimSpace(opts.AvatarID) == "" {
		return nil, errors.New("heygen avatar id is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.heygen.com"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HeyGenProvider{
		apiKey:   strings.TrimSpace(opts.APIKey),
		avatarID: strings.TrimSpace(opts.AvatarID),
		baseURL:  baseURL,
		client:   client,
	}, nil
}

func (h *HeyGenProvider) Name() string { return "heygen" }

// Submit starts a 1080x1920 avatar render narrated by the audio URL and
// returns the provider-side job id.
func (h *HeyGenProvider) Submit(ctx context.Context, input Input) (string, error) {
	payload := heygenGenerateRequest{
		VideoInputs: []heygenVideoInput{
			{
				Character: heygenCharacter{Type: "avatar", AvatarID: h.avatarID},
				Voice:     heygenVoice{Type: "audio", AudioURL: input.AudioURL},
			},
		},
		Dimension: heygenDimension{Width: 1080, Height: 1920},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v2/video/generate", &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("heygen generate: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		head, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("heygen generate status %d: %s", resp.StatusCode, strings.TrimSpace(string(head)))
	}

	var out heygenSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	id := firstNonEmpty(out.Data.VideoID, out.Data.ID, out.VideoID, out.ID)
	if id == "" {
		return "", errors.New("heygen response missing video id")
	}
	return id, nil
}

// Poll fetches the render status and, once completed, the result URL.
func (h *HeyGenProvider) Poll(ctx context.Context, providerJobID string) (PollResult, error) {
	statusURL := fmt.Sprintf("%s/v1/video_status.get?video_id=%s", h.baseURL, url.QueryEscape(providerJobID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return PollResult{}, fmt.Errorf("heygen status: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		head, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return PollResult{}, fmt.Errorf("heygen status %d: %s", resp.StatusCode, strings.TrimSpace(string(head)))
	}

	var out heygenStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return PollResult{}, fmt.Errorf("decode response: %w", err)
	}

	status := firstNonEmpty(out.Data.Status, out.Status)
	switch status {
	case "completed":
		resultURL := firstNonEmpty(
			urlFromRaw(out.Data.VideoURL),
			urlFromRaw(out.Data.URL),
			urlFromRaw(out.VideoURL),
			urlFromRaw(out.URL),
		)
		if resultURL == "" {
			return PollResult{}, errors.New("heygen completed without a video url")
		}
		return PollResult{Status: StatusCompleted, ResultURL: resultURL}, nil
	case "failed", "error":
		return PollResult{Status: StatusFailed}, nil
	default:
		return PollResult{Status: StatusProcessing}, nil
	}
}

// urlFromRaw accepts either a plain string or an object carrying a url
// field, which HeyGen has used interchangeably.
func urlFromRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.URL
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ AsyncProvider = (*HeyGenProvider)(nil)
