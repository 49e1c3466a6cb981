package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	openAIDefaultTimeout  = 60 * time.Second
	openAIDefaultMaxChars = 800
)

// OpenAIOptions configures the OpenAI speech synthesizer. MaxChars bounds
// the input length in runes; zero applies the default.
type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxChars   int
	HTTPClient *http.Client
}

// OpenAISynthesizer calls the OpenAI speech endpoint.
type OpenAISynthesizer struct {
	apiKey   string
	model    string
	baseURL  string
	maxChars int
	client   *http.Client
}

type openAISpeechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// NewOpenAISynthesizer validates options and builds the client.
func NewOpenAISynthesizer(opts OpenAIOptions) (*OpenAISynthesizer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "tts-1"
	}
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = openAIDefaultMaxChars
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAISynthesizer{
		apiKey:   strings.TrimSpace(opts.APIKey),
		model:    model,
		baseURL:  baseURL,
		maxChars: maxChars,
		client:   client,
	}, nil
}

func (o *OpenAISynthesizer) Name() string { return "openai" }

func (o *OpenAISynthesizer) Synthesize(ctx context.Context, text, voiceID string) (*Synthesis, error) {
	if n := utf8.RuneCountInString(text); n > o.maxChars {
		return nil, fmt.Errorf("text too long: %d > %d", n, o.maxChars)
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	payload := openAISpeechRequest{
		Model:          o.model,
		Voice:          voiceID,
		Input:          text,
		ResponseFormat: "mp3",
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/audio/speech", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		head, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openai tts status %d: %s", resp.StatusCode, strings.TrimSpace(string(head)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return &Synthesis{Audio: audio, ContentType: contentType}, nil
}

var _ Synthesizer = (*OpenAISynthesizer)(nil)
