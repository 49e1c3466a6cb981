package script

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
)

const openAIDefaultTimeout = 60 * time.Second

// OpenAIOptions configures the OpenAI-backed script generator.
type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAIGenerator produces script variants through the chat completions API.
type OpenAIGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIGenerator validates options and builds the client.
func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAIGenerator{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

func (o *OpenAIGenerator) Name() string { return "openai" }

func (o *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (*ScriptSet, error) {
	payload := openAIChatRequest{
		Model:       o.model,
		Temperature: 0.9,
		Messages: []openAIMessage{
			{Role: "system", Content: "Return ONLY a valid JSON object. No prose, no markdown."},
			{Role: "user", Content: req.Prompt},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/chat/completions", o.baseURL)
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
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(head)))
	}

	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("openai response has no choices")
	}

	text := strings.TrimSpace(out.Choices[0].Message.Content)
	return parseScriptSet(text)
}

// parseScriptSet decodes the model output, falling back to the outermost
// JSON object when the model wraps it in prose despite instructions.
func parseScriptSet(text string) (*ScriptSet, error) {
	var set ScriptSet
	if err := json.Unmarshal([]byte(text), &set); err == nil {
		return &set, nil
	}

	sliced, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sliced), &set); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w; head=%s", err, head(text, 300))
	}
	return &set, nil
}

func extractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", errors.New("no JSON object found in model output")
	}
	return text[start : end+1], nil
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ Generator = (*OpenAIGenerator)(nil)
