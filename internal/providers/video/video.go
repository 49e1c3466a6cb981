package video

import "context"

// Input carries everything a provider needs to render one avatar clip.
type Input struct {
	ImageURL    string
	AudioURL    string
	StylePreset string
}

// Generator renders a clip and returns its bytes in one call. Providers
// that work asynchronously are adapted through PollingGenerator.
type Generator interface {
	Generate(ctx context.Context, input Input) ([]byte, error)
	Name() string
}

// PollStatus is the normalized progress state of an asynchronous provider.
type PollStatus string

const (
	StatusProcessing PollStatus = "processing"
	StatusCompleted  PollStatus = "completed"
	StatusFailed     PollStatus = "failed"
)

// PollResult reports progress; ResultURL is set once Status is completed.
type PollResult struct {
	Status    PollStatus
	ResultURL string
}

// AsyncProvider submits work and reports progress until completion.
type AsyncProvider interface {
	Submit(ctx context.Context, input Input) (string, error)
	Poll(ctx context.Context, providerJobID string) (PollResult, error)
	Name() string
}
