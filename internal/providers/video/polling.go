package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	pollInitialDelay = 2 * time.Second
	pollMultiplier   = 1.6
	pollMaxDelay     = 10 * time.Second

	defaultPollTimeout = 600 * time.Second
)

// ErrTimeout is returned when a provider stays in processing past the
// configured overall timeout.
var ErrTimeout = errors.New("video generation timed out")

// PollingGenerator adapts an AsyncProvider to the Generator interface:
// submit, then poll on a fixed backoff schedule until the provider reports
// completion, failure, or the overall timeout elapses. Elapsed time is
// accounted from the scheduled delays. Abandoning the request does not
// cancel the provider-side generation.
type PollingGenerator struct {
	provider AsyncProvider
	client   *http.Client
	timeout  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewPollingGenerator wraps an async provider. A zero timeout applies the
// default overall bound.
func NewPollingGenerator(provider AsyncProvider, timeout time.Duration) *PollingGenerator {
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	return &PollingGenerator{
		provider: provider,
		client:   &http.Client{Timeout: 60 * time.Second},
		timeout:  timeout,
		sleep:    sleepContext,
	}
}

func (p *PollingGenerator) Name() string { return p.provider.Name() }

func (p *PollingGenerator) Generate(ctx context.Context, input Input) ([]byte, error) {
	id, err := p.provider.Submit(ctx, input)
	if err != nil {
		return nil, err
	}

	delay := pollInitialDelay
	elapsed := time.Duration(0)
	for elapsed < p.timeout {
		res, err := p.provider.Poll(ctx, id)
		if err != nil {
			return nil, err
		}
		switch res.Status {
		case StatusCompleted:
			if res.ResultURL == "" {
				return nil, errors.New("provider completed without a result url")
			}
			return p.download(ctx, res.ResultURL)
		case StatusFailed:
			return nil, fmt.Errorf("provider reported failure for job %s", id)
		}

		if err := p.sleep(ctx, delay); err != nil {
			return nil, err
		}
		elapsed += delay
		delay = time.Duration(float64(delay) * pollMultiplier)
		if delay > pollMaxDelay {
			delay = pollMaxDelay
		}
	}
	return nil, ErrTimeout
}

// download re-hosts the provider's transient result: callers persist the
// bytes into durable storage.
func (p *PollingGenerator) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download result: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("download result: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ Generator = (*PollingGenerator)(nil)
