package video

import "context"

// DummyGenerator is the network-free synchronous video provider used in
// tests and development. The payload encodes the tail of the audio URL so
// assertions can tie a clip back to its narration.
type DummyGenerator struct{}

// NewDummyGenerator constructs the dummy video provider.
func NewDummyGenerator() *DummyGenerator {
	return &DummyGenerator{}
}

func (d *DummyGenerator) Name() string { return "dummy" }

func (d *DummyGenerator) Generate(_ context.Context, input Input) ([]byte, error) {
	tail := input.AudioURL
	if len(tail) > 16 {
		tail = tail[len(tail)-16:]
	}
	return []byte("dummy video: " + tail), nil
}

var _ Generator = (*DummyGenerator)(nil)
