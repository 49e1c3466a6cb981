package voice

import "context"

// DummySynthesizer is the network-free voice provider used in tests and
// development. The payload encodes a text prefix so assertions can tie
// audio back to its input.
type DummySynthesizer struct{}

// NewDummySynthesizer constructs the dummy voice provider.
func NewDummySynthesizer() *DummySynthesizer {
	return &DummySynthesizer{}
}

func (d *DummySynthesizer) Name() string { return "dummy" }

func (d *DummySynthesizer) Synthesize(_ context.Context, text, _ string) (*Synthesis, error) {
	prefix := text
	if len(prefix) > 64 {
		prefix = prefix[:64]
	}
	return &Synthesis{
		Audio:       []byte("dummy tts: " + prefix),
		ContentType: "audio/mpeg",
	}, nil
}

var _ Synthesizer = (*DummySynthesizer)(nil)
