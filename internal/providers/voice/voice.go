package voice

import "context"

// Synthesis is the audio payload produced by a provider.
type Synthesis struct {
	Audio       []byte
	ContentType string
}

// Synthesizer turns script text into speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (*Synthesis, error)
	Name() string
}

// DefaultVoiceID is used when the caller does not pick a voice.
const DefaultVoiceID = "alloy"
