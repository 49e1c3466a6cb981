package script

import "context"

// Caption is one timed subtitle line.
type Caption struct {
	T    float64 `json:"t"`
	Text string  `json:"text"`
}

// Shot describes framing directions for the avatar clip.
type Shot struct {
	Scene   string   `json:"scene"`
	Camera  string   `json:"camera"`
	Tone    string   `json:"tone"`
	Gesture []string `json:"gesture"`
}

// Compliance records which claim categories the variant avoids.
type Compliance struct {
	NoMedicalClaim bool `json:"no_medical_claim"`
	NoBeforeAfter  bool `json:"no_before_after"`
}

// Variant is one creative execution returned by a script provider. The JSON
// shape doubles as the persisted script asset metadata.
type Variant struct {
	VariantIndex int        `json:"variant_index"`
	Hook         string     `json:"hook"`
	Body         string     `json:"body"`
	CTA          string     `json:"cta"`
	FullScript   string     `json:"full_script"`
	Captions     []Caption  `json:"captions"`
	Shot         Shot       `json:"shot"`
	Compliance   Compliance `json:"compliance"`
}

// ScriptSet is the provider response envelope.
type ScriptSet struct {
	Variants []Variant `json:"variants"`
}

// GenerateRequest carries the rendered prompt plus the raw fields a
// network-free generator needs to produce deterministic output.
type GenerateRequest struct {
	Prompt      string
	ProductName string
	TargetCount int
}

// Generator produces ad script variants.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*ScriptSet, error)
	Name() string
}
