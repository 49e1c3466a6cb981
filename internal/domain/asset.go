package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// AssetKind enumerates the artifact types a job accumulates, one per
// pipeline step.
type AssetKind string

const (
	AssetKindScript AssetKind = "script"
	AssetKindAudio  AssetKind = "audio"
	AssetKindVideo  AssetKind = "video"
	AssetKindFinal  AssetKind = "final"
)

// Asset represents one artifact belonging to a job. At most one completed
// asset exists per (job, kind, variant); later step calls for the same
// triple return the existing row.
type Asset struct {
	ID           string
	JobID        string
	Kind         AssetKind
	VariantIndex int
	URL          string
	Meta         json.RawMessage
	CreatedAt    time.Time
}

// Caption is one timed subtitle line from a generated script.
type Caption struct {
	T    float64 `json:"t"`
	Text string  `json:"text"`
}

// ShotSpec describes how the avatar clip should be framed.
type ShotSpec struct {
	Scene   string   `json:"scene"`
	Camera  string   `json:"camera"`
	Tone    string   `json:"tone"`
	Gesture []string `json:"gesture"`
}

// ComplianceFlags records which claim categories the script avoids.
type ComplianceFlags struct {
	NoMedicalClaim bool `json:"no_medical_claim"`
	NoBeforeAfter  bool `json:"no_before_after"`
}

// ScriptMeta is the metadata payload for script assets: one creative
// variant as returned by the script provider.
type ScriptMeta struct {
	VariantIndex int             `json:"variant_index"`
	Hook         string          `json:"hook"`
	Body         string          `json:"body"`
	CTA          string          `json:"cta"`
	FullScript   string          `json:"full_script"`
	Captions     []Caption       `json:"captions"`
	Shot         ShotSpec        `json:"shot"`
	Compliance   ComplianceFlags `json:"compliance"`
	Extra        json.RawMessage `json:"extra,omitempty"`
}

// AudioMeta is the metadata payload for audio assets.
type AudioMeta struct {
	Provider   string `json:"provider"`
	VoiceID    string `json:"voice_id"`
	DurationMs int    `json:"duration_ms"`
	StorageKey string `json:"storage_key"`
}

// VideoMeta is the metadata payload for raw video assets.
type VideoMeta struct {
	Provider    string `json:"provider"`
	ImageURL    string `json:"image_url"`
	AudioURL    string `json:"audio_url"`
	StylePreset string `json:"style_preset"`
	StorageKey  string `json:"storage_key"`
}

// FinalMeta is the metadata payload for finalized video assets.
type FinalMeta struct {
	StorageKey string `json:"storage_key"`
}

// EncodeMeta marshals a typed meta payload onto the asset.
func (a *Asset) EncodeMeta(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s meta: %w", a.Kind, err)
	}
	a.Meta = raw
	return nil
}

// ScriptMeta decodes the asset metadata as a script variant.
func (a *Asset) ScriptMeta() (ScriptMeta, error) {
	var m ScriptMeta
	if err := a.decodeMeta(AssetKindScript, &m); err != nil {
		return ScriptMeta{}, err
	}
	return m, nil
}

// AudioMeta decodes the asset metadata as an audio payload.
func (a *Asset) AudioMeta() (AudioMeta, error) {
	var m AudioMeta
	if err := a.decodeMeta(AssetKindAudio, &m); err != nil {
		return AudioMeta{}, err
	}
	return m, nil
}

// VideoMeta decodes the asset metadata as a raw-video payload.
func (a *Asset) VideoMeta() (VideoMeta, error) {
	var m VideoMeta
	if err := a.decodeMeta(AssetKindVideo, &m); err != nil {
		return VideoMeta{}, err
	}
	return m, nil
}

// FinalMeta decodes the asset metadata as a final-video payload.
func (a *Asset) FinalMeta() (FinalMeta, error) {
	var m FinalMeta
	if err := a.decodeMeta(AssetKindFinal, &m); err != nil {
		return FinalMeta{}, err
	}
	return m, nil
}

func (a *Asset) decodeMeta(want AssetKind, v any) error {
	if a.Kind != want {
		return fmt.Errorf("asset %s is %s, not %s", a.ID, a.Kind, want)
	}
	if len(a.Meta) == 0 {
		return fmt.Errorf("asset %s has no metadata", a.ID)
	}
	if err := json.Unmarshal(a.Meta, v); err != nil {
		return fmt.Errorf("decode %s meta: %w", want, err)
	}
	return nil
}

// FindAsset returns the first asset matching kind and variant, or nil.
func FindAsset(assets []Asset, kind AssetKind, variantIndex int) *Asset {
	for i := range assets {
		if assets[i].Kind == kind && assets[i].VariantIndex == variantIndex {
			return &assets[i]
		}
	}
	return nil
}

// CountByKind tallies assets of one kind across all variants.
func CountByKind(assets []Asset, kind AssetKind) int {
	n := 0
	for i := range assets {
		if assets[i].Kind == kind {
			n++
		}
	}
	return n
}
