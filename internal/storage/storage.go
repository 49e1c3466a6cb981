package storage

import (
	"context"
	"fmt"
	"time"
)

// ArtifactStore is the durable object storage surface the pipeline needs:
// upload bytes, and mint a time-bounded read URL.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignedGetURL(key string, ttl time.Duration) (string, error)
}

// Deterministic per-variant keys. Re-running a step overwrites the same
// object instead of accumulating orphans.

// AudioKey locates the synthesized narration for one variant.
func AudioKey(jobID string, variantIndex int) string {
	return fmt.Sprintf("jobs/%s/%d/audio.mp3", jobID, variantIndex)
}

// RawVideoKey locates the provider-rendered clip for one variant.
func RawVideoKey(jobID string, variantIndex int) string {
	return fmt.Sprintf("jobs/%s/%d/video_raw.mp4", jobID, variantIndex)
}

// FinalKey locates the deliverable clip for one variant.
func FinalKey(jobID string, variantIndex int) string {
	return fmt.Sprintf("jobs/%s/%d/final.mp4", jobID, variantIndex)
}

// InputImageKey locates an uploaded product image.
func InputImageKey(jobID string) string {
	return fmt.Sprintf("jobs/%s/input/image", jobID)
}
