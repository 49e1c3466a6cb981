package domain

import (
	"time"
	"unicode/utf8"
)

// Step names as recorded on run logs.
const (
	StepScriptGen = "script_gen"
	StepTTS       = "tts"
	StepVideoGen  = "video_gen"
	StepFinalize  = "finalize"
	StepRun       = "run"
)

// RunStatus enumerates run log outcomes.
type RunStatus string

const (
	RunStatusOK     RunStatus = "ok"
	RunStatusError  RunStatus = "error"
	RunStatusQueued RunStatus = "queued"
)

// SnapshotMaxChars bounds every string captured into a run log snapshot.
// Snapshots are audit material, not payload storage, and must never carry
// provider credentials or end-user secrets.
const SnapshotMaxChars = 2000

// RunLog is one append-only audit record for a step attempt. It is never
// mutated after creation and accumulates across retries.
type RunLog struct {
	ID        string
	JobID     string
	Step      string
	Provider  string
	Status    RunStatus
	Request   map[string]any
	Response  map[string]any
	ErrorText string
	CreatedAt time.Time
}

// Snap truncates a string to the snapshot bound without splitting a rune.
func Snap(s string) string {
	if len(s) <= SnapshotMaxChars {
		return s
	}
	s = s[:SnapshotMaxChars]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
