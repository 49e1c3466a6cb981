package worker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"ugcfactory/internal/domain"
)

// MediaPipeline turns a raw avatar clip into the deliverable vertical video.
type MediaPipeline interface {
	Finalize(ctx context.Context, inputPath, outputPath string, captions []domain.Caption) error
}

// FFmpeg shells out to the ffmpeg binary: center-crop to 1080x1920, burn in
// captions when present, then transcode to H.264/AAC.
type FFmpeg struct {
	bin string
}

// NewFFmpeg uses the given binary, or "ffmpeg" from PATH when empty.
func NewFFmpeg(bin string) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin}
}

func (f *FFmpeg) Finalize(ctx context.Context, inputPath, outputPath string, captions []domain.Caption) error {
	filters := []string{
		"scale=1080:1920:force_original_aspect_ratio=increase",
		"crop=1080:1920",
	}
	if srt := CaptionsToSRT(captions); srt != "" {
		srtPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".srt"
		if err := os.WriteFile(srtPath, []byte(srt), 0o644); err != nil {
			return fmt.Errorf("write subtitles: %w", err)
		}
		escaped := strings.ReplaceAll(srtPath, "'", `\'`)
		filters = append(filters, "subtitles='"+escaped+"'")
	}

	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", strings.Join(filters, ","),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		outputPath,
	}
	cmd := exec.CommandContext(ctx, f.bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(out, 512))
	}
	return nil
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}

var _ MediaPipeline = (*FFmpeg)(nil)
