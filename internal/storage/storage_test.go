package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestArtifactKeys(t *testing.T) {
	if got, want := AudioKey("j1", 0), "jobs/j1/0/audio.mp3"; got != want {
		t.Fatalf("AudioKey = %q, want %q", got, want)
	}
	if got, want := RawVideoKey("j1", 2), "jobs/j1/2/video_raw.mp4"; got != want {
		t.Fatalf("RawVideoKey = %q, want %q", got, want)
	}
	if got, want := FinalKey("j1", 2), "jobs/j1/2/final.mp4"; got != want {
		t.Fatalf("FinalKey = %q, want %q", got, want)
	}
	if got, want := InputImageKey("j1"), "jobs/j1/input/image"; got != want {
		t.Fatalf("InputImageKey = %q, want %q", got, want)
	}
}

func TestFileStorePutAndURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/files/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	key := AudioKey("job-1", 0)
	if err := store.Put(context.Background(), key, []byte("audio-bytes"), "audio/mpeg"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "jobs", "job-1", "0", "audio.mp3"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("read back = %q", data)
	}

	url, err := store.PresignedGetURL(key, time.Minute)
	if err != nil {
		t.Fatalf("PresignedGetURL: %v", err)
	}
	if url != "http://localhost:8080/files/jobs/job-1/0/audio.mp3" {
		t.Fatalf("url = %q", url)
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{name: "plain", key: "jobs/a/0/audio.mp3", want: "jobs/a/0/audio.mp3"},
		{name: "leading slash", key: "/jobs/a/final.mp4", want: "jobs/a/final.mp4"},
		{name: "dot slash prefix", key: "./jobs/a/final.mp4", want: "jobs/a/final.mp4"},
		{name: "backslashes", key: "jobs\\a\\final.mp4", want: "jobs/a/final.mp4"},
		{name: "inner dot segments", key: "jobs/a/../a/final.mp4", want: "jobs/a/final.mp4"},
		{name: "traversal", key: "../etc/passwd", wantErr: true},
		{name: "empty", key: "   ", wantErr: true},
		{name: "dot only", key: ".", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sanitizeKey(tc.key)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("sanitizeKey(%q): %v", tc.key, err)
			}
			if got != tc.want {
				t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}

func TestFileStorePutRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost/files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Put(context.Background(), "../outside.txt", []byte("x"), ""); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	if _, err := NewS3Store(S3Options{Region: "us-east-1"}); err == nil {
		t.Fatal("expected error when bucket is missing")
	}
}
