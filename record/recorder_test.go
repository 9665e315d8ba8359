package record

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestTimestampName(t *testing.T) {

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		prefix string
		ext    string
		want   string
	}{
		{"recording", "mp4", "recording_20240601_120000.mp4"},
		{"capture", "png", "capture_20240601_120000.png"},
	}

	for _, tc := range tests {
		if got := timestampName(tc.prefix, tc.ext, ts); got != tc.want {
			t.Errorf("timestampName(%q, %q) = %q, want %q",
				tc.prefix, tc.ext, got, tc.want)
		}
	}
}

func TestNewRecorderCreatesDir(t *testing.T) {

	dir := filepath.Join(t.TempDir(), "nested", "output")

	r, err := NewRecorder(Options{Dir: dir})

	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("output folder not created: %v", err)
	}

	if r.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", r.Dir(), dir)
	}
}

func TestRecorderDefaults(t *testing.T) {

	r, err := NewRecorder(Options{Dir: t.TempDir()})

	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	if r.opts.FPS != DefaultFPS {
		t.Errorf("FPS = %f, want %f", r.opts.FPS, DefaultFPS)
	}

	if r.opts.Codec != DefaultCodec {
		t.Errorf("Codec = %q, want %q", r.opts.Codec, DefaultCodec)
	}
}

func TestRecorderInactive(t *testing.T) {

	r, err := NewRecorder(Options{Dir: t.TempDir()})

	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	if r.Active() {
		t.Error("Active() = true before Start")
	}

	// writing while inactive is a no-op
	frame := gocv.NewMat()
	defer frame.Close()

	if err := r.Write(frame); err != nil {
		t.Errorf("Write while inactive = %v, want nil", err)
	}

	if saved := r.Stop(); saved != "" {
		t.Errorf("Stop while inactive = %q, want empty", saved)
	}
}

func TestRecorderSetDir(t *testing.T) {

	r, err := NewRecorder(Options{Dir: t.TempDir()})

	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "moved")

	if err := r.SetDir(dir); err != nil {
		t.Fatalf("SetDir: %v", err)
	}

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("new output folder not created: %v", err)
	}

	if r.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", r.Dir(), dir)
	}
}

func TestScreenshotEmptyFrame(t *testing.T) {

	r, err := NewRecorder(Options{Dir: t.TempDir()})

	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	frame := gocv.NewMat()
	defer frame.Close()

	if _, err := r.Screenshot(frame); err == nil {
		t.Error("Screenshot of empty frame did not return an error")
	}
}
