package record

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// DefaultFPS is the frame rate written to output video files
	DefaultFPS = 20.0
	// DefaultCodec is the FourCC codec used for .mp4 output
	DefaultCodec = "mp4v"
	// timestampLayout formats the timestamp embedded in output file names
	timestampLayout = "20060102_150405"
)

// Options configures a Recorder
type Options struct {
	// Dir is the output folder, created if it does not exist
	Dir string
	// FPS is the output video frame rate
	FPS float64
	// Codec is the FourCC identifier of the video codec
	Codec string
}

// DefaultOptions returns recorder options writing mp4v video at 20 FPS to
// a PersonCam folder in the user's documents directory
func DefaultOptions() Options {

	home, err := os.UserHomeDir()

	if err != nil {
		home = "."
	}

	return Options{
		Dir:   filepath.Join(home, "Documents", "PersonCam"),
		FPS:   DefaultFPS,
		Codec: DefaultCodec,
	}
}

// Recorder writes annotated frames to timestamped video files and saves
// single frame screenshots.  It is safe for use from a single pipeline
// goroutine with control calls arriving from another.
type Recorder struct {
	mu     sync.Mutex
	opts   Options
	writer *gocv.VideoWriter
	file   string
}

// NewRecorder creates a Recorder and ensures the output folder exists.
// Zero option values are replaced with defaults.
func NewRecorder(opts Options) (*Recorder, error) {

	def := DefaultOptions()

	if opts.Dir == "" {
		opts.Dir = def.Dir
	}

	if opts.FPS <= 0 {
		opts.FPS = def.FPS
	}

	if opts.Codec == "" {
		opts.Codec = def.Codec
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating output folder: %w", err)
	}

	return &Recorder{opts: opts}, nil
}

// Dir returns the current output folder
func (r *Recorder) Dir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts.Dir
}

// SetDir changes the output folder, creating it if needed.  An active
// recording keeps writing to its original file.
func (r *Recorder) SetDir(dir string) error {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating output folder: %w", err)
	}

	r.mu.Lock()
	r.opts.Dir = dir
	r.mu.Unlock()

	return nil
}

// Start begins recording video of the given frame size to a new
// timestamped .mp4 file and returns its path.  If a recording is already
// active its path is returned instead.  On failure to create the output
// file an error is returned and recording is left inactive.
func (r *Recorder) Start(width, height int) (string, error) {

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer != nil {
		return r.file, nil
	}

	path := filepath.Join(r.opts.Dir,
		timestampName("recording", "mp4", time.Now()))

	writer, err := gocv.VideoWriterFile(path, r.opts.Codec, r.opts.FPS,
		width, height, true)

	if err != nil {
		return "", fmt.Errorf("error creating video writer: %w", err)
	}

	if !writer.IsOpened() {
		writer.Close()
		return "", fmt.Errorf("failed to create video writer for %s", path)
	}

	r.writer = writer
	r.file = path

	return path, nil
}

// Write appends one frame to the active recording, it is a no-op when not
// recording
func (r *Recorder) Write(frame gocv.Mat) error {

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer == nil {
		return nil
	}

	if err := r.writer.Write(frame); err != nil {
		return fmt.Errorf("error writing frame: %w", err)
	}

	return nil
}

// Stop finishes the active recording and returns the path of the saved
// file, or an empty string when no recording was active
func (r *Recorder) Stop() string {

	r.mu.Lock()
	defer r.mu.Unlock()

	saved := r.file

	if r.writer != nil {
		r.writer.Close()
		r.writer = nil
	}

	r.file = ""

	return saved
}

// Active reports whether a recording is in progress
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer != nil
}

// Screenshot saves the given frame as a timestamped PNG file in the output
// folder and returns its path
func (r *Recorder) Screenshot(frame gocv.Mat) (string, error) {

	if frame.Empty() {
		return "", fmt.Errorf("no frame available to capture")
	}

	r.mu.Lock()
	dir := r.opts.Dir
	r.mu.Unlock()

	path := filepath.Join(dir, timestampName("capture", "png", time.Now()))

	if ok := gocv.IMWrite(path, frame); !ok {
		return "", fmt.Errorf("failed to write screenshot to %s", path)
	}

	return path, nil
}

// Close stops any active recording
func (r *Recorder) Close() {
	r.Stop()
}

// timestampName builds a dated output file name such as
// recording_20240601_120000.mp4
func timestampName(prefix, ext string, t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, t.Format(timestampLayout), ext)
}
