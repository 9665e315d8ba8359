package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// warmupFrames is the number of frames discarded after opening a
	// device, the first frames are often corrupt or black
	warmupFrames = 5
	// maxReadFailures is the number of consecutive failed reads before
	// the device is considered lost
	maxReadFailures = 30
	// stopTimeout is the bounded wait applied to the capture goroutine
	// when stopping
	stopTimeout = 3 * time.Second
	// frameDepth is the capacity of the frame channel handed to the
	// consumer
	frameDepth = 2
)

// ErrDeviceLost is reported once when the capture device disconnects or
// stops responding, it is a terminal condition for the capture loop
var ErrDeviceLost = errors.New("camera disconnected or stopped responding")

// ErrStopTimeout is returned by Stop when the capture goroutine did not
// exit within the bounded wait
var ErrStopTimeout = errors.New("capture loop not responding")

// Source abstracts the underlying capture device so the loop can be tested
// without camera hardware.  *gocv.VideoCapture satisfies it.
type Source interface {
	Read(m *gocv.Mat) bool
	IsOpened() bool
	Close() error
}

// Camera reads BGR frames from a capture device on its own goroutine and
// publishes them on a buffered channel.  If the consumer falls behind new
// frames are dropped rather than blocking capture.
type Camera struct {
	source Source
	fps    float64
	frames chan gocv.Mat
	errs   chan error
	stop   chan struct{}
	done   chan struct{}
	halt   sync.Once
}

// Open opens the camera at the given device index, warms it up, and
// returns a Camera ready to Start.  The capture buffer is reduced to a
// single frame for lower latency where the camera supports it.
func Open(device int, fps float64) (*Camera, error) {

	cap, err := gocv.VideoCaptureDevice(device)

	if err != nil {
		return nil, fmt.Errorf("error opening camera %d: %w", device, err)
	}

	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("camera %d failed to open", device)
	}

	cap.Set(gocv.VideoCaptureBufferSize, 1)

	// discard warmup frames and verify the device actually delivers
	img := gocv.NewMat()
	defer img.Close()

	for i := 0; i < warmupFrames; i++ {
		cap.Read(&img)
	}

	if ok := cap.Read(&img); !ok || img.Empty() {
		cap.Close()
		return nil, fmt.Errorf("camera %d opened but could not read a frame",
			device)
	}

	return NewCamera(cap, fps), nil
}

// NewCamera wraps an already opened source.  fps is the target capture
// rate, values <= 0 default to 30.
func NewCamera(source Source, fps float64) *Camera {

	if fps <= 0 {
		fps = 30
	}

	return &Camera{
		source: source,
		fps:    fps,
		frames: make(chan gocv.Mat, frameDepth),
		errs:   make(chan error, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the capture loop goroutine
func (c *Camera) Start() {
	go c.loop()
}

// Frames returns the channel capture frames are published on.  The
// receiver owns each Mat and must Close it when done.
func (c *Camera) Frames() <-chan gocv.Mat {
	return c.frames
}

// Errors returns the channel the terminal capture error is reported on
func (c *Camera) Errors() <-chan error {
	return c.errs
}

// Done returns a channel closed when the capture loop has exited and the
// device has been released
func (c *Camera) Done() <-chan struct{} {
	return c.done
}

// Stop signals the capture loop to exit and waits for the device to be
// released, bounded by stopTimeout.  Frames still queued for the consumer
// are drained and freed.
func (c *Camera) Stop() error {

	c.halt.Do(func() {
		close(c.stop)
	})

	select {
	case <-c.done:
	case <-time.After(stopTimeout):
		return ErrStopTimeout
	}

	// free any frames the consumer never collected
	for {
		select {
		case frame := <-c.frames:
			frame.Close()
		default:
			return nil
		}
	}
}

// loop is the capture loop, it runs on its own goroutine until stopped or
// the device is lost.  The stop signal is observed at the top of each
// iteration and the device is released before the goroutine exits.
func (c *Camera) loop() {

	defer close(c.done)
	defer c.source.Close()

	interval := time.Duration(float64(time.Second) / c.fps)

	img := gocv.NewMat()
	defer img.Close()

	failures := 0

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		loopStart := time.Now()

		if !c.source.IsOpened() {
			c.report(ErrDeviceLost)
			return
		}

		if ok := c.source.Read(&img); !ok || img.Empty() {

			failures++

			if failures >= maxReadFailures {
				c.report(ErrDeviceLost)
				return
			}

			// brief pause before retrying
			if !c.sleep(50 * time.Millisecond) {
				return
			}

			continue
		}

		failures = 0

		frame := img.Clone()

		select {
		case c.frames <- frame:
		default:
			// consumer is behind, drop the frame rather than block
			frame.Close()
		}

		// frame rate control
		if elapsed := time.Since(loopStart); elapsed < interval {
			if !c.sleep(interval - elapsed) {
				return
			}
		}
	}
}

// sleep waits for the given duration unless stopped first, it reports
// false when the camera is stopping
func (c *Camera) sleep(d time.Duration) bool {

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-c.stop:
		return false
	case <-t.C:
		return true
	}
}

// report delivers the terminal capture error without blocking, only the
// first error is kept
func (c *Camera) report(err error) {
	select {
	case c.errs <- err:
	default:
	}
}
