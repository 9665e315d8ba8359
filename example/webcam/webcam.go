package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/personvision/go-personcam/capture"
	"github.com/personvision/go-personcam/record"
	"github.com/personvision/go-personcam/render"
	"github.com/personvision/go-personcam/stats"
	"github.com/personvision/go-personcam/tracker"
	"github.com/personvision/go-personcam/yolo"
)

// App runs the webcam person detection pipeline and displays annotated
// frames in a preview window
type App struct {
	camera *capture.Camera
	// pool of detectors to perform inference with
	pool *yolo.Pool
	// stabilizer smooths boxes and confidence across frames
	stabilizer *tracker.Stabilizer
	recorder   *record.Recorder
	hud        *render.HUD
	meter      *stats.Meter
	boxFont    render.Font
	window     *gocv.Window
}

// NewApp opens the capture device and loads the detection model
func NewApp(device int, fps float64, modelFile, libFile, ttfFile,
	outDir string, poolSize int, conf float64) (*App, error) {

	a := &App{
		stabilizer: tracker.NewStabilizer(tracker.DefaultConfig()),
		meter:      stats.NewMeter(stats.DefaultWindow),
		boxFont:    render.DefaultFont(),
	}

	cfg := yolo.COCOConfig(modelFile)
	cfg.LibraryPath = libFile

	if conf > 0 {
		cfg.ConfThreshold = float32(conf)
	}

	var err error
	a.pool, err = yolo.NewPool(poolSize, cfg)

	if err != nil {
		return nil, fmt.Errorf("error creating detector pool: %w", err)
	}

	a.camera, err = capture.Open(device, fps)

	if err != nil {
		a.pool.Close()
		return nil, fmt.Errorf("error opening camera %d: %w", device, err)
	}

	opts := record.DefaultOptions()

	if outDir != "" {
		opts.Dir = outDir
	}

	a.recorder, err = record.NewRecorder(opts)

	if err != nil {
		a.pool.Close()
		a.camera.Stop()
		return nil, fmt.Errorf("error creating recorder: %w", err)
	}

	if ttfFile == "" {
		a.hud = render.NewHUD(render.HUDFont())
	} else {
		a.hud, err = render.NewHUDWithFace(render.HUDFont(), ttfFile, 18)

		if err != nil {
			log.Printf("Falling back to built in font: %v", err)
			a.hud = render.NewHUD(render.HUDFont())
		}
	}

	return a, nil
}

// Run processes frames until the user quits or the camera is lost
func (a *App) Run() error {

	a.window = gocv.NewWindow("PersonCam")
	defer a.window.Close()

	a.camera.Start()

	for {
		select {
		case frame, ok := <-a.camera.Frames():
			if !ok {
				return nil
			}

			quit := a.processFrame(&frame)
			frame.Close()

			if quit {
				return nil
			}

		case err := <-a.camera.Errors():
			return err
		}
	}
}

// processFrame runs detection on a single frame, draws the overlays, and
// handles pending key presses.  It returns true when the user quit.
func (a *App) processFrame(frame *gocv.Mat) bool {

	det := a.pool.Get()
	dets, err := det.Detect(*frame)
	a.pool.Return(det)

	if err != nil {
		log.Printf("Inference failed: %v", err)
		dets = nil
	}

	stable := a.stabilizer.Stabilize(dets, time.Now())

	render.StableBoxes(frame, stable, a.boxFont, 2)
	a.drawStatus(frame, len(stable))

	if a.recorder.Active() {
		if err := a.recorder.Write(*frame); err != nil {
			log.Printf("Recording write failed: %v", err)
		}
	}

	a.meter.Tick(time.Now())
	a.window.IMShow(*frame)

	return a.handleKey(a.window.WaitKey(1), frame)
}

// drawStatus renders the HUD readout in the top left frame corner
func (a *App) drawStatus(frame *gocv.Mat, persons int) {

	status := fmt.Sprintf("Persons: %d  FPS: %.1f", persons, a.meter.FPS())

	if a.recorder.Active() {
		status += "  REC"
	}

	if err := a.hud.Text(frame, status, 10, 30); err != nil {
		log.Printf("HUD render failed: %v", err)
	}
}

// handleKey acts on a key press from the preview window, returns true
// when the user quit
func (a *App) handleKey(key int, frame *gocv.Mat) bool {

	switch key {
	// q or ESC
	case 'q', 27:
		return true

	case 'r':
		a.toggleRecording(frame)

	case 's':
		file, err := a.recorder.Screenshot(*frame)

		if err != nil {
			log.Printf("Screenshot failed: %v", err)
			break
		}

		log.Printf("Saved screenshot %s", file)
	}

	return false
}

// toggleRecording starts or stops writing annotated frames to disk
func (a *App) toggleRecording(frame *gocv.Mat) {

	if a.recorder.Active() {
		file := a.recorder.Stop()
		log.Printf("Recording saved to %s", file)
		return
	}

	file, err := a.recorder.Start(frame.Cols(), frame.Rows())

	if err != nil {
		log.Printf("Recording failed to start: %v", err)
		return
	}

	log.Printf("Recording to %s", file)
}

// Close releases the camera, detectors and recorder
func (a *App) Close() {

	if err := a.camera.Stop(); err != nil {
		log.Printf("Camera shutdown: %v", err)
	}

	if a.recorder.Active() {
		file := a.recorder.Stop()
		log.Printf("Recording saved to %s", file)
	}

	a.recorder.Close()
	a.pool.Close()
	a.hud.Close()
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	device := flag.Int("d", 0, "Capture device index")
	fps := flag.Float64("fps", 30, "Capture frame rate")
	modelFile := flag.String("m", "../data/yolov8n.onnx", "YOLOv8 ONNX model file")
	libFile := flag.String("l", "", "Path to onnxruntime shared library, leave empty to use the system search path")
	ttfFile := flag.String("t", "", "TTF font file for the HUD, leave empty to use the built in font")
	poolSize := flag.Int("p", 1, "Size of detector pool to run inference in parallel")
	outDir := flag.String("o", "", "Folder to save recordings and screenshots to, leave empty for ~/Documents/PersonCam")
	conf := flag.Float64("c", 0, "Minimum detection confidence (0.1 to 1.0), 0 uses the model default")
	scan := flag.Bool("scan", false, "List available capture devices and exit")

	flag.Parse()

	if *scan {
		scanDevices()
		return
	}

	app, err := NewApp(*device, *fps, *modelFile, *libFile, *ttfFile,
		*outDir, *poolSize, *conf)

	if err != nil {
		log.Fatalf("Error starting: %v", err)
	}

	defer app.Close()

	log.Println("Press r to record, s for screenshot, q to quit")

	if err := app.Run(); err != nil {
		log.Printf("Stopped: %v", err)
	}
}

// scanDevices probes capture devices and prints those that deliver frames
func scanDevices() {

	devices := capture.Scan(capture.DefaultMaxIndex)

	if len(devices) == 0 {
		log.Println("No capture devices found")
		return
	}

	for _, dev := range devices {
		log.Printf("  %d: %s (%dx%d)", dev.Index, dev.Name,
			dev.Width, dev.Height)
	}
}
