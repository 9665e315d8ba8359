// Package yolo implements the person detection backend using YOLOv8 family
// models running on ONNX Runtime.
package yolo

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	personcam "github.com/personvision/go-personcam"
)

const (
	// DefaultInputSize is the input tensor width and height for YOLOv8
	// COCO models
	DefaultInputSize = 640
	// DefaultConfThreshold is the minimum confidence for a detection to
	// be kept
	DefaultConfThreshold = 0.5
	// DefaultNMSThreshold is the maximum allowed IoU between two boxes of
	// the same class during Non-Maximum Suppression
	DefaultNMSThreshold = 0.45
	// cocoClassNum is the number of object classes in the COCO dataset
	cocoClassNum = 80
)

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

// initRuntime initializes the ONNX Runtime environment once for the
// process.  libPath may be empty when the shared library is on the default
// search path.
func initRuntime(libPath string) error {

	runtimeOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}

		runtimeErr = ort.InitializeEnvironment()
	})

	return runtimeErr
}

// Config defines the parameters of a YOLO detector
type Config struct {
	// ModelPath is the .onnx model file
	ModelPath string
	// LibraryPath is the onnxruntime shared library, leave empty to use
	// the system search path
	LibraryPath string
	// InputWidth and InputHeight are the model input tensor dimensions
	InputWidth  int
	InputHeight int
	// ConfThreshold is the minimum confidence score, settable in the
	// range 0.1 to 1.0
	ConfThreshold float32
	// NMSThreshold is the Non-Maximum Suppression IoU threshold
	NMSThreshold float32
	// ClassNum is the number of classes the model was trained with
	ClassNum int
	// HalfPrecision indicates the model emits a float16 output tensor
	HalfPrecision bool
	// RawScores indicates the model emits logits and a sigmoid must be
	// applied to class scores
	RawScores bool
	// Threads is the intra-op thread count, 0 uses the runtime default
	Threads int
}

// COCOConfig returns a Config for a standard YOLOv8 COCO model at the
// given path
func COCOConfig(modelPath string) Config {
	return Config{
		ModelPath:     modelPath,
		InputWidth:    DefaultInputSize,
		InputHeight:   DefaultInputSize,
		ConfThreshold: DefaultConfThreshold,
		NMSThreshold:  DefaultNMSThreshold,
		ClassNum:      cocoClassNum,
	}
}

// Detector runs YOLOv8 inference through ONNX Runtime.  It implements the
// personcam.Detector interface.  A Detector serializes its own inference
// calls, use a Pool to run frames in parallel.
type Detector struct {
	mu  sync.Mutex
	cfg Config
	// anchors is the number of candidate boxes the model emits, the sum
	// of the grid cells at strides 8, 16 and 32
	anchors int

	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	output    *ort.Tensor[float32]
	outputF16 *ort.CustomDataTensor
	// f16Data holds float16 output decoded to float32
	f16Data []float32

	resizer *Resizer
	boxed   gocv.Mat
}

// NewDetector loads the model and creates an inference session with
// preallocated input and output tensors
func NewDetector(cfg Config) (*Detector, error) {

	if cfg.InputWidth == 0 {
		cfg.InputWidth = DefaultInputSize
	}

	if cfg.InputHeight == 0 {
		cfg.InputHeight = DefaultInputSize
	}

	if cfg.ConfThreshold == 0 {
		cfg.ConfThreshold = DefaultConfThreshold
	}

	if cfg.NMSThreshold == 0 {
		cfg.NMSThreshold = DefaultNMSThreshold
	}

	if cfg.ClassNum == 0 {
		cfg.ClassNum = cocoClassNum
	}

	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, errors.Wrap(err, "initializing onnxruntime environment")
	}

	d := &Detector{
		cfg:     cfg,
		anchors: anchorCount(cfg.InputWidth, cfg.InputHeight),
		boxed:   gocv.NewMat(),
	}

	inputShape := ort.NewShape(1, 3, int64(cfg.InputHeight),
		int64(cfg.InputWidth))

	input, err := ort.NewEmptyTensor[float32](inputShape)

	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}

	d.input = input

	outputShape := ort.NewShape(1, int64(4+cfg.ClassNum), int64(d.anchors))
	outputElems := (4 + cfg.ClassNum) * d.anchors

	var outputTensor ort.ArbitraryTensor

	if cfg.HalfPrecision {
		f16, err := ort.NewCustomDataTensor(outputShape,
			make([]byte, outputElems*2), ort.TensorElementDataTypeFloat16)

		if err != nil {
			d.destroyTensors()
			return nil, errors.Wrap(err, "creating float16 output tensor")
		}

		d.outputF16 = f16
		d.f16Data = make([]float32, outputElems)
		outputTensor = f16
	} else {
		output, err := ort.NewEmptyTensor[float32](outputShape)

		if err != nil {
			d.destroyTensors()
			return nil, errors.Wrap(err, "creating output tensor")
		}

		d.output = output
		outputTensor = output
	}

	opts, err := ort.NewSessionOptions()

	if err != nil {
		d.destroyTensors()
		return nil, errors.Wrap(err, "creating session options")
	}

	defer opts.Destroy()

	if cfg.Threads > 0 {
		opts.SetIntraOpNumThreads(cfg.Threads)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{"images"}, []string{"output0"},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{outputTensor},
		opts)

	if err != nil {
		d.destroyTensors()
		return nil, errors.Wrapf(err, "creating session for %s", cfg.ModelPath)
	}

	d.session = session

	return d, nil
}

// SetConfidence sets the detection confidence threshold, clamped to the
// range 0.1 to 1.0
func (d *Detector) SetConfidence(conf float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if conf < 0.1 {
		conf = 0.1
	}

	if conf > 1.0 {
		conf = 1.0
	}

	d.cfg.ConfThreshold = conf
}

// Detect runs inference on a BGR frame and returns the raw detections in
// source image coordinates
func (d *Detector) Detect(img gocv.Mat) ([]personcam.Detection, error) {

	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, errors.New("empty input frame")
	}

	srcW := img.Cols()
	srcH := img.Rows()

	// the resizer precalculates letterbox padding for one source size,
	// recreate it if the frame size changed
	if d.resizer == nil || d.resizer.SrcWidth() != srcW ||
		d.resizer.SrcHeight() != srcH {

		if d.resizer != nil {
			d.resizer.Close()
		}

		d.resizer = NewResizer(srcW, srcH, d.cfg.InputWidth, d.cfg.InputHeight)
	}

	d.resizer.LetterBoxResize(img, &d.boxed, padColor)

	if err := chwFromMat(d.boxed, d.input.GetData()); err != nil {
		return nil, errors.Wrap(err, "preparing input tensor")
	}

	if err := d.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running inference")
	}

	m := mapping{
		scaleX: d.resizer.ScaleFactor(),
		scaleY: d.resizer.ScaleFactor(),
		padX:   float32(d.resizer.XPad()),
		padY:   float32(d.resizer.YPad()),
	}

	return decodeOutput(d.outputData(), d.params(), m, srcW, srcH), nil
}

// DetectImage runs inference on a decoded still image.  It resizes with
// Lanczos3 resampling rather than the letterbox path so it does not
// require OpenCV frame data.
func (d *Detector) DetectImage(img image.Image) ([]personcam.Detection, error) {

	d.mu.Lock()
	defer d.mu.Unlock()

	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()

	if srcW == 0 || srcH == 0 {
		return nil, errors.New("empty input image")
	}

	if err := prepareImage(img, d.cfg.InputWidth, d.cfg.InputHeight,
		d.input.GetData()); err != nil {
		return nil, errors.Wrap(err, "preparing input tensor")
	}

	if err := d.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running inference")
	}

	// plain resize stretches each axis independently with no padding
	m := mapping{
		scaleX: float32(d.cfg.InputWidth) / float32(srcW),
		scaleY: float32(d.cfg.InputHeight) / float32(srcH),
	}

	return decodeOutput(d.outputData(), d.params(), m, srcW, srcH), nil
}

// outputData returns the model output as float32, decoding half precision
// tensors through the precomputed lookup table
func (d *Detector) outputData() []float32 {

	if d.outputF16 != nil {
		personcam.DecodeFloat16(d.outputF16.GetData(), d.f16Data)
		return d.f16Data
	}

	return d.output.GetData()
}

// params collects the decode parameters from the current config
func (d *Detector) params() decodeParams {
	return decodeParams{
		classNum:   d.cfg.ClassNum,
		anchors:    d.anchors,
		confThresh: d.cfg.ConfThreshold,
		nmsThresh:  d.cfg.NMSThreshold,
		rawScores:  d.cfg.RawScores,
	}
}

// Close releases the session, tensors, and scratch Mats
func (d *Detector) Close() error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}

	d.destroyTensors()

	if d.resizer != nil {
		d.resizer.Close()
		d.resizer = nil
	}

	return d.boxed.Close()
}

func (d *Detector) destroyTensors() {

	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}

	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}

	if d.outputF16 != nil {
		d.outputF16.Destroy()
		d.outputF16 = nil
	}
}

// anchorCount returns the number of candidate boxes a YOLOv8 model emits
// for the given input size, the sum of grid cells at strides 8, 16 and 32
func anchorCount(width, height int) int {

	total := 0

	for _, stride := range []int{8, 16, 32} {
		total += (width / stride) * (height / stride)
	}

	return total
}
