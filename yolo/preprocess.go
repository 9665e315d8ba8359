package yolo

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// padColor is the letterbox padding color used by YOLO models
var padColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Resizer handles scaling source frames to the model input tensor size.
// The letterbox padding and scale factor are precalculated for one source
// resolution.
type Resizer struct {
	srcWidth   int
	srcHeight  int
	destWidth  int
	destHeight int
	// tempMat is scratch space used during the resize
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
	// dimensions of the scaled image before padding
	resizeW int
	resizeH int
}

// NewResizer returns a Resizer scaling frames of the given source size to
// the model input tensor size
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {

	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	r.preCalc()

	return r
}

// Close frees memory allocated during the resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc the scale factor and padding that preserve the source aspect
// ratio inside the destination size
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float32(r.destWidth) / float32(r.srcWidth)
	scaleH := float32(r.destHeight) / float32(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float32(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float32(r.srcWidth) * r.scale)
	}

	r.xPad = (r.destWidth - r.resizeW) / 2
	r.yPad = (r.destHeight - r.resizeH) / 2
}

// LetterBoxResize scales the source frame into dest at the model input
// size, padding the remaining border with the given color to maintain the
// image aspect ratio
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat,
	pad color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad,
		r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad,
		gocv.BorderConstant, pad)
}

// ScaleFactor returns the scale factor used in the letterbox resize
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XPad returns the x padding used in the letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in the letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

// SrcWidth returns the width of the source image
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source image
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}

// chwFromMat fills dst with the planar RGB float32 representation of a BGR
// frame already scaled to the model input size, values normalized to [0,1]
func chwFromMat(img gocv.Mat, dst []float32) error {

	width := img.Cols()
	height := img.Rows()
	channelSize := width * height

	if len(dst) < channelSize*3 {
		return errors.Errorf("input tensor holds %d floats, needs %d",
			len(dst), channelSize*3)
	}

	data, err := img.DataPtrUint8()

	if err != nil {
		return errors.Wrap(err, "accessing frame data")
	}

	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	for i := 0; i < channelSize; i++ {
		// gocv frames are BGR byte triplets
		blue[i] = float32(data[i*3]) / 255.0
		green[i] = float32(data[i*3+1]) / 255.0
		red[i] = float32(data[i*3+2]) / 255.0
	}

	return nil
}

// prepareImage fills dst with the planar RGB float32 representation of a
// decoded still image, resized to the model input size with Lanczos3
// resampling
func prepareImage(img image.Image, width, height int, dst []float32) error {

	channelSize := width * height

	if len(dst) < channelSize*3 {
		return errors.Errorf("input tensor holds %d floats, needs %d",
			len(dst), channelSize*3)
	}

	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	scaled := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)

	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := scaled.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}

	return nil
}
