package yolo

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizerPreCalc(t *testing.T) {

	tests := []struct {
		srcWidth  int
		srcHeight int
		wantXPad  int
		wantYPad  int
		wantScale float32
	}{
		{1280, 720, 0, 140, 0.50},
		{800, 1000, 64, 0, 0.64},
		{800, 800, 0, 0, 0.8},
	}

	for _, tc := range tests {

		r := NewResizer(tc.srcWidth, tc.srcHeight, 640, 640)

		assert.Equal(t, tc.wantXPad, r.XPad(), "xPad for %dx%d",
			tc.srcWidth, tc.srcHeight)
		assert.Equal(t, tc.wantYPad, r.YPad(), "yPad for %dx%d",
			tc.srcWidth, tc.srcHeight)
		assert.InDelta(t, tc.wantScale, r.ScaleFactor(), 1e-5,
			"scale for %dx%d", tc.srcWidth, tc.srcHeight)

		r.Close()
	}
}

func TestPrepareImage(t *testing.T) {

	// a solid red image stays solid red after resampling
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	const size = 4
	dst := make([]float32, size*size*3)

	require.NoError(t, prepareImage(img, size, size, dst))

	for i := 0; i < size*size; i++ {
		assert.InDelta(t, 1.0, dst[i], 1e-3, "red plane at %d", i)
		assert.InDelta(t, 0.0, dst[size*size+i], 1e-3, "green plane at %d", i)
		assert.InDelta(t, 0.0, dst[size*size*2+i], 1e-3, "blue plane at %d", i)
	}
}

func TestPrepareImageShortTensor(t *testing.T) {

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	dst := make([]float32, 10)

	assert.Error(t, prepareImage(img, 4, 4, dst))
}
