package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// HUD draws status text such as the person count and frame rate onto
// frames.  When loaded with a TTF font the text is composited through an
// RGBA overlay, otherwise the built in Hershey font is used.
type HUD struct {
	fnt  Font
	face font.Face
}

// NewHUD returns a HUD rendering with the built in Hershey font
func NewHUD(fnt Font) *HUD {
	return &HUD{fnt: fnt}
}

// NewHUDWithFace returns a HUD rendering with the given TTF font file at
// the given point size
func NewHUDWithFace(fnt Font, ttfFile string, size float64) (*HUD, error) {

	fontBytes, err := os.ReadFile(ttfFile)

	if err != nil {
		return nil, fmt.Errorf("error reading font file: %w", err)
	}

	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("error parsing font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("error creating font face: %w", err)
	}

	return &HUD{fnt: fnt, face: face}, nil
}

// Close releases the font face if one was loaded
func (h *HUD) Close() error {

	if h.face != nil {
		return h.face.Close()
	}

	return nil
}

// Text draws the given text onto the frame with its baseline at (x, y)
func (h *HUD) Text(img *gocv.Mat, text string, x, y int) error {

	if h.face == nil {
		gocv.PutTextWithParams(img, text, image.Pt(x, y),
			h.fnt.Face, h.fnt.Scale, h.fnt.Color, h.fnt.Thickness,
			h.fnt.LineType, false)
		return nil
	}

	// draw the text on a transparent overlay
	rgba := image.NewRGBA(image.Rect(0, 0, img.Cols(), img.Rows()))
	draw.Draw(rgba, rgba.Bounds(),
		image.NewUniform(color.RGBA{0, 0, 0, 0}), image.Point{}, draw.Src)

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(h.fnt.Color),
		Face: h.face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}
	dr.DrawString(text)

	// composite the overlay onto the BGR frame
	overlay, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(),
		rgba.Bounds().Dx(), gocv.MatTypeCV8UC4, rgba.Pix)

	if overlay.Empty() || err != nil {
		return fmt.Errorf("error creating Mat from RGBA overlay")
	}

	defer overlay.Close()

	gocv.CvtColor(overlay, &overlay, gocv.ColorRGBAToBGR)
	gocv.AddWeighted(*img, 1.0, overlay, 1.0, 0, img)

	return nil
}
