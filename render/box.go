package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/personvision/go-personcam/tracker"
)

// boxLabel holds the render details of a box label so all labels can be
// drawn in a final pass
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// StableBoxes renders the bounding boxes of stabilized person detections
// with a "Person NN%" label showing the display confidence.  Box color
// follows the tracked object identity.
func StableBoxes(img *gocv.Mat, dets []tracker.StableDetection, font Font,
	lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(dets))

	for _, det := range dets {

		useClr := TrackColor(det.ID)

		// draw rectangle around detected person
		gocv.Rectangle(img, det.Box, useClr, lineThickness)

		// create text for label showing the stabilized confidence
		text := fmt.Sprintf("Person %.0f%%", det.Confidence*100)
		textSize := gocv.GetTextSize(text, font.Face, font.Scale,
			font.Thickness)

		// Calculate the alignment of text label
		var centerX int

		switch font.Alignment {
		case Center:
			centerX = (det.Box.Min.X + det.Box.Max.X) / 2

		case Right:
			centerX = det.Box.Max.X - (textSize.X / 2) - font.RightPad +
				(lineThickness / 2)

		case Left:
			fallthrough
		default:
			centerX = det.Box.Min.X + (textSize.X / 2) + font.LeftPad -
				(lineThickness / 2)
		}

		// Adjust the label position so the text is centered horizontally
		labelPosition := image.Pt(centerX-textSize.X/2,
			det.Box.Min.Y-font.BottomPad)

		// create box for placing text on
		bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
			det.Box.Min.Y-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, det.Box.Min.Y)

		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: labelPosition,
		})
	}

	// draw all precalculated box labels so they are the top most layer on
	// the image and don't get overlapped by neighbouring boxes
	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		// Draw the label over box
		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}
