package yolo

import (
	"sort"

	"github.com/chewxy/math32"

	personcam "github.com/personvision/go-personcam"
)

// decodeParams holds the model parameters needed to decode an output
// tensor
type decodeParams struct {
	classNum   int
	anchors    int
	confThresh float32
	nmsThresh  float32
	rawScores  bool
}

// mapping transforms coordinates from input tensor space back to source
// image space, x_src = (x - padX) / scaleX
type mapping struct {
	scaleX float32
	scaleY float32
	padX   float32
	padY   float32
}

// candidate is a decoded box before Non-Maximum Suppression
type candidate struct {
	box   personcam.Box
	score float32
	class int
}

// decodeOutput converts a YOLOv8 output tensor with layout
// [1, 4+classNum, anchors] into detections in source image coordinates.
// Each anchor column holds cx, cy, w, h followed by the per class scores.
func decodeOutput(data []float32, p decodeParams, m mapping,
	srcW, srcH int) []personcam.Detection {

	var candidates []candidate

	for a := 0; a < p.anchors; a++ {

		// argmax over class scores for this anchor
		bestScore := float32(0)
		bestClass := -1

		for c := 0; c < p.classNum; c++ {

			score := data[(4+c)*p.anchors+a]

			if p.rawScores {
				score = sigmoid(score)
			}

			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}

		if bestScore <= p.confThresh {
			continue
		}

		cx := data[0*p.anchors+a]
		cy := data[1*p.anchors+a]
		w := data[2*p.anchors+a]
		h := data[3*p.anchors+a]

		candidates = append(candidates, candidate{
			box:   personcam.NewBox(cx-w/2, cy-h/2, cx+w/2, cy+h/2),
			score: bestScore,
			class: bestClass,
		})
	}

	if len(candidates) == 0 {
		return nil
	}

	keep := nmsCandidates(candidates, p.nmsThresh)

	detections := make([]personcam.Detection, 0, len(keep))

	for _, c := range keep {
		detections = append(detections, personcam.Detection{
			Box:        unmapBox(c.box, m, srcW, srcH),
			Confidence: c.score,
			Class:      c.class,
		})
	}

	return detections
}

// nmsCandidates runs greedy per class Non-Maximum Suppression, keeping the
// highest scoring box of each cluster of overlapping same class boxes
func nmsCandidates(candidates []candidate, threshold float32) []candidate {

	// highest score first, candidates of equal score keep decode order
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	suppressed := make([]bool, len(candidates))
	keep := make([]candidate, 0, len(candidates))

	for i, c := range candidates {

		if suppressed[i] {
			continue
		}

		keep = append(keep, c)

		for j := i + 1; j < len(candidates); j++ {

			if suppressed[j] || candidates[j].class != c.class {
				continue
			}

			if c.box.IoU(candidates[j].box) > threshold {
				suppressed[j] = true
			}
		}
	}

	return keep
}

// unmapBox transforms a box from input tensor coordinates back to source
// image coordinates, clamped to the image bounds
func unmapBox(b personcam.Box, m mapping, srcW, srcH int) personcam.Box {

	w := float32(srcW)
	h := float32(srcH)

	return personcam.Box{
		X1: clamp((b.X1-m.padX)/m.scaleX, 0, w),
		Y1: clamp((b.Y1-m.padY)/m.scaleY, 0, h),
		X2: clamp((b.X2-m.padX)/m.scaleX, 0, w),
		Y2: clamp((b.Y2-m.padY)/m.scaleY, 0, h),
	}
}

// clamp restricts val to the range [lo, hi]
func clamp(val, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(val, hi))
}

// sigmoid maps a raw logit to the range (0,1)
func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + math32.Exp(-x))
}
