package yolo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	personcam "github.com/personvision/go-personcam"
)

// buildOutput assembles a synthetic output tensor with layout
// [4+classNum, anchors] from per anchor columns of cx, cy, w, h and class
// scores
func buildOutput(classNum int, columns [][]float32) []float32 {

	anchors := len(columns)
	data := make([]float32, (4+classNum)*anchors)

	for a, col := range columns {
		for ch, v := range col {
			data[ch*anchors+a] = v
		}
	}

	return data
}

func TestDecodeOutput(t *testing.T) {

	p := decodeParams{
		classNum:   2,
		anchors:    3,
		confThresh: 0.5,
		nmsThresh:  0.45,
	}

	data := buildOutput(2, [][]float32{
		// person at (80,50)-(120,110) with score 0.9
		{100, 80, 40, 60, 0.9, 0.0},
		// second class at (250,250)-(350,350) with score 0.8
		{300, 300, 100, 100, 0.1, 0.8},
		// below the confidence threshold, dropped
		{50, 50, 20, 20, 0.3, 0.2},
	})

	m := mapping{scaleX: 1, scaleY: 1}

	dets := decodeOutput(data, p, m, 640, 640)
	require.Len(t, dets, 2)

	// results are ordered by score after NMS
	assert.Equal(t, 0, dets[0].Class)
	assert.InDelta(t, 0.9, dets[0].Confidence, 1e-5)
	assert.Equal(t, personcam.NewBox(80, 50, 120, 110), dets[0].Box)

	assert.Equal(t, 1, dets[1].Class)
	assert.InDelta(t, 0.8, dets[1].Confidence, 1e-5)
	assert.Equal(t, personcam.NewBox(250, 250, 350, 350), dets[1].Box)
}

func TestDecodeOutputEmpty(t *testing.T) {

	p := decodeParams{
		classNum:   1,
		anchors:    2,
		confThresh: 0.5,
		nmsThresh:  0.45,
	}

	data := buildOutput(1, [][]float32{
		{100, 100, 50, 50, 0.2},
		{200, 200, 50, 50, 0.1},
	})

	dets := decodeOutput(data, p, mapping{scaleX: 1, scaleY: 1}, 640, 640)
	assert.Empty(t, dets)
}

func TestDecodeOutputRawScores(t *testing.T) {

	p := decodeParams{
		classNum:   1,
		anchors:    1,
		confThresh: 0.5,
		nmsThresh:  0.45,
		rawScores:  true,
	}

	// a logit of 2.0 maps to ~0.88 through the sigmoid
	data := buildOutput(1, [][]float32{
		{100, 100, 50, 50, 2.0},
	})

	dets := decodeOutput(data, p, mapping{scaleX: 1, scaleY: 1}, 640, 640)
	require.Len(t, dets, 1)
	assert.InDelta(t, 0.8808, dets[0].Confidence, 1e-3)
}

func TestNMSSuppressesOverlap(t *testing.T) {

	candidates := []candidate{
		{box: personcam.NewBox(0, 0, 100, 100), score: 0.9, class: 0},
		{box: personcam.NewBox(10, 0, 110, 100), score: 0.85, class: 0},
		{box: personcam.NewBox(300, 300, 400, 400), score: 0.7, class: 0},
	}

	keep := nmsCandidates(candidates, 0.45)
	require.Len(t, keep, 2)

	assert.InDelta(t, 0.9, keep[0].score, 1e-5)
	assert.InDelta(t, 0.7, keep[1].score, 1e-5)
}

func TestNMSKeepsDifferentClasses(t *testing.T) {

	// identical boxes of different classes are never suppressed
	candidates := []candidate{
		{box: personcam.NewBox(0, 0, 100, 100), score: 0.9, class: 0},
		{box: personcam.NewBox(0, 0, 100, 100), score: 0.8, class: 1},
	}

	keep := nmsCandidates(candidates, 0.45)
	assert.Len(t, keep, 2)
}

func TestUnmapBoxLetterbox(t *testing.T) {

	// 1280x720 source letterboxed into 640x640 has scale 0.5 and 140px of
	// vertical padding
	m := mapping{scaleX: 0.5, scaleY: 0.5, padX: 0, padY: 140}

	got := unmapBox(personcam.NewBox(100, 240, 200, 340), m, 1280, 720)
	assert.Equal(t, personcam.NewBox(200, 200, 400, 400), got)
}

func TestUnmapBoxClamps(t *testing.T) {

	m := mapping{scaleX: 1, scaleY: 1}

	got := unmapBox(personcam.NewBox(-20, -10, 700, 500), m, 640, 480)
	assert.Equal(t, personcam.NewBox(0, 0, 640, 480), got)
}

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 0.5, sigmoid(0), 1e-6)
	assert.InDelta(t, 1.0, sigmoid(20), 1e-4)
	assert.InDelta(t, 0.0, sigmoid(-20), 1e-4)
}

func TestAnchorCount(t *testing.T) {
	assert.Equal(t, 8400, anchorCount(640, 640))
	assert.Equal(t, 2100, anchorCount(320, 320))
}
