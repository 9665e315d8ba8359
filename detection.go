package personcam

import (
	"gocv.io/x/gocv"
)

const (
	// PersonClassID is the class index for "person" in models trained on
	// the COCO dataset
	PersonClassID = 0
)

// Detection represents a single raw object detection produced by a
// Detector for one frame
type Detection struct {
	// Box is the bounding box of the detected object in pixel coordinates
	Box Box
	// Confidence is the model confidence score in the range [0,1]
	Confidence float32
	// Class is the object class index the model was trained with
	Class int
}

// Detector is the interface implemented by object detection backends.  A
// Detector takes a BGR image frame and returns zero or more detections, no
// ordering of results is guaranteed.  Implementations may be swapped
// between frames by the caller.
type Detector interface {
	// Detect runs inference on the given frame
	Detect(img gocv.Mat) ([]Detection, error)
	// Close releases resources used by the detector
	Close() error
}
