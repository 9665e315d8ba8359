package capture

import (
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultMaxIndex is the highest device index Scan probes when searching
// for cameras
const DefaultMaxIndex = 10

// Info describes an available capture device
type Info struct {
	// Index is the device index to pass to Open
	Index int
	// Name is a human readable device name
	Name string
	// Width and Height are the native frame resolution
	Width  int
	Height int
}

// Scan probes device indexes from 0 up to maxIndex and returns the cameras
// that opened and delivered a frame.  Devices that open but cannot capture
// are skipped.
func Scan(maxIndex int) []Info {

	if maxIndex <= 0 {
		maxIndex = DefaultMaxIndex
	}

	var cameras []Info

	img := gocv.NewMat()
	defer img.Close()

	for index := 0; index < maxIndex; index++ {

		cap, err := gocv.VideoCaptureDevice(index)

		if err != nil {
			continue
		}

		if !cap.IsOpened() {
			cap.Close()
			continue
		}

		// verify the camera can actually capture frames
		if ok := cap.Read(&img); ok && !img.Empty() {
			cameras = append(cameras, Info{
				Index:  index,
				Name:   fmt.Sprintf("Camera %d", index),
				Width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
				Height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
			})
		}

		cap.Close()
	}

	return cameras
}
