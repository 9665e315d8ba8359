package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"

	"gocv.io/x/gocv"

	personcam "github.com/personvision/go-personcam"
	"github.com/personvision/go-personcam/render"
	"github.com/personvision/go-personcam/yolo"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	modelFile := flag.String("m", "../data/yolov8n.onnx", "YOLOv8 ONNX model file")
	libFile := flag.String("l", "", "Path to onnxruntime shared library, leave empty to use the system search path")
	imgFile := flag.String("i", "../data/people.jpg", "Image file to run person detection on")
	outFile := flag.String("o", "./people-out.jpg", "File to save annotated image to")
	labelFile := flag.String("lbl", "", "Text file of class labels, leave empty to label persons only")

	flag.Parse()

	cfg := yolo.COCOConfig(*modelFile)
	cfg.LibraryPath = *libFile

	det, err := yolo.NewDetector(cfg)

	if err != nil {
		log.Fatalf("Error creating detector: %v", err)
	}

	defer det.Close()

	// load class labels when provided so non-person detections get named
	var labels []string

	if *labelFile != "" {
		labels, err = personcam.LoadLabels(*labelFile)

		if err != nil {
			log.Fatalf("Error loading labels: %v", err)
		}
	}

	f, err := os.Open(*imgFile)

	if err != nil {
		log.Fatalf("Error opening image: %v", err)
	}

	srcImg, _, err := image.Decode(f)
	f.Close()

	if err != nil {
		log.Fatalf("Error decoding image: %v", err)
	}

	dets, err := det.DetectImage(srcImg)

	if err != nil {
		log.Fatalf("Inference failed: %v", err)
	}

	// draw results on the original image
	img := gocv.IMRead(*imgFile, gocv.IMReadColor)

	if img.Empty() {
		log.Fatalf("Error reading image from: %s", *imgFile)
	}

	defer img.Close()

	font := render.DefaultFont()

	for i, d := range dets {

		name := className(labels, d.Class)
		fmt.Printf("%s @ (%d %d %d %d) %f\n", name, int(d.Box.X1),
			int(d.Box.Y1), int(d.Box.X2), int(d.Box.Y2), d.Confidence)

		rect := d.Box.Rect()
		clr := render.TrackColor(int64(i))

		gocv.Rectangle(&img, rect, clr, 2)

		text := fmt.Sprintf("%s %.0f%%", name, d.Confidence*100)
		gocv.PutTextWithParams(&img, text,
			image.Pt(rect.Min.X, rect.Min.Y-4), font.Face, font.Scale,
			font.Color, font.Thickness, font.LineType, false)
	}

	if ok := gocv.IMWrite(*outFile, img); !ok {
		log.Fatalf("Failed to save the image to: %s", *outFile)
	}

	log.Printf("Saved annotated image to %s", *outFile)
}

// className resolves a class ID to a label, falling back to the class
// number when no labels were loaded
func className(labels []string, class int) string {

	if class >= 0 && class < len(labels) {
		return labels[class]
	}

	if class == personcam.PersonClassID {
		return "person"
	}

	return fmt.Sprintf("class %d", class)
}
