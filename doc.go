/*
go-personcam provides the building blocks for a webcam person counting
application.  It combines an ONNX Runtime based YOLO person detector with a
per frame detection stabilizer that smooths bounding boxes and throttles
confidence label updates so the rendered overlay does not flicker at the
model's native inference jitter.

The library is split into subpackages for camera capture, detection
stabilization, overlay rendering, and video/screenshot recording.  See
example code and usage in the example subdirectory.
*/
package personcam
