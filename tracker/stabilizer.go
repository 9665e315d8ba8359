package tracker

import (
	"image"
	"time"

	personcam "github.com/personvision/go-personcam"
)

const (
	// DefaultIoUThreshold is the minimum Intersection over Union required
	// for a detection to match an existing tracked object.  The comparison
	// is strict, an IoU exactly at the threshold does not match.
	DefaultIoUThreshold = float32(0.5)
	// DefaultSmoothing is the exponential smoothing factor applied to
	// bounding box coordinates.  Lower values are smoother and slower to
	// follow movement, higher values are more responsive but jittery.
	DefaultSmoothing = float32(0.3)
	// DefaultConfInterval is the minimum time between updates of the
	// displayed confidence value for a tracked object
	DefaultConfInterval = 250 * time.Millisecond
)

// Config defines the tunable parameters of a Stabilizer
type Config struct {
	// IoUThreshold is the matching threshold, strict greater than
	IoUThreshold float32
	// Smoothing is the bounding box EMA factor in the range (0,1]
	Smoothing float32
	// ConfInterval throttles how often the displayed confidence of a
	// tracked object may change
	ConfInterval time.Duration
	// PersonClass is the detection class index to track, all other
	// classes are discarded
	PersonClass int
}

// DefaultConfig returns a Config with the default threshold, smoothing
// factor, confidence interval, and COCO person class
func DefaultConfig() Config {
	return Config{
		IoUThreshold: DefaultIoUThreshold,
		Smoothing:    DefaultSmoothing,
		ConfInterval: DefaultConfInterval,
		PersonClass:  personcam.PersonClassID,
	}
}

// StableDetection is a per frame stabilized detection result ready for
// rendering
type StableDetection struct {
	// ID is the identity of the tracked object the detection belongs to,
	// unique for the lifetime of the Stabilizer
	ID int64
	// Box is the smoothed bounding box rounded to pixel coordinates
	Box image.Rectangle
	// Confidence is the displayed confidence, updated at most once per
	// ConfInterval and so distinct from the raw model confidence
	Confidence float32
	// Class is the detection class index
	Class int
}

// track holds the state of one tracked object between frames
type track struct {
	id int64
	// box is the smoothed bounding box kept in floating point so repeated
	// smoothing does not accumulate rounding error
	box personcam.Box
	// conf is the displayed confidence
	conf float32
	// confUpdated is when conf last changed
	confUpdated time.Time
	class       int
}

// Stabilizer transforms a jittery per frame detection set into a temporally
// stable overlay.  It matches detections to objects tracked in the previous
// frame by IoU, smooths box coordinates, and throttles confidence label
// changes.  A tracked object that fails to match in a frame is dropped
// immediately, there is no grace period, and a later detection at the same
// location is treated as a brand new object.
//
// A Stabilizer is not safe for concurrent use, callers must serialize
// calls per instance, typically by confining it to the detection loop.
type Stabilizer struct {
	cfg Config
	// nextID issues monotonically increasing track identities
	nextID int64
	// tracks is kept in creation order so matching is deterministic
	tracks []*track
	last   []StableDetection
}

// NewStabilizer returns a Stabilizer using the given Config.  Zero values
// for IoUThreshold, Smoothing, and ConfInterval are replaced with the
// defaults.
func NewStabilizer(cfg Config) *Stabilizer {

	if cfg.IoUThreshold == 0 {
		cfg.IoUThreshold = DefaultIoUThreshold
	}

	if cfg.Smoothing == 0 {
		cfg.Smoothing = DefaultSmoothing
	}

	if cfg.ConfInterval == 0 {
		cfg.ConfInterval = DefaultConfInterval
	}

	return &Stabilizer{
		cfg: cfg,
	}
}

// Stabilize processes the raw detections for one frame taken at the given
// time and returns the stabilized detections.  Detections of classes other
// than the configured person class are ignored entirely.  The tracked
// object set after the call contains exactly one entry per returned
// detection, objects from the previous frame that received no match are
// dropped.
func (s *Stabilizer) Stabilize(dets []personcam.Detection,
	now time.Time) []StableDetection {

	matched := make([]bool, len(s.tracks))
	next := make([]*track, 0, len(dets))
	out := make([]StableDetection, 0, len(dets))

	for _, det := range dets {

		if det.Class != s.cfg.PersonClass {
			continue
		}

		// find the unclaimed track with the highest IoU above the
		// threshold.  tracks are scanned in creation order and ties keep
		// the first found so matching is deterministic.
		bestIdx := -1
		bestIoU := s.cfg.IoUThreshold

		for i, tr := range s.tracks {

			if matched[i] {
				continue
			}

			if iou := tr.box.IoU(det.Box); iou > bestIoU {
				bestIoU = iou
				bestIdx = i
			}
		}

		var tr *track

		if bestIdx >= 0 {
			// matched an existing object
			matched[bestIdx] = true
			tr = s.tracks[bestIdx]

			// update displayed confidence only if the interval passed
			if now.Sub(tr.confUpdated) > s.cfg.ConfInterval {
				tr.conf = det.Confidence
				tr.confUpdated = now
			}

			// smooth the bounding box every frame regardless of the
			// confidence throttle
			a := s.cfg.Smoothing
			tr.box = personcam.Box{
				X1: tr.box.X1*(1-a) + det.Box.X1*a,
				Y1: tr.box.Y1*(1-a) + det.Box.Y1*a,
				X2: tr.box.X2*(1-a) + det.Box.X2*a,
				Y2: tr.box.Y2*(1-a) + det.Box.Y2*a,
			}
		} else {
			// new object, use the raw detection values
			s.nextID++
			tr = &track{
				id:          s.nextID,
				box:         det.Box,
				conf:        det.Confidence,
				confUpdated: now,
				class:       det.Class,
			}
		}

		next = append(next, tr)
		out = append(out, StableDetection{
			ID:         tr.id,
			Box:        tr.box.Rect(),
			Confidence: tr.conf,
			Class:      tr.class,
		})
	}

	// unmatched tracks from the previous frame are dropped here
	s.tracks = next
	s.last = out

	return out
}

// LastDetections returns the stabilized detections from the most recent
// frame, for collaborators that poll rather than receive a push
func (s *Stabilizer) LastDetections() []StableDetection {
	out := make([]StableDetection, len(s.last))
	copy(out, s.last)
	return out
}

// Count returns the number of tracked people in the most recent frame
func (s *Stabilizer) Count() int {
	return len(s.last)
}

// ActiveTracks returns the number of objects currently being tracked
func (s *Stabilizer) ActiveTracks() int {
	return len(s.tracks)
}

// Reset drops all tracked objects and the last results.  The identity
// counter is not reset, identities remain unique for the lifetime of the
// Stabilizer.
func (s *Stabilizer) Reset() {
	s.tracks = nil
	s.last = nil
}
