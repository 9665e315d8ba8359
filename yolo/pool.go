package yolo

import (
	"sync"
)

// Pool is a simple pool of detector sessions for the same model, allowing
// inference on multiple frames in parallel
type Pool struct {
	detectors chan *Detector
	size      int
	close     sync.Once
}

// NewPool creates a pool of size detector sessions
func NewPool(size int, cfg Config) (*Pool, error) {

	p := &Pool{
		detectors: make(chan *Detector, size),
		size:      size,
	}

	for i := 0; i < size; i++ {
		d, err := NewDetector(cfg)

		if err != nil {
			// close any sessions created before receiving the error
			p.Close()
			return nil, err
		}

		p.Return(d)
	}

	return p, nil
}

// Get takes a detector from the pool, blocking until one is available
func (p *Pool) Get() *Detector {
	return <-p.detectors
}

// Return a detector to the pool
func (p *Pool) Return(d *Detector) {
	select {
	case p.detectors <- d:
	default:
		// pool is full or closed
	}
}

// Close the pool and all detectors in it
func (p *Pool) Close() {
	p.close.Do(func() {
		close(p.detectors)

		for next := range p.detectors {
			_ = next.Close()
		}
	})
}
