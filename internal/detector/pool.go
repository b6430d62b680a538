package detector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/metrics"
)

// ErrPoolClosed is returned when acquiring from a closed Pool.
var ErrPoolClosed = errors.New("detector pool closed")

// Factory creates a new Detector instance.
type Factory func() (Detector, error)

// Pool leases a fixed set of detectors to concurrent callers.
// Detector engines are not reentrant, so each one is held by a single caller at a time.
type Pool struct {
	items  chan Detector
	all    []Detector
	done   chan struct{}
	closed sync.Once

	metrics *metrics.Manager
}

// NewPool creates size detectors with factory. If any creation fails, the
// detectors created so far are closed and the error is returned.
func NewPool(factory Factory, size int) (*Pool, error) {
	if size <= 0 {
		size = 1
	}

	p := &Pool{
		items: make(chan Detector, size),
		done:  make(chan struct{}),
	}

	for i := 0; i < size; i++ {
		d, err := factory()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("create detector %d: %w", i, err)
		}
		p.all = append(p.all, d)
		p.items <- d
	}

	return p, nil
}

// Instrument records leases, detection time and detection errors in m.
// It must be called before the pool is shared.
func (p *Pool) Instrument(m *metrics.Manager) {
	p.metrics = m
}

// Size returns the number of detectors managed by the pool.
func (p *Pool) Size() int {
	return len(p.all)
}

// Acquire blocks until a detector is free, ctx is done, or the pool is closed.
func (p *Pool) Acquire(ctx context.Context) (Detector, error) {
	select {
	case <-p.done:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case d := <-p.items:
		return d, nil
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a detector to the pool.
func (p *Pool) Release(d Detector) {
	if d == nil {
		return
	}
	select {
	case <-p.done:
	case p.items <- d:
	}
}

// Detect runs one detection on a leased detector.
func (p *Pool) Detect(ctx context.Context, frame *gocv.Mat) (*PoseFrame, error) {
	d, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(d)

	if p.metrics == nil {
		return d.Detect(frame)
	}

	p.metrics.GaugeDetectorsInUse.Inc()
	defer p.metrics.GaugeDetectorsInUse.Dec()
	begin := time.Now()

	pose, err := d.Detect(frame)
	p.metrics.HistDetectDuration.Observe(time.Since(begin).Seconds())
	if err != nil {
		p.metrics.CounterDetectorErrors.Inc()
	}
	return pose, err
}

// Close closes every detector. Detectors currently leased are closed too;
// callers must not use them after Close returns.
func (p *Pool) Close() error {
	var errs []error
	p.closed.Do(func() {
		close(p.done)
		for _, d := range p.all {
			if err := d.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
