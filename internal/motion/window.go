// Package motion classifies the vertical direction of a tracked joint from a
// short rolling history of its pixel position.
package motion

import "gonum.org/v1/gonum/stat"

// Window is a fixed-capacity ring buffer of samples. Once full, each Push
// evicts the oldest sample.
type Window struct {
	buf   []float64
	start int
	count int
}

// NewWindow creates an empty window holding at most capacity samples.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

// Len returns the number of samples held.
func (w *Window) Len() int {
	return w.count
}

// Push appends v, evicting the oldest sample when full.
func (w *Window) Push(v float64) {
	if w.count < len(w.buf) {
		w.buf[(w.start+w.count)%len(w.buf)] = v
		w.count++
		return
	}
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
}

// Reset drops every sample.
func (w *Window) Reset() {
	w.start = 0
	w.count = 0
}

// At returns the i-th sample, oldest first.
func (w *Window) At(i int) float64 {
	return w.buf[(w.start+i)%len(w.buf)]
}

// Values returns a copy of the samples, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, w.count)
	for i := range out {
		out[i] = w.At(i)
	}
	return out
}

// MeanFirst returns the mean of the n oldest samples.
func (w *Window) MeanFirst(n int) float64 {
	values := w.Values()
	if n > len(values) {
		n = len(values)
	}
	if n <= 0 {
		return 0
	}
	return stat.Mean(values[:n], nil)
}

// MeanLast returns the mean of the n newest samples.
func (w *Window) MeanLast(n int) float64 {
	values := w.Values()
	if n > len(values) {
		n = len(values)
	}
	if n <= 0 {
		return 0
	}
	return stat.Mean(values[len(values)-n:], nil)
}
