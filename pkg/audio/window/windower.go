// Package window slices a sample series into overlapping, tapered analysis
// windows.
package window

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

// Window is one analysis window. Samples has exactly the windower's size and
// already carries the window function.
type Window struct {
	Index   int
	Offset  int
	Samples []float64
}

// Windower produces windows of a fixed size over an owned sample buffer,
// advancing by Hop samples per step
type Windower struct {
	samples []float64
	size    int
	hop     int
	fn      Function
	coeffs  []float64
}

// HopSize returns round(size*(1-overlap)), at least 1
func HopSize(size int, overlap float64) int {
	return max(int(math.Round(float64(size)*(1-overlap))), 1)
}

// New creates a windower with hop derived from overlap, 0 <= overlap < 1
func New(samples []float64, size int, overlap float64, fn Function) (*Windower, error) {
	if overlap < 0 || overlap >= 1 || math.IsNaN(overlap) {
		return nil, common.NewAnalysisError(common.StageWindow, "", common.ErrCodeInvalidWindowSize,
			fmt.Sprintf("overlap must be in [0, 1): %g", overlap), nil)
	}
	return NewWithHop(samples, size, HopSize(size, overlap), fn)
}

// NewWithHop creates a windower with an explicit hop
func NewWithHop(samples []float64, size, hop int, fn Function) (*Windower, error) {
	if size < 1 {
		return nil, common.NewAnalysisError(common.StageWindow, "", common.ErrCodeInvalidWindowSize,
			fmt.Sprintf("window size must be > 0: %d", size), nil)
	}
	if hop < 1 {
		return nil, common.NewAnalysisError(common.StageWindow, "", common.ErrCodeInvalidWindowSize,
			fmt.Sprintf("hop size must be > 0: %d", hop), nil)
	}
	if fn == "" {
		fn = Hann
	}

	return &Windower{
		samples: samples,
		size:    size,
		hop:     hop,
		fn:      fn,
		coeffs:  Coefficients(fn, size),
	}, nil
}

func (w *Windower) Size() int { return w.size }
func (w *Windower) Hop() int { return w.hop }
func (w *Windower) Function() Function { return w.fn }
func (w *Windower) Coefficients() []float64 { return w.coeffs }

// Count returns ceil(N/hop), or 0 for an empty series
func (w *Windower) Count() int {
	n := len(w.samples)
	if n == 0 {
		return 0
	}
	return (n + w.hop - 1) / w.hop
}

// At returns window i. Samples past the end of the series are zero. The
// returned buffer is freshly allocated so windows can be handed to workers.
func (w *Windower) At(i int) Window {
	offset := i * w.hop
	buf := make([]float64, w.size)
	if offset < len(w.samples) {
		copy(buf, w.samples[offset:])
	}
	vecmath.MulBlockInPlace(buf, w.coeffs)

	return Window{
		Index:   i,
		Offset:  offset,
		Samples: buf,
	}
}

// Iterator returns a lazy iterator positioned at the first window
func (w *Windower) Iterator() *Iterator {
	return &Iterator{w: w, total: w.Count()}
}

// Iterator walks the windows of a Windower in order
type Iterator struct {
	w     *Windower
	next  int
	total int
}

// Next returns the next window, or false once every window was produced
func (it *Iterator) Next() (Window, bool) {
	if it.next >= it.total {
		return Window{}, false
	}
	win := it.w.At(it.next)
	it.next++
	return win, true
}

// Reset rewinds to the first window
func (it *Iterator) Reset() {
	it.next = 0
}

// Remaining returns the number of windows not yet produced
func (it *Iterator) Remaining() int {
	return it.total - it.next
}
