// Package spectrogram collects spectral frames in time order, either
// materialized for batch rendering or forwarded one at a time.
package spectrogram

import (
	"errors"
	"fmt"
	"math"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectral"
)

// ErrOutOfOrder is returned when a frame arrives with an unexpected index,
// offset or bin count
var ErrOutOfOrder = errors.New("spectral frame out of order")

// Header describes the frames that follow
type Header struct {
	SampleRate int            `json:"sample_rate"`
	WindowSize int            `json:"window_size"`
	HopSize    int            `json:"hop_size"`
	Scale      spectral.Scale `json:"scale"`
	Floor      float64        `json:"floor"`
	Channel    string         `json:"channel,omitempty"`

	// ExpectedFrames is the frame count announced by the producer, 0 if unknown
	ExpectedFrames int `json:"expected_frames"`
}

// Bins returns WindowSize/2+1
func (h Header) Bins() int {
	return h.WindowSize/2 + 1
}

// FrameDuration returns the hop in seconds
func (h Header) FrameDuration() float64 {
	if h.SampleRate <= 0 {
		return 0
	}
	return float64(h.HopSize) / float64(h.SampleRate)
}

// Nyquist returns half the sample rate
func (h Header) Nyquist() float64 {
	return float64(h.SampleRate) / 2
}

// Spectrogram is an ordered sequence of frames, offsets spaced by HopSize
type Spectrogram struct {
	Header
	Frames []*spectral.SpectralFrame `json:"-"`
}

// Len returns the number of frames
func (s *Spectrogram) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Frames)
}

// Range returns the global min and max over every bin of every frame.
// ok is false when the spectrogram holds no values.
func (s *Spectrogram) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, f := range s.Frames {
		for _, v := range f.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0, false
	}
	return lo, hi, true
}

// Sink consumes a spectrogram frame by frame
type Sink interface {
	Begin(h Header) error
	Accept(frame *spectral.SpectralFrame) error
	Close() error
}

// orderCheck enforces strict index order and hop spacing
type orderCheck struct {
	header Header
	next   int
}

func (c *orderCheck) begin(h Header) error {
	if h.WindowSize < 2 || h.HopSize < 1 {
		return fmt.Errorf("invalid spectrogram header (window=%d, hop=%d)", h.WindowSize, h.HopSize)
	}
	c.header = h
	c.next = 0
	return nil
}

func (c *orderCheck) check(f *spectral.SpectralFrame) error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrOutOfOrder)
	}
	if f.Index != c.next {
		return fmt.Errorf("%w: got index %d, want %d", ErrOutOfOrder, f.Index, c.next)
	}
	if want := f.Index * c.header.HopSize; f.Offset != want {
		return fmt.Errorf("%w: frame %d at offset %d, want %d", ErrOutOfOrder, f.Index, f.Offset, want)
	}
	if f.Bins() != c.header.Bins() {
		return fmt.Errorf("%w: frame %d has %d bins, want %d", ErrOutOfOrder, f.Index, f.Bins(), c.header.Bins())
	}
	c.next++
	return nil
}
