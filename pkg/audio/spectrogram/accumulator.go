package spectrogram

import (
	"fmt"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectral"
)

// Accumulator materializes a Spectrogram
type Accumulator struct {
	order  orderCheck
	result *Spectrogram
	closed bool
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

func (a *Accumulator) Begin(h Header) error {
	if err := a.order.begin(h); err != nil {
		return err
	}
	a.result = &Spectrogram{
		Header: h,
		Frames: make([]*spectral.SpectralFrame, 0, h.ExpectedFrames),
	}
	a.closed = false
	return nil
}

func (a *Accumulator) Accept(frame *spectral.SpectralFrame) error {
	if a.result == nil || a.closed {
		return fmt.Errorf("accumulator not open")
	}
	if err := a.order.check(frame); err != nil {
		return err
	}
	a.result.Frames = append(a.result.Frames, frame)
	return nil
}

func (a *Accumulator) Close() error {
	a.closed = true
	return nil
}

// Spectrogram returns the frames accumulated so far
func (a *Accumulator) Spectrogram() *Spectrogram {
	return a.result
}

// Range returns the global min/max of the accumulated values
func (a *Accumulator) Range() (lo, hi float64, ok bool) {
	if a.result == nil {
		return 0, 0, false
	}
	return a.result.Range()
}

// Forwarder validates ordering and hands each frame downstream as soon as it
// arrives. It retains no frames.
type Forwarder struct {
	order    orderCheck
	next     Sink
	accepted int
}

// NewForwarder creates a forwarder feeding next
func NewForwarder(next Sink) *Forwarder {
	return &Forwarder{next: next}
}

func (f *Forwarder) Begin(h Header) error {
	if err := f.order.begin(h); err != nil {
		return err
	}
	f.accepted = 0
	return f.next.Begin(h)
}

func (f *Forwarder) Accept(frame *spectral.SpectralFrame) error {
	if err := f.order.check(frame); err != nil {
		return err
	}
	f.accepted++
	return f.next.Accept(frame)
}

func (f *Forwarder) Close() error {
	return f.next.Close()
}

// Accepted returns the number of frames forwarded
func (f *Forwarder) Accepted() int {
	return f.accepted
}
