package window

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func TestCount(t *testing.T) {
	tests := []struct {
		n, size int
		overlap float64
		want    int
	}{
		{44100, 1024, 0.5, 87},
		{1024, 1024, 0, 1},
		{1025, 1024, 0, 2},
		{10, 1024, 0.5, 1},
		{0, 1024, 0.5, 0},
		{4096, 1024, 0.75, 16},
		{100, 4, 0.99, 100},
	}

	for _, tt := range tests {
		w, err := New(make([]float64, tt.n), tt.size, tt.overlap, Hann)
		require.NoError(t, err)
		hop := w.Hop()
		assert.Equal(t, tt.want, w.Count(), "n=%d size=%d overlap=%g", tt.n, tt.size, tt.overlap)
		if tt.n > 0 {
			assert.Equal(t, int(math.Ceil(float64(tt.n)/float64(hop))), w.Count())
		}
	}
}

func TestHopSize(t *testing.T) {
	assert.Equal(t, 512, HopSize(1024, 0.5))
	assert.Equal(t, 1024, HopSize(1024, 0))
	assert.Equal(t, 256, HopSize(1024, 0.75))
	assert.Equal(t, 1, HopSize(4, 0.99))
}

func TestInvalidParameters(t *testing.T) {
	_, err := New(nil, 0, 0.5, Hann)
	assert.ErrorIs(t, err, common.ErrInvalidWindowSize)

	_, err = New(nil, 1024, 1, Hann)
	assert.ErrorIs(t, err, common.ErrInvalidWindowSize)

	_, err = New(nil, 1024, -0.1, Hann)
	assert.ErrorIs(t, err, common.ErrInvalidWindowSize)

	_, err = NewWithHop(nil, 1024, 0, Hann)
	assert.ErrorIs(t, err, common.ErrInvalidWindowSize)
}

func TestIteratorOffsetsAndPadding(t *testing.T) {
	samples := ones(10)
	w, err := New(samples, 4, 0.5, Rectangular)
	require.NoError(t, err)

	it := w.Iterator()
	var got []Window
	for win, ok := it.Next(); ok; win, ok = it.Next() {
		got = append(got, win)
	}

	require.Len(t, got, 5)
	for i, win := range got {
		assert.Equal(t, i, win.Index)
		assert.Equal(t, i*2, win.Offset)
		assert.Len(t, win.Samples, 4)
	}
	// offset 8 covers samples 8,9 then zero padding
	assert.Equal(t, []float64{1, 1, 0, 0}, got[4].Samples)

	_, ok := it.Next()
	assert.False(t, ok, "iterator must be finite")
	assert.Equal(t, 0, it.Remaining())
}

func TestIteratorRestartable(t *testing.T) {
	samples := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	w, err := New(samples, 4, 0.5, Hann)
	require.NoError(t, err)

	it := w.Iterator()
	var first [][]float64
	for win, ok := it.Next(); ok; win, ok = it.Next() {
		first = append(first, win.Samples)
	}

	it.Reset()
	var second [][]float64
	for win, ok := it.Next(); ok; win, ok = it.Next() {
		second = append(second, win.Samples)
	}

	assert.Equal(t, first, second)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8}, samples, "source buffer must not be modified")
}

func TestWindowFunctionApplied(t *testing.T) {
	w, err := New(ones(8), 8, 0, Hann)
	require.NoError(t, err)

	win := w.At(0)
	// periodic Hann: starts at zero, peaks at size/2
	assert.InDelta(t, 0.0, win.Samples[0], 1e-12)
	assert.InDelta(t, 1.0, win.Samples[4], 1e-12)
	assert.InDelta(t, win.Samples[1], win.Samples[7], 1e-12)
}

func TestCoefficients(t *testing.T) {
	for _, fn := range Functions() {
		t.Run(string(fn), func(t *testing.T) {
			coeffs := Coefficients(fn, 64)
			require.Len(t, coeffs, 64)
			for i, c := range coeffs {
				assert.False(t, math.IsNaN(c), "coefficient[%d]", i)
				assert.LessOrEqual(t, c, 1.0+1e-12)
				assert.GreaterOrEqual(t, c, -1e-12)
			}
		})
	}

	// periodic form: the peak sits at size/2 and the right edge does not
	// repeat the left one
	hamming := Coefficients(Hamming, 64)
	assert.InDelta(t, 0.08, hamming[0], 1e-12)
	assert.InDelta(t, 1.0, hamming[32], 1e-12)
	assert.InDelta(t, hamming[1], hamming[63], 1e-12)

	assert.InDelta(t, 0.5, CoherentGain(Coefficients(Hann, 1024)), 1e-12)
	assert.InDelta(t, 1.0, CoherentGain(Coefficients(Rectangular, 16)), 1e-12)
	assert.Equal(t, 0.0, CoherentGain(nil))
}

func TestParseFunction(t *testing.T) {
	for in, want := range map[string]Function{
		"":                Hann,
		"Hann":            Hann,
		"hanning":         Hann,
		"hamming":         Hamming,
		"blackman":        Blackman,
		"blackman-harris": BlackmanHarris,
		"none":            Rectangular,
	} {
		got, err := ParseFunction(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFunction("kaiser")
	assert.Error(t, err)
}
