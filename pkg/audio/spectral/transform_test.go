package spectral

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/spectrum-analyzer/internal/testutil"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/window"
)

func TestNewTransformRejectsBadSizes(t *testing.T) {
	for _, size := range []int{0, 1, 3, 1000, -8} {
		_, err := NewTransform(Config{WindowSize: size})
		assert.ErrorIs(t, err, common.ErrInvalidWindowSize, "size %d", size)
	}

	tr, err := NewTransform(Config{WindowSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Bins())
}

func TestComputeRejectsMismatchedWindow(t *testing.T) {
	tr, err := NewTransform(Config{WindowSize: 1024})
	require.NoError(t, err)

	_, err = tr.Compute(window.Window{Samples: make([]float64, 512)})
	assert.ErrorIs(t, err, common.ErrInvalidWindowSize)

	var ae *common.AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, common.StageTransform, ae.Stage)
}

func TestBackendFailureIsInternal(t *testing.T) {
	_, err := NewTransform(Config{WindowSize: 1024, Backend: "fftw"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrInvalidWindowSize)

	var ae *common.AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, common.ErrCodeInternal, ae.Code)
	assert.Equal(t, common.StageTransform, ae.Stage)
}

func TestBinCountAndFrequency(t *testing.T) {
	for _, size := range []int{8, 256, 1024, 4096} {
		tr, err := NewTransform(Config{WindowSize: size, SampleRate: 44100})
		require.NoError(t, err)

		frame, err := tr.Compute(window.Window{Samples: make([]float64, size)})
		require.NoError(t, err)
		assert.Equal(t, size/2+1, frame.Bins())
	}

	assert.InDelta(t, 430.6640625, BinFrequency(10, 44100, 1024), 1e-9)
	assert.Equal(t, 22050.0, BinFrequency(512, 44100, 1024))
	assert.Equal(t, 10, NearestBin(440, 44100, 1024))
	assert.Equal(t, 512, NearestBin(30000, 44100, 1024))
	assert.Equal(t, 0, NearestBin(-5, 44100, 1024))
}

func TestSinePeakAtNearestBin(t *testing.T) {
	const (
		sampleRate = 44100
		size       = 1024
	)

	for _, backend := range Backends() {
		t.Run(string(backend), func(t *testing.T) {
			tr, err := NewTransform(Config{WindowSize: size, SampleRate: sampleRate, FloorDB: DefaultFloorDB, Backend: backend})
			require.NoError(t, err)

			for _, freq := range []float64{440, 1000, 5000, 15000} {
				samples := testutil.Sine(freq, sampleRate, sampleRate, 0.8)
				w, err := window.New(samples, size, 0.5, window.Hann)
				require.NoError(t, err)

				want := NearestBin(freq, sampleRate, size)
				it := w.Iterator()
				for win, ok := it.Next(); ok; win, ok = it.Next() {
					if win.Offset+size > len(samples) {
						continue
					}
					frame, err := tr.Compute(win)
					require.NoError(t, err)
					assert.Equal(t, want, PeakBin(frame.Values), "freq %g frame %d", freq, win.Index)
				}
			}
		})
	}
}

func TestSilenceBelowFloor(t *testing.T) {
	tr, err := NewTransform(Config{WindowSize: 512, Scale: ScaleDB, FloorDB: -100})
	require.NoError(t, err)

	frame, err := tr.Compute(window.Window{Samples: testutil.Silence(512)})
	require.NoError(t, err)
	for i, v := range frame.Values {
		assert.LessOrEqual(t, v, -100.0, "bin %d", i)
		assert.False(t, math.IsInf(v, 0), "bin %d", i)
	}
	assert.Equal(t, -100.0, tr.Floor())

	// a 0 dB floor is a real setting, not "unset"
	zero, err := NewTransform(Config{WindowSize: 512, Scale: ScaleDB, FloorDB: 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero.Floor())
	frame, err = zero.Compute(window.Window{Samples: testutil.Silence(512)})
	require.NoError(t, err)
	for i, v := range frame.Values {
		assert.Equal(t, 0.0, v, "bin %d", i)
	}

	mag, err := NewTransform(Config{WindowSize: 512, Scale: ScaleMagnitude})
	require.NoError(t, err)
	frame, err = mag.Compute(window.Window{Samples: testutil.Silence(512)})
	require.NoError(t, err)
	for _, v := range frame.Values {
		assert.Less(t, v, 1e-9)
	}
}

func TestScales(t *testing.T) {
	samples := make([]float64, 8)
	samples[0] = 1 // impulse: flat unit spectrum

	for scale, want := range map[Scale]float64{
		ScaleMagnitude: 1,
		ScalePower:     1,
		ScaleDB:        0,
	} {
		tr, err := NewTransform(Config{WindowSize: 8, Scale: scale})
		require.NoError(t, err)
		frame, err := tr.Compute(window.Window{Samples: samples})
		require.NoError(t, err)
		for i, v := range frame.Values {
			assert.InDelta(t, want, v, 1e-9, "scale %s bin %d", scale, i)
		}
	}
}

func TestBackendsAgree(t *testing.T) {
	const size = 256
	samples := testutil.Sine(1234, 8000, size, 0.5)
	for i := range samples {
		samples[i] += 0.25 * math.Cos(float64(i)*0.7)
	}

	var reference []float64
	for _, backend := range Backends() {
		tr, err := NewTransform(Config{WindowSize: size, Scale: ScaleMagnitude, Backend: backend})
		require.NoError(t, err)
		frame, err := tr.Compute(window.Window{Samples: samples})
		require.NoError(t, err)

		if reference == nil {
			reference = frame.Values
			continue
		}
		require.Len(t, frame.Values, len(reference))
		for k := range reference {
			assert.InDelta(t, reference[k], frame.Values[k], 1e-6, "backend %s bin %d", backend, k)
		}
	}
}

func TestComputeDeterministicAndConcurrent(t *testing.T) {
	tr, err := NewTransform(Config{WindowSize: 1024, SampleRate: 44100, FloorDB: DefaultFloorDB})
	require.NoError(t, err)

	samples := testutil.Sine(440, 44100, 1024, 1)
	want, err := tr.Compute(window.Window{Samples: samples})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]float64, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			frame, err := tr.Compute(window.Window{Samples: samples})
			if err == nil {
				results[i] = frame.Values
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, want.Values, got, "goroutine %d", i)
	}
}

func TestFrameTime(t *testing.T) {
	tr, err := NewTransform(Config{WindowSize: 4, SampleRate: 1000})
	require.NoError(t, err)

	frame, err := tr.Compute(window.Window{Index: 3, Offset: 250, Samples: make([]float64, 4)})
	require.NoError(t, err)
	assert.Equal(t, 3, frame.Index)
	assert.Equal(t, 250, frame.Offset)
	assert.InDelta(t, 0.25, frame.Time, 1e-12)
}

func TestParsers(t *testing.T) {
	scale, err := ParseScale("")
	require.NoError(t, err)
	assert.Equal(t, ScaleDB, scale)
	_, err = ParseScale("bark")
	assert.Error(t, err)

	backend, err := ParseBackend("GONUM")
	require.NoError(t, err)
	assert.Equal(t, BackendGonum, backend)
	_, err = ParseBackend("fftw")
	assert.Error(t, err)

	assert.Equal(t, -1, PeakBin(nil))
	assert.Equal(t, 2, PeakBin([]float64{-3, 1, 7, 6}))
}
