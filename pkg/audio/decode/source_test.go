package decode

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RyanBlaney/spectrum-analyzer/internal/testutil"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

type SourceTestSuite struct {
	suite.Suite
	source *Source
	ctx    context.Context
}

func (s *SourceTestSuite) SetupTest() {
	s.source = NewSource(nil)
	s.ctx = context.Background()
}

func (s *SourceTestSuite) TestDecodeMonoWAV() {
	samples := testutil.Sine(440, 8000, 800, 0.5)
	path := testutil.WriteWAV(s.T(), "mono.wav", [][]float64{samples}, 8000)

	stream, err := s.source.Open(s.ctx, path, DefaultOptions())
	s.Require().NoError(err)

	s.Equal(8000, stream.SampleRate)
	s.Equal(1, stream.Channels)
	s.Equal(common.FormatWAV, stream.Format)
	s.Equal(common.SampleInt16, stream.SampleFormat)
	s.Require().Equal(800, stream.Frames())
	for i, v := range samples {
		s.InDelta(v, stream.Samples[0][i], 1e-3, "sample %d", i)
	}
}

func (s *SourceTestSuite) TestDecodeStereoWAVIsPlanar() {
	left := testutil.Sine(440, 8000, 100, 0.9)
	right := testutil.Silence(100)
	path := testutil.WriteWAV(s.T(), "stereo.wav", [][]float64{left, right}, 8000)

	stream, err := s.source.Open(s.ctx, path, DefaultOptions())
	s.Require().NoError(err)

	s.Require().Len(stream.Samples, 2)
	s.InDelta(left[25], stream.Samples[0][25], 1e-3)
	s.Equal(0.0, stream.Samples[1][25])
	for _, ch := range stream.Samples {
		for _, v := range ch {
			s.LessOrEqual(v, 1.0)
			s.GreaterOrEqual(v, -1.0)
		}
	}
}

func (s *SourceTestSuite) TestHeaderSniffWithoutExtension() {
	path := testutil.WriteFile(s.T(), "noext", testutil.WAVBytes([][]float64{testutil.Silence(10)}, 8000))

	stream, err := s.source.Open(s.ctx, path, DefaultOptions())
	s.Require().NoError(err)
	s.Equal(common.FormatWAV, stream.Format)
	s.Equal(10, stream.Frames())
}

func (s *SourceTestSuite) TestEmptyWAV() {
	path := testutil.WriteWAV(s.T(), "empty.wav", [][]float64{{}}, 44100)

	stream, err := s.source.Open(s.ctx, path, DefaultOptions())
	s.Require().NoError(err)
	s.Equal(0, stream.Frames())
	s.Equal(44100, stream.SampleRate)
	s.Equal(1, stream.Channels)
}

func (s *SourceTestSuite) TestCorruptHeader() {
	path := testutil.WriteFile(s.T(), "corrupt.wav", testutil.CorruptWAVBytes())

	_, err := s.source.Open(s.ctx, path, DefaultOptions())
	s.Require().Error(err)
	s.ErrorIs(err, common.ErrCorruptData)

	var ae *common.AnalysisError
	s.Require().True(errors.As(err, &ae))
	s.Equal(common.StageDecode, ae.Stage)
	s.Equal(path, ae.Path)
}

func (s *SourceTestSuite) TestTruncatedData() {
	data := testutil.WAVBytes([][]float64{testutil.Sine(440, 8000, 400, 0.5)}, 8000)
	path := testutil.WriteFile(s.T(), "truncated.wav", data[:len(data)-200])

	_, err := s.source.Open(s.ctx, path, DefaultOptions())
	s.ErrorIs(err, common.ErrCorruptData)
}

func (s *SourceTestSuite) TestUnsupportedFormat() {
	path := testutil.WriteFile(s.T(), "notes.txt", []byte("definitely not audio"))

	_, err := s.source.Open(s.ctx, path, DefaultOptions())
	s.ErrorIs(err, common.ErrUnsupportedFormat)
	s.Contains(err.Error(), path)
}

func (s *SourceTestSuite) TestMissingFile() {
	path := filepath.Join(s.T().TempDir(), "missing.wav")

	_, err := s.source.Open(s.ctx, path, DefaultOptions())
	s.ErrorIs(err, common.ErrIO)
	s.Contains(err.Error(), "decode failed for "+path)
}

func (s *SourceTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.source.Open(ctx, "whatever.wav", DefaultOptions())
	s.ErrorIs(err, context.Canceled)
}

func (s *SourceTestSuite) TestTrimOnOpen() {
	path := testutil.WriteWAV(s.T(), "long.wav", [][]float64{testutil.Silence(8000)}, 8000)

	stream, err := s.source.Open(s.ctx, path, Options{StartTime: 0.25, Duration: 0.5})
	s.Require().NoError(err)
	s.Equal(4000, stream.Frames())
}

func TestSourceTestSuite(t *testing.T) {
	suite.Run(t, new(SourceTestSuite))
}

func TestTrim(t *testing.T) {
	stream := common.NewAudioStream(1000, 2, 1000)

	tests := []struct {
		name string
		opts Options
		want int
	}{
		{"whole stream", DefaultOptions(), 1000},
		{"start only", Options{StartTime: 0.1, Duration: -1}, 900},
		{"duration only", Options{Duration: 0.2}, 200},
		{"start and duration", Options{StartTime: 0.5, Duration: 0.25}, 250},
		{"duration past end", Options{StartTime: 0.9, Duration: 5}, 100},
		{"start past end", Options{StartTime: 2, Duration: -1}, 0},
		{"zero duration", Options{Duration: 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Trim(stream, tt.opts)
			assert.Equal(t, tt.want, got.Frames())
			assert.Len(t, got.Samples, 2)
		})
	}
}

func TestDownmix(t *testing.T) {
	stream := &common.AudioStream{
		Samples:    [][]float64{{1, 1, -1}, {1, -1, -1}},
		SampleRate: 8000,
		Channels:   2,
	}

	series, err := Downmix(stream, MixdownAverage)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, []float64{1, 0, -1}, series[0], "averaging must not clip")

	series, err = Downmix(stream, MixdownFirst)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 1, -1}}, series)

	series, err = Downmix(stream, MixdownPerChannel)
	require.NoError(t, err)
	assert.Len(t, series, 2)

	_, err = Downmix(stream, "sum")
	assert.Error(t, err)

	series, err = Downmix(common.NewAudioStream(8000, 2, 0), MixdownAverage)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Empty(t, series[0])
}

func TestParseMixdown(t *testing.T) {
	for in, want := range map[string]Mixdown{
		"":            MixdownAverage,
		"mono":        MixdownAverage,
		"Average":     MixdownAverage,
		"first":       MixdownFirst,
		"per-channel": MixdownPerChannel,
	} {
		got, err := ParseMixdown(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMixdown("sum")
	assert.Error(t, err)
}
