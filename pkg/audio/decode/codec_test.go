package decode

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/spectrum-analyzer/internal/testutil"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

func TestFLACRoundTrip(t *testing.T) {
	left := testutil.Sine(440, 8000, 2500, 0.7)
	right := testutil.Sine(1000, 8000, 2500, 0.3)
	data := testutil.FLACBytes(t, [][]float64{left, right}, 8000)

	stream, err := NewFLACDecoder().Decode(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 8000, stream.SampleRate)
	assert.Equal(t, 2, stream.Channels)
	assert.Equal(t, common.FormatFLAC, stream.Format)
	assert.Equal(t, common.SampleInt16, stream.SampleFormat)
	require.Equal(t, 2500, stream.Frames())
	for i := range left {
		require.InDelta(t, left[i], stream.Samples[0][i], 1e-3, "left %d", i)
		require.InDelta(t, right[i], stream.Samples[1][i], 1e-3, "right %d", i)
	}
}

func TestFLACThroughSource(t *testing.T) {
	path := testutil.WriteFile(t, "tone.flac", testutil.FLACBytes(t, [][]float64{testutil.Sine(440, 8000, 800, 0.5)}, 8000))

	stream, err := NewSource(nil).Open(context.Background(), path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, common.FormatFLAC, stream.Format)
	assert.Equal(t, 800, stream.Frames())
}

func TestFLACForgedSampleCount(t *testing.T) {
	// 42 bytes claiming 2^36-1 samples on 8 channels and carrying no frames
	data := testutil.FLACHeaderBytes(t, 44100, 8, 1<<36-1)

	_, err := NewFLACDecoder().Decode(bytes.NewReader(data))
	assert.ErrorIs(t, err, common.ErrCorruptData)
}

func TestFLACTruncated(t *testing.T) {
	data := testutil.FLACBytes(t, [][]float64{testutil.Sine(440, 8000, 4096, 0.5)}, 8000)

	_, err := NewFLACDecoder().Decode(bytes.NewReader(data[:len(data)/2]))
	assert.ErrorIs(t, err, common.ErrCorruptData)

	_, err = NewFLACDecoder().Decode(bytes.NewReader([]byte("fLaC")))
	assert.ErrorIs(t, err, common.ErrCorruptData)
}

func TestCompressedDecodersRejectBadInput(t *testing.T) {
	garbage := bytes.Repeat([]byte("not audio "), 64)
	// ID3v2 tag claiming 2 KiB that ends after a few bytes
	truncatedMP3 := []byte("ID3\x03\x00\x00\x00\x00\x10\x00abc")
	truncatedOGG := []byte("OggS\x00\x02\x00\x00")

	decoders := map[string]struct {
		decoder AudioDecoder
		inputs  [][]byte
	}{
		"mp3": {NewMP3Decoder(), [][]byte{garbage, truncatedMP3, {}}},
		"ogg": {NewOGGDecoder(), [][]byte{garbage, truncatedOGG, {}}},
	}

	for name, tc := range decoders {
		t.Run(name, func(t *testing.T) {
			for i, input := range tc.inputs {
				_, err := tc.decoder.Decode(bytes.NewReader(input))
				assert.ErrorIs(t, err, common.ErrCorruptData, "input %d", i)
			}
		})
	}
}

func TestExtensibleWAV(t *testing.T) {
	samples := testutil.Sine(440, 8000, 400, 0.5)

	t.Run("pcm", func(t *testing.T) {
		data := testutil.ExtensibleWAVBytes([][]float64{samples}, 8000, testutil.WAVFormatPCM)
		stream, err := NewWAVDecoder().Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, common.SampleInt16, stream.SampleFormat)
		require.Equal(t, 400, stream.Frames())
		for i, v := range samples {
			assert.InDelta(t, v, stream.Samples[0][i], 1e-3, "sample %d", i)
		}
	})

	t.Run("ieee float", func(t *testing.T) {
		data := testutil.ExtensibleWAVBytes([][]float64{samples}, 8000, testutil.WAVFormatIEEEFloat)
		stream, err := NewWAVDecoder().Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, common.SampleFloat32, stream.SampleFormat)
		require.Equal(t, 400, stream.Frames())
		for i, v := range samples {
			assert.InDelta(t, v, stream.Samples[0][i], 1e-6, "sample %d", i)
		}
	})

	t.Run("unknown subformat", func(t *testing.T) {
		// 0x0002 is MS ADPCM
		data := testutil.ExtensibleWAVBytes([][]float64{samples}, 8000, 0x0002)
		_, err := NewWAVDecoder().Decode(bytes.NewReader(data))
		assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	})
}

func TestTranscodeWithoutFFmpeg(t *testing.T) {
	config := DefaultTranscodeConfig()
	config.FFmpegPath = "spectrum-analyzer-missing-ffmpeg"
	config.FFprobePath = "spectrum-analyzer-missing-ffprobe"

	_, err := NewTranscodeDecoder(common.FormatM4A, config).Decode(bytes.NewReader([]byte("\x00\x00\x00\x20ftypM4A ")))
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.ErrorContains(t, err, "ffmpeg")
}

func TestTranscodeProbeFailureIsCorrupt(t *testing.T) {
	falseBin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("no false binary")
	}
	config := DefaultTranscodeConfig()
	config.FFprobePath = falseBin

	_, err = NewTranscodeDecoder(common.FormatAAC, config).Decode(bytes.NewReader([]byte{0xFF, 0xF1, 0x50, 0x80}))
	assert.ErrorIs(t, err, common.ErrCorruptData)
}

func TestTranscodeDecodesFile(t *testing.T) {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not on PATH", bin)
		}
	}

	path := testutil.WriteWAV(t, "tone.wav", [][]float64{testutil.Sine(440, 8000, 8000, 0.5)}, 8000)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	config := DefaultTranscodeConfig()
	config.TargetSampleRate = 8000
	stream, err := NewTranscodeDecoder(common.FormatM4A, config).Decode(f)
	require.NoError(t, err)

	assert.Equal(t, 8000, stream.SampleRate)
	assert.Equal(t, 2, stream.Channels)
	assert.Equal(t, common.FormatM4A, stream.Format)
	assert.InDelta(t, 8000, stream.Frames(), 100)
	for _, ch := range stream.Samples {
		for _, v := range ch {
			require.LessOrEqual(t, v, 1.0)
			require.GreaterOrEqual(t, v, -1.0)
		}
	}
}
