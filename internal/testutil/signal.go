// Package testutil holds deterministic signal and fixture helpers shared by
// package tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
	"github.com/stretchr/testify/require"
)

// Sine returns n samples of a sine at freq Hz with the given amplitude
func Sine(freq float64, sampleRate, n int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// Silence returns n zero samples
func Silence(n int) []float64 {
	return make([]float64, n)
}

// WAVBytes encodes planar channels as a 16-bit PCM RIFF/WAVE file
func WAVBytes(channels [][]float64, sampleRate int) []byte {
	numChans := len(channels)
	frames := 0
	if numChans > 0 {
		frames = len(channels[0])
	}
	dataSize := frames * numChans * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(numChans))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*numChans*2))
	binary.Write(&buf, binary.LittleEndian, uint16(numChans*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for i := range frames {
		for ch := range numChans {
			v := math.Max(-1, math.Min(1, channels[ch][i]))
			binary.Write(&buf, binary.LittleEndian, int16(math.Round(v*32767)))
		}
	}
	return buf.Bytes()
}

// WAV format tags and the leading word of the extensible SubFormat GUID
const (
	WAVFormatPCM        = 1
	WAVFormatIEEEFloat  = 3
	WAVFormatExtensible = 0xFFFE
)

// ExtensibleWAVBytes encodes planar channels as a WAVE_FORMAT_EXTENSIBLE file
// with the given SubFormat. PCM subformats are written as 16-bit integers,
// IEEE float as 32-bit floats.
func ExtensibleWAVBytes(channels [][]float64, sampleRate int, subFormat uint16) []byte {
	numChans := len(channels)
	frames := 0
	if numChans > 0 {
		frames = len(channels[0])
	}
	bits := 16
	if subFormat == WAVFormatIEEEFloat {
		bits = 32
	}
	blockAlign := numChans * bits / 8
	dataSize := frames * blockAlign

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(60+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(40))
	binary.Write(&buf, binary.LittleEndian, uint16(WAVFormatExtensible))
	binary.Write(&buf, binary.LittleEndian, uint16(numChans))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bits))
	binary.Write(&buf, binary.LittleEndian, uint16(22))   // cbSize
	binary.Write(&buf, binary.LittleEndian, uint16(bits)) // valid bits
	binary.Write(&buf, binary.LittleEndian, uint32(0))    // channel mask
	binary.Write(&buf, binary.LittleEndian, subFormat)
	// remainder of the KSDATAFORMAT GUID
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71})

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for i := range frames {
		for ch := range numChans {
			v := math.Max(-1, math.Min(1, channels[ch][i]))
			if subFormat == WAVFormatIEEEFloat {
				binary.Write(&buf, binary.LittleEndian, float32(v))
				continue
			}
			binary.Write(&buf, binary.LittleEndian, int16(math.Round(v*32767)))
		}
	}
	return buf.Bytes()
}

// flacBlockSize is the fixed frame length of FLAC fixtures
const flacBlockSize = 1024

// FLACBytes encodes planar channels as a 16-bit FLAC stream
func FLACBytes(t testing.TB, channels [][]float64, sampleRate int) []byte {
	t.Helper()

	numChans := len(channels)
	frames := len(channels[0])
	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(numChans),
		BitsPerSample: 16,
		NSamples:      uint64(frames),
	}

	var buf bytes.Buffer
	enc, err := flac.NewEncoder(&buf, info)
	require.NoError(t, err)

	layout := frame.ChannelsMono
	if numChans == 2 {
		layout = frame.ChannelsLR
	}
	for start := 0; start < frames; start += flacBlockSize {
		end := min(start+flacBlockSize, frames)
		f := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(end - start),
				SampleRate:        uint32(sampleRate),
				Channels:          layout,
				BitsPerSample:     16,
			},
		}
		for ch := range numChans {
			samples := make([]int32, end-start)
			for i := range samples {
				v := math.Max(-1, math.Min(1, channels[ch][start+i]))
				samples[i] = int32(math.Round(v * 32767))
			}
			f.Subframes = append(f.Subframes, &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   samples,
				NSamples:  len(samples),
			})
		}
		require.NoError(t, enc.WriteFrame(f))
	}
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

// FLACHeaderBytes returns a FLAC signature and STREAMINFO block with no audio
// frames. The sample count is written as given.
func FLACHeaderBytes(t testing.TB, sampleRate, channels int, nsamples uint64) []byte {
	t.Helper()

	var buf bytes.Buffer
	_, err := flac.NewEncoder(&buf, &meta.StreamInfo{
		BlockSizeMin:  4096,
		BlockSizeMax:  4096,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(channels),
		BitsPerSample: 16,
		NSamples:      nsamples,
	})
	require.NoError(t, err)
	return buf.Bytes()
}

// WriteWAV writes a 16-bit PCM WAV fixture under t.TempDir and returns its path
func WriteWAV(t testing.TB, name string, channels [][]float64, sampleRate int) string {
	t.Helper()
	return WriteFile(t, name, WAVBytes(channels, sampleRate))
}

// WriteFile writes raw bytes under t.TempDir and returns the path
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// CorruptWAVBytes returns a WAV whose fmt chunk is garbage
func CorruptWAVBytes() []byte {
	data := WAVBytes([][]float64{Sine(440, 8000, 64, 0.5)}, 8000)
	// RIFF header intact, fmt chunk id and body overwritten
	for i := 12; i < 36; i++ {
		data[i] = 0xAB
	}
	return data
}
