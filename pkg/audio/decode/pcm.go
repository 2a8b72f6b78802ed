package decode

import (
	"encoding/binary"
	"math"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

// intScale returns the normalization divisor for signed samples of bitDepth bits
func intScale(bitDepth int) float64 {
	return float64(int64(1) << (bitDepth - 1))
}

// clampUnit keeps fixed-point conversions inside [-1, 1]
func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// deinterleaveInts splits interleaved integer samples into planar float
// channels. Any trailing partial frame is dropped.
func deinterleaveInts(data []int, channels int, convert func(int) float64) [][]float64 {
	frames := len(data) / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}

	for i := range frames {
		base := i * channels
		for ch := range channels {
			out[ch][i] = convert(data[base+ch])
		}
	}
	return out
}

// deinterleaveFloat32 splits interleaved float32 samples into planar channels
func deinterleaveFloat32(data []float32, channels int) [][]float64 {
	frames := len(data) / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}

	for i := range frames {
		base := i * channels
		for ch := range channels {
			out[ch][i] = clampUnit(float64(data[base+ch]))
		}
	}
	return out
}

// deinterleaveFloat64 splits interleaved float64 samples into planar channels
func deinterleaveFloat64(data []float64, channels int) [][]float64 {
	frames := len(data) / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}

	for i := range frames {
		base := i * channels
		for ch := range channels {
			out[ch][i] = clampUnit(data[base+ch])
		}
	}
	return out
}

// convertS16LE converts interleaved 16-bit little-endian PCM bytes to planar
// float channels in [-1.0, 1.0]
func convertS16LE(buffer []byte, channels int) [][]float64 {
	sampleCount := len(buffer) / 2
	samples := make([]int, sampleCount)
	for i := range sampleCount {
		samples[i] = int(int16(binary.LittleEndian.Uint16(buffer[i*2:])))
	}
	return deinterleaveInts(samples, channels, signedConverter(16))
}

// signedConverter returns a converter for signed integer samples
func signedConverter(bitDepth int) func(int) float64 {
	scale := intScale(bitDepth)
	return func(v int) float64 {
		return clampUnit(float64(v) / scale)
	}
}

// unsigned8Converter converts 8-bit unsigned PCM (center 128)
func unsigned8Converter(v int) float64 {
	return clampUnit(float64(v-128) / 128.0)
}

// float32BitsConverter reinterprets 32-bit sample words as IEEE floats
func float32BitsConverter(v int) float64 {
	return clampUnit(float64(math.Float32frombits(uint32(int32(v)))))
}

// sampleFormatForDepth maps an integer bit depth to a SampleFormat
func sampleFormatForDepth(bitDepth int) common.SampleFormat {
	switch bitDepth {
	case 8:
		return common.SampleInt8
	case 16:
		return common.SampleInt16
	case 24:
		return common.SampleInt24
	default:
		return common.SampleInt32
	}
}
