package common

import "time"

// Format identifies an audio container/codec
type Format string

const (
	FormatWAV         Format = "wav"
	FormatFLAC        Format = "flac"
	FormatMP3         Format = "mp3"
	FormatOGG         Format = "ogg"
	FormatAAC         Format = "aac"
	FormatM4A         Format = "m4a"
	FormatOpus        Format = "opus"
	FormatWMA         Format = "wma"
	FormatUnsupported Format = "unsupported"
)

// SampleFormat describes how samples were stored before normalization
type SampleFormat string

const (
	SampleInt8    SampleFormat = "s8"
	SampleInt16   SampleFormat = "s16"
	SampleInt24   SampleFormat = "s24"
	SampleInt32   SampleFormat = "s32"
	SampleFloat32 SampleFormat = "f32"
	SampleFloat64 SampleFormat = "f64"
)

// AudioStream holds fully decoded PCM audio. Samples are planar, one slice
// per channel, normalized to [-1.0, 1.0]. Treat as immutable once returned
// by a decoder.
type AudioStream struct {
	Samples      [][]float64  `json:"-"`
	SampleRate   int          `json:"sample_rate"`
	Channels     int          `json:"channels"`
	Format       Format       `json:"format"`
	SampleFormat SampleFormat `json:"sample_format"`
}

// Frames returns the number of sample frames per channel
func (s *AudioStream) Frames() int {
	if s == nil || len(s.Samples) == 0 {
		return 0
	}
	return len(s.Samples[0])
}

// Duration returns the stream length
func (s *AudioStream) Duration() time.Duration {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(s.Frames()) / float64(s.SampleRate) * float64(time.Second))
}

// Slice returns a stream restricted to frames [start, end). The underlying
// sample buffers are shared, not copied.
func (s *AudioStream) Slice(start, end int) *AudioStream {
	n := s.Frames()
	start = min(max(start, 0), n)
	end = min(max(end, start), n)

	out := *s
	out.Samples = make([][]float64, len(s.Samples))
	for ch := range s.Samples {
		out.Samples[ch] = s.Samples[ch][start:end]
	}
	return &out
}

// NewAudioStream allocates a planar stream of the given shape
func NewAudioStream(sampleRate, channels, frames int) *AudioStream {
	samples := make([][]float64, channels)
	for ch := range samples {
		samples[ch] = make([]float64, frames)
	}
	return &AudioStream{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}
}
