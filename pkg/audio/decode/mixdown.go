package decode

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

// Mixdown selects how multi-channel audio becomes the series to analyze
type Mixdown string

const (
	// MixdownAverage averages all channels into one mono series
	MixdownAverage Mixdown = "average"
	// MixdownFirst keeps only the first channel
	MixdownFirst Mixdown = "first"
	// MixdownPerChannel analyzes every channel separately
	MixdownPerChannel Mixdown = "per-channel"
)

// ParseMixdown parses a mixdown policy name
func ParseMixdown(s string) (Mixdown, error) {
	switch m := Mixdown(strings.ToLower(strings.TrimSpace(s))); m {
	case MixdownAverage, MixdownFirst, MixdownPerChannel:
		return m, nil
	case "", "mono":
		return MixdownAverage, nil
	default:
		return "", fmt.Errorf("unknown mixdown policy %q (average, first, per-channel)", s)
	}
}

// Downmix returns the sample series to analyze: one series for average or
// first, one per channel for per-channel. Averaging divides by the channel
// count so the result stays in [-1, 1].
func Downmix(stream *common.AudioStream, policy Mixdown) ([][]float64, error) {
	if stream == nil || len(stream.Samples) == 0 {
		return [][]float64{{}}, nil
	}

	switch policy {
	case MixdownFirst:
		return [][]float64{stream.Samples[0]}, nil
	case MixdownPerChannel:
		return stream.Samples, nil
	case MixdownAverage, "":
		if len(stream.Samples) == 1 {
			return [][]float64{stream.Samples[0]}, nil
		}
		frames := stream.Frames()
		mono := make([]float64, frames)
		inv := 1.0 / float64(len(stream.Samples))
		for _, ch := range stream.Samples {
			for i := range frames {
				mono[i] += ch[i]
			}
		}
		for i := range mono {
			mono[i] *= inv
		}
		return [][]float64{mono}, nil
	default:
		return nil, fmt.Errorf("unknown mixdown policy %q", policy)
	}
}
