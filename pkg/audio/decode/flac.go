package decode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

// flacMaxPrealloc bounds the per-channel capacity reserved from the
// STREAMINFO sample count, which is read from the file and not trusted
const flacMaxPrealloc = 1 << 20

// FLACDecoder decodes native FLAC streams
type FLACDecoder struct{}

// NewFLACDecoder creates a new FLAC decoder
func NewFLACDecoder() *FLACDecoder {
	return &FLACDecoder{}
}

func (d *FLACDecoder) Format() common.Format { return common.FormatFLAC }

// Decode parses every frame of the stream. The reader is not closed; the
// caller owns it.
func (d *FLACDecoder) Decode(r io.ReadSeeker) (*common.AudioStream, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, corruptError("invalid FLAC stream header", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	sampleRate := int(info.SampleRate)
	bitDepth := int(info.BitsPerSample)

	if channels < 1 || sampleRate <= 0 || bitDepth < 4 || bitDepth > 32 {
		return nil, corruptError(fmt.Sprintf(
			"invalid STREAMINFO (channels=%d, sample_rate=%d, bits=%d)", channels, sampleRate, bitDepth), nil)
	}

	convert := signedConverter(bitDepth)
	samples := make([][]float64, channels)
	for ch := range samples {
		samples[ch] = make([]float64, 0, min(info.NSamples, flacMaxPrealloc))
	}

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, corruptError("failed to parse FLAC frame", err)
		}
		if len(frame.Subframes) != channels {
			return nil, corruptError(fmt.Sprintf(
				"frame has %d subframes, expected %d", len(frame.Subframes), channels), nil)
		}

		blockSize := int(frame.BlockSize)
		for ch := range channels {
			sub := frame.Subframes[ch].Samples
			if len(sub) < blockSize {
				return nil, corruptError("short FLAC subframe", io.ErrUnexpectedEOF)
			}
			for i := range blockSize {
				samples[ch] = append(samples[ch], convert(int(sub[i])))
			}
		}
	}

	if info.NSamples > 0 && uint64(len(samples[0])) < info.NSamples {
		return nil, corruptError(fmt.Sprintf(
			"truncated FLAC stream: got %d of %d samples", len(samples[0]), info.NSamples), io.ErrUnexpectedEOF)
	}

	return &common.AudioStream{
		Samples:      samples,
		SampleRate:   sampleRate,
		Channels:     channels,
		Format:       common.FormatFLAC,
		SampleFormat: sampleFormatForDepth(bitDepth),
	}, nil
}
