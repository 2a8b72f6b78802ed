package decode

import (
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

// go-mp3 always emits interleaved 16-bit little-endian stereo
const mp3Channels = 2

// MP3Decoder decodes MPEG-1/2 Layer III files
type MP3Decoder struct{}

// NewMP3Decoder creates a new MP3 decoder
func NewMP3Decoder() *MP3Decoder {
	return &MP3Decoder{}
}

func (d *MP3Decoder) Format() common.Format { return common.FormatMP3 }

// Decode reads the entire stream
func (d *MP3Decoder) Decode(r io.ReadSeeker) (*common.AudioStream, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, corruptError("failed to decode MP3 header", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, corruptError("failed to decode MP3 frames", err)
	}

	return &common.AudioStream{
		Samples:      convertS16LE(pcm, mp3Channels),
		SampleRate:   decoder.SampleRate(),
		Channels:     mp3Channels,
		Format:       common.FormatMP3,
		SampleFormat: common.SampleInt16,
	}, nil
}
