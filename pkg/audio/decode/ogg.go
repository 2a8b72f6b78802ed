package decode

import (
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

// oggReadFrames is the per-read buffer size in sample frames
const oggReadFrames = 4096

// OGGDecoder decodes Ogg/Vorbis files
type OGGDecoder struct{}

// NewOGGDecoder creates a new Ogg/Vorbis decoder
func NewOGGDecoder() *OGGDecoder {
	return &OGGDecoder{}
}

func (d *OGGDecoder) Format() common.Format { return common.FormatOGG }

// Decode reads every packet of the first logical stream
func (d *OGGDecoder) Decode(r io.ReadSeeker) (*common.AudioStream, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, corruptError("invalid Ogg/Vorbis header", err)
	}

	channels := reader.Channels()
	sampleRate := reader.SampleRate()
	if channels < 1 || sampleRate <= 0 {
		return nil, corruptError("invalid Vorbis identification header", nil)
	}

	buf := make([]float32, oggReadFrames*channels)
	var interleaved []float32
	for {
		n, err := reader.Read(buf)
		interleaved = append(interleaved, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, corruptError("failed to decode Vorbis packet", err)
		}
	}

	return &common.AudioStream{
		Samples:      deinterleaveFloat32(interleaved, channels),
		SampleRate:   sampleRate,
		Channels:     channels,
		Format:       common.FormatOGG,
		SampleFormat: common.SampleFloat32,
	}, nil
}
