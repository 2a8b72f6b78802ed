package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/riff"
	"github.com/go-audio/wav"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

// WAVE format tags
const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE
)

// WAVDecoder decodes RIFF/WAVE files (integer PCM and 32-bit float, plain or
// WAVE_FORMAT_EXTENSIBLE)
type WAVDecoder struct{}

// NewWAVDecoder creates a new WAV decoder
func NewWAVDecoder() *WAVDecoder {
	return &WAVDecoder{}
}

func (d *WAVDecoder) Format() common.Format { return common.FormatWAV }

// Decode reads the whole data chunk
func (d *WAVDecoder) Decode(r io.ReadSeeker) (*common.AudioStream, error) {
	dec := wav.NewDecoder(r)

	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, corruptError("invalid RIFF/WAVE header", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	sampleRate := int(dec.SampleRate)

	if channels < 1 || sampleRate <= 0 {
		return nil, corruptError(
			fmt.Sprintf("invalid fmt chunk (channels=%d, sample_rate=%d)", channels, sampleRate), nil)
	}

	tag := dec.WavAudioFormat
	if tag == wavFormatExtensible {
		sub, err := extensibleSubFormat(r)
		if err != nil {
			return nil, corruptError("malformed WAVE_FORMAT_EXTENSIBLE fmt chunk", err)
		}
		tag = sub
	}

	isFloat := false
	switch tag {
	case wavFormatPCM:
	case wavFormatIEEEFloat:
		isFloat = true
	default:
		return nil, unsupportedError(fmt.Sprintf("unsupported WAVE format tag 0x%04X", tag))
	}

	var convert func(int) float64
	sampleFormat := sampleFormatForDepth(bitDepth)
	switch {
	case isFloat && bitDepth == 32:
		convert = float32BitsConverter
		sampleFormat = common.SampleFloat32
	case isFloat:
		return nil, unsupportedError(fmt.Sprintf("unsupported float bit depth: %d", bitDepth))
	case bitDepth == 8:
		convert = unsigned8Converter
	case bitDepth == 16 || bitDepth == 24 || bitDepth == 32:
		convert = signedConverter(bitDepth)
	default:
		return nil, corruptError(fmt.Sprintf("invalid bit depth: %d", bitDepth), nil)
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, corruptError("missing or malformed data chunk", err)
	}

	stream := &common.AudioStream{
		SampleRate:   sampleRate,
		Channels:     channels,
		Format:       common.FormatWAV,
		SampleFormat: sampleFormat,
	}

	if dec.PCMSize == 0 {
		stream.Samples = make([][]float64, channels)
		for ch := range stream.Samples {
			stream.Samples[ch] = []float64{}
		}
		return stream, nil
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, corruptError("failed to read PCM data", err)
	}

	expected := dec.PCMSize / (bitDepth / 8)
	if len(buf.Data) < expected {
		return nil, corruptError(
			fmt.Sprintf("truncated data chunk: got %d of %d samples", len(buf.Data), expected), io.ErrUnexpectedEOF)
	}

	stream.Samples = deinterleaveInts(buf.Data, channels, convert)
	return stream, nil
}

// extensibleFmt is the fixed prefix of a WAVE_FORMAT_EXTENSIBLE fmt chunk up
// to the first word of the SubFormat GUID
type extensibleFmt struct {
	FormatTag      uint16
	Channels       uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	ExtensionSize  uint16
	ValidBits      uint16
	ChannelMask    uint32
	SubFormat      uint16
}

// extensibleSubFormat reads the SubFormat of the fmt chunk. go-audio/wav
// skips the extension, so the chunk is located again with a riff parser and
// the reader is returned to where it was.
func extensibleSubFormat(r io.ReadSeeker) (uint16, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	defer r.Seek(pos, io.SeekStart)

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	parser := riff.New(r)
	if err := parser.ParseHeaders(); err != nil {
		return 0, err
	}

	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			return 0, err
		}
		if chunk.ID != riff.FmtID {
			chunk.Drain()
			continue
		}

		var header extensibleFmt
		if chunk.Size < binary.Size(header) {
			return 0, fmt.Errorf("fmt chunk is %d bytes, too short for an extensible header", chunk.Size)
		}
		if err := chunk.ReadLE(&header); err != nil {
			return 0, err
		}
		return header.SubFormat, nil
	}
}

func corruptError(message string, cause error) error {
	return common.NewAnalysisError(common.StageDecode, "", common.ErrCodeCorruptData, message, cause)
}

func unsupportedError(message string) error {
	return common.NewAnalysisError(common.StageDecode, "", common.ErrCodeUnsupportedFormat, message, nil)
}
