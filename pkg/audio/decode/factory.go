package decode

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

// AudioDecoder decodes one container/codec into a normalized AudioStream
type AudioDecoder interface {
	Decode(r io.ReadSeeker) (*common.AudioStream, error)
	Format() common.Format
}

// Factory maps formats to decoder constructors
type Factory struct {
	decoders map[common.Format]func() AudioDecoder
	mu       sync.RWMutex
}

// NewFactory creates a new decoder factory with the default decoders
func NewFactory() *Factory {
	f := &Factory{
		decoders: make(map[common.Format]func() AudioDecoder),
	}

	f.RegisterDecoderFactory(common.FormatWAV, func() AudioDecoder { return NewWAVDecoder() })
	f.RegisterDecoderFactory(common.FormatFLAC, func() AudioDecoder { return NewFLACDecoder() })
	f.RegisterDecoderFactory(common.FormatMP3, func() AudioDecoder { return NewMP3Decoder() })
	f.RegisterDecoderFactory(common.FormatOGG, func() AudioDecoder { return NewOGGDecoder() })

	// No native decoder for these; they go through ffmpeg
	for _, format := range TranscodedFormats() {
		f.RegisterDecoderFactory(format, func() AudioDecoder { return NewTranscodeDecoder(format, nil) })
	}

	return f
}

// CreateDecoder creates a decoder for the given format
func (f *Factory) CreateDecoder(format common.Format) (AudioDecoder, error) {
	f.mu.RLock()
	decoderFactory, exists := f.decoders[format]
	f.mu.RUnlock()

	if !exists {
		return nil, common.NewAnalysisError(
			common.StageDecode, "", common.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported audio format: %s", format),
			nil,
		)
	}

	return decoderFactory(), nil
}

// RegisterDecoderFactory registers (or replaces) the constructor for a format
func (f *Factory) RegisterDecoderFactory(format common.Format, factory func() AudioDecoder) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.decoders[format] = factory
}

// SupportedFormats returns the registered formats in sorted order
func (f *Factory) SupportedFormats() []common.Format {
	f.mu.RLock()
	defer f.mu.RUnlock()

	formats := make([]common.Format, 0, len(f.decoders))
	for format := range f.decoders {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}
