package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/RyanBlaney/latency-benchmark-common/logging"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

// Options restricts the decoded range, in seconds
type Options struct {
	StartTime float64 `json:"start_time"`
	// Duration < 0 reads until the end of the stream
	Duration float64 `json:"duration"`
}

// DefaultOptions decodes the whole file
func DefaultOptions() Options {
	return Options{StartTime: 0, Duration: -1}
}

// Source opens audio files and decodes them with the matching decoder
type Source struct {
	factory *Factory
	logger  logging.Logger
}

// NewSource creates a new audio source. A nil factory uses NewFactory.
func NewSource(factory *Factory) *Source {
	if factory == nil {
		factory = NewFactory()
	}
	return &Source{
		factory: factory,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_source",
		}),
	}
}

// Open decodes path fully. The file handle is released before Open returns,
// on success and on every failure path.
func (s *Source) Open(ctx context.Context, path string, opts Options) (*common.AudioStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(logging.Fields{
		"function": "Open",
		"path":     path,
	})

	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewAnalysisError(common.StageDecode, path, common.ErrCodeIO,
			"failed to open audio file", err)
	}
	defer f.Close()

	header := make([]byte, headerProbeSize)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, common.NewAnalysisError(common.StageDecode, path, common.ErrCodeIO,
			"failed to read audio file", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, common.NewAnalysisError(common.StageDecode, path, common.ErrCodeIO,
			"failed to rewind audio file", err)
	}

	format := DetectFormat(path, header[:n])
	decoder, err := s.factory.CreateDecoder(format)
	if err != nil {
		return nil, common.WithPath(err, path)
	}

	logger.Debug("Decoding audio file", logging.Fields{
		"format": string(format),
	})

	stream, err := decoder.Decode(f)
	if err != nil {
		return nil, common.WithStage(common.WithPath(err, path), common.StageDecode)
	}
	if stream.SampleRate <= 0 || stream.Channels < 1 || len(stream.Samples) != stream.Channels {
		return nil, common.NewAnalysisError(common.StageDecode, path, common.ErrCodeCorruptData,
			fmt.Sprintf("decoder produced invalid stream (rate=%d, channels=%d)", stream.SampleRate, stream.Channels), nil)
	}

	stream = Trim(stream, opts)

	logger.Debug("Audio decoded", logging.Fields{
		"sample_rate": stream.SampleRate,
		"channels":    stream.Channels,
		"frames":      stream.Frames(),
		"duration_s":  stream.Duration().Seconds(),
	})

	return stream, nil
}

// Trim applies the start/duration window of opts to stream. A start past the
// end yields an empty stream.
func Trim(stream *common.AudioStream, opts Options) *common.AudioStream {
	if opts.StartTime <= 0 && opts.Duration < 0 {
		return stream
	}

	rate := float64(stream.SampleRate)
	start := int(math.Round(math.Max(opts.StartTime, 0) * rate))
	end := stream.Frames()
	if opts.Duration >= 0 {
		end = start + int(math.Round(opts.Duration*rate))
	}
	return stream.Slice(start, end)
}
