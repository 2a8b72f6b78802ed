package decode

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"

	"github.com/RyanBlaney/sonido-sonar/transcode"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

// TranscodedFormats lists the formats decoded by TranscodeDecoder
func TranscodedFormats() []common.Format {
	return []common.Format{common.FormatAAC, common.FormatM4A, common.FormatOpus, common.FormatWMA}
}

// TranscodeDecoder decodes containers without a native Go decoder by piping
// them through ffmpeg. Output is resampled to the configured rate and
// channel count.
type TranscodeDecoder struct {
	format common.Format
	config *transcode.DecoderConfig
}

// DefaultTranscodeConfig keeps levels untouched and decodes to 44.1 kHz
// stereo
func DefaultTranscodeConfig() *transcode.DecoderConfig {
	config := transcode.DefaultDecoderConfig()
	config.TargetChannels = 2
	config.EnableNormalization = false
	// the soxr resampler is an optional ffmpeg build flag
	config.ResampleQuality = ""
	return config
}

// NewTranscodeDecoder creates an ffmpeg backed decoder reporting format. A nil
// config uses DefaultTranscodeConfig.
func NewTranscodeDecoder(format common.Format, config *transcode.DecoderConfig) *TranscodeDecoder {
	if config == nil {
		config = DefaultTranscodeConfig()
	}
	return &TranscodeDecoder{format: format, config: config}
}

func (d *TranscodeDecoder) Format() common.Format { return d.format }

// Decode hands r to ffmpeg. Files are passed by name so that containers
// needing random access (MP4 with a trailing moov atom) still decode; other
// readers are piped through stdin.
func (d *TranscodeDecoder) Decode(r io.ReadSeeker) (*common.AudioStream, error) {
	data, err := d.run(r)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, common.NewAnalysisError(common.StageDecode, "", common.ErrCodeUnsupportedFormat,
				fmt.Sprintf("decoding %s needs ffmpeg and ffprobe on PATH", d.format), err)
		}
		return nil, corruptError(fmt.Sprintf("ffmpeg could not decode %s input", d.format), err)
	}

	if data.Channels < 1 || data.SampleRate <= 0 {
		return nil, corruptError("ffmpeg returned no usable audio", nil)
	}

	return &common.AudioStream{
		Samples:      deinterleaveFloat64(data.PCM, data.Channels),
		SampleRate:   data.SampleRate,
		Channels:     data.Channels,
		Format:       d.format,
		SampleFormat: common.SampleFloat64,
	}, nil
}

func (d *TranscodeDecoder) run(r io.ReadSeeker) (*transcode.AudioData, error) {
	decoder := transcode.NewDecoder(d.config)
	if f, ok := r.(*os.File); ok {
		return decoder.DecodeFile(f.Name())
	}

	out, err := decoder.DecodeReader(r)
	if err != nil {
		return nil, err
	}
	data, ok := out.(*transcode.AudioData)
	if !ok {
		return nil, fmt.Errorf("unexpected decoder result %T", out)
	}
	return data, nil
}
