package decode

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

// headerProbeSize is the number of leading bytes inspected by DetectFromHeader.
// It reaches the OpusHead magic of an Ogg stream's first page.
const headerProbeSize = 36

// asfHeaderGUID opens every ASF (WMA) file
var asfHeaderGUID = []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11}

// DetectFormat determines the audio format of path. The file extension wins
// when it is recognized; otherwise the leading header bytes are sniffed.
func DetectFormat(path string, header []byte) common.Format {
	sniffed := DetectFromHeader(header)
	format := DetectFromExtension(path)
	switch {
	case format == common.FormatUnsupported:
		return sniffed
	case format == common.FormatOGG && sniffed == common.FormatOpus:
		// .ogg says nothing about the codec inside
		return common.FormatOpus
	default:
		return format
	}
}

// DetectFromExtension maps a file extension to a format
func DetectFromExtension(path string) common.Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return NormalizeFormatName(ext)
}

// DetectFromHeader sniffs magic bytes
func DetectFromHeader(header []byte) common.Format {
	switch {
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return common.FormatWAV
	case bytes.HasPrefix(header, []byte("fLaC")):
		return common.FormatFLAC
	case bytes.HasPrefix(header, []byte("OggS")) && len(header) >= 36 && bytes.Equal(header[28:36], []byte("OpusHead")):
		return common.FormatOpus
	case bytes.HasPrefix(header, []byte("OggS")):
		return common.FormatOGG
	case len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")):
		return common.FormatM4A
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xF6 == 0xF0:
		// ADTS sync, layer bits zero
		return common.FormatAAC
	case bytes.HasPrefix(header, asfHeaderGUID):
		return common.FormatWMA
	case bytes.HasPrefix(header, []byte("ID3")):
		return common.FormatMP3
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return common.FormatMP3
	default:
		return common.FormatUnsupported
	}
}

// NormalizeFormatName normalizes extension or codec names to a format
func NormalizeFormatName(name string) common.Format {
	name = strings.ToLower(strings.TrimSpace(name))

	switch name {
	case "wav", "wave":
		return common.FormatWAV
	case "flac":
		return common.FormatFLAC
	case "mp3", "mpeg", "mpga":
		return common.FormatMP3
	case "ogg", "oga", "vorbis":
		return common.FormatOGG
	case "aac", "adts":
		return common.FormatAAC
	case "m4a", "mp4", "m4b", "alac":
		return common.FormatM4A
	case "opus":
		return common.FormatOpus
	case "wma", "asf":
		return common.FormatWMA
	default:
		return common.FormatUnsupported
	}
}
