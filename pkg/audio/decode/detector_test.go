package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		header []byte
		want   common.Format
	}{
		{"wav extension", "song.wav", nil, common.FormatWAV},
		{"upper case extension", "SONG.FLAC", nil, common.FormatFLAC},
		{"mp3 extension", "/tmp/a.mp3", nil, common.FormatMP3},
		{"oga extension", "a.oga", nil, common.FormatOGG},
		{"extension wins over header", "a.ogg", []byte("fLaC\x00\x00\x00\x22"), common.FormatOGG},
		{"riff header", "noext", []byte("RIFF\x24\x00\x00\x00WAVE"), common.FormatWAV},
		{"riff without wave", "noext", []byte("RIFF\x24\x00\x00\x00AVI "), common.FormatUnsupported},
		{"flac magic", "a.bin", []byte("fLaC\x00\x00\x00\x22"), common.FormatFLAC},
		{"ogg magic", "a.bin", []byte("OggS\x00\x02"), common.FormatOGG},
		{"id3 tag", "a.bin", []byte("ID3\x04\x00"), common.FormatMP3},
		{"mpeg sync", "a.bin", []byte{0xFF, 0xFB, 0x90, 0x64}, common.FormatMP3},
		{"ogg opus", "a.bin", oggOpusHeader(), common.FormatOpus},
		{"opus inside .ogg", "a.ogg", oggOpusHeader(), common.FormatOpus},
		{"m4a extension", "a.M4A", nil, common.FormatM4A},
		{"mp4 ftyp", "a.bin", []byte("\x00\x00\x00\x20ftypM4A "), common.FormatM4A},
		{"adts sync", "a.bin", []byte{0xFF, 0xF1, 0x50, 0x80}, common.FormatAAC},
		{"asf guid", "a.bin", []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11, 0xA6}, common.FormatWMA},
		{"unknown", "a.txt", []byte("hello world!"), common.FormatUnsupported},
		{"empty header", "a", nil, common.FormatUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.path, tt.header))
		})
	}
}

func TestNormalizeFormatName(t *testing.T) {
	assert.Equal(t, common.FormatWAV, NormalizeFormatName(" WAVE "))
	assert.Equal(t, common.FormatMP3, NormalizeFormatName("mpeg"))
	assert.Equal(t, common.FormatOGG, NormalizeFormatName("vorbis"))
	assert.Equal(t, common.FormatAAC, NormalizeFormatName("aac"))
	assert.Equal(t, common.FormatOpus, NormalizeFormatName("opus"))
	assert.Equal(t, common.FormatUnsupported, NormalizeFormatName("aiff"))
}

// oggOpusHeader is the first page header of an Ogg stream carrying Opus
func oggOpusHeader() []byte {
	header := make([]byte, headerProbeSize)
	copy(header, "OggS")
	copy(header[28:], "OpusHead")
	return header
}
