package render

import (
	"image"
	"image/draw"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/note"
)

// labelOctaves are the C octaves marked on the pitch axis
const labelOctaves = 8

// drawLabelBorder paints the pitch label strip left of panel and marks every
// C that lies on the axis
func drawLabelBorder(dst *image.RGBA, panel image.Rectangle, axis FreqAxis) {
	strip := image.Rect(panel.Min.X-LabelWidth, panel.Min.Y, panel.Min.X, panel.Max.Y)
	draw.Draw(dst, strip, image.NewUniform(labelPaper), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelInk),
		Face: basicfont.Face7x13,
	}

	for octave := 0; octave <= labelOctaves; octave++ {
		freq := note.OctaveC(octave)
		if freq < axis.Min || freq > axis.Max {
			continue
		}
		row := axis.Row(freq)
		if row < 0 || row >= axis.Height {
			continue
		}
		y := panel.Min.Y + row

		for x := strip.Min.X; x < strip.Max.X-5; x++ {
			dst.SetRGBA(x, y, labelInk)
		}
		d.Dot = fixed.P(strip.Min.X+5, y+4)
		d.DrawString("C" + strconv.Itoa(octave))
	}
}
