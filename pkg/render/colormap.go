package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// lutSize is the number of precomputed colormap entries
const lutSize = 256

type stop struct {
	pos   float64
	color colorful.Color
}

// Colormap maps a normalized level in [0, 1] to a color through a 256 entry
// lookup table
type Colormap struct {
	name string
	lut  [lutSize]color.RGBA
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// jet matches the classic MATLAB/OpenCV layout
var jetStops = []stop{
	{0, colorful.Color{R: 0, G: 0, B: 0.5}},
	{0.125, colorful.Color{R: 0, G: 0, B: 1}},
	{0.375, colorful.Color{R: 0, G: 1, B: 1}},
	{0.625, colorful.Color{R: 1, G: 1, B: 0}},
	{0.875, colorful.Color{R: 1, G: 0, B: 0}},
	{1, colorful.Color{R: 0.5, G: 0, B: 0}},
}

var magmaStops = []stop{
	{0, mustHex("#000004")},
	{0.2, mustHex("#3b0f70")},
	{0.4, mustHex("#8c2981")},
	{0.6, mustHex("#de4968")},
	{0.8, mustHex("#fe9f6d")},
	{1, mustHex("#fcfdbf")},
}

var grayStops = []stop{
	{0, colorful.Color{R: 0, G: 0, B: 0}},
	{1, colorful.Color{R: 1, G: 1, B: 1}},
}

var colormaps = map[string][]stop{
	"jet":   jetStops,
	"magma": magmaStops,
	"gray":  grayStops,
}

// Colormaps lists the available colormap names
func Colormaps() []string {
	return []string{"jet", "magma", "gray"}
}

// NewColormap builds the named colormap. Empty means jet.
func NewColormap(name string) (*Colormap, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		name = "jet"
	case "grey", "grayscale":
		name = "gray"
	}

	stops, ok := colormaps[name]
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q (%s)", name, strings.Join(Colormaps(), ", "))
	}

	cm := &Colormap{name: name}
	for i := range cm.lut {
		c := interpolate(stops, float64(i)/(lutSize-1))
		r, g, b := c.Clamped().RGB255()
		cm.lut[i] = color.RGBA{R: r, G: g, B: b, A: 0xFF}
	}
	return cm, nil
}

func interpolate(stops []stop, t float64) colorful.Color {
	for i := 1; i < len(stops); i++ {
		if t <= stops[i].pos {
			a, b := stops[i-1], stops[i]
			span := b.pos - a.pos
			if span <= 0 {
				return b.color
			}
			return a.color.BlendRgb(b.color, (t-a.pos)/span)
		}
	}
	return stops[len(stops)-1].color
}

// Name returns the colormap name
func (c *Colormap) Name() string { return c.name }

// Index returns the lookup table index for level, clamped to [0, 1]
func (c *Colormap) Index(level float64) int {
	if math.IsNaN(level) || level <= 0 {
		return 0
	}
	if level >= 1 {
		return lutSize - 1
	}
	return int(level * (lutSize - 1))
}

// At returns the color for level
func (c *Colormap) At(level float64) color.RGBA {
	return c.lut[c.Index(level)]
}

// paletteLevels is the number of colormap entries in a Palette; index 0 is
// reserved for the background so the palette fits the 256 color GIF limit
const paletteLevels = lutSize - 1

// Palette returns background followed by paletteLevels colormap entries
func (c *Colormap) Palette(background color.Color) color.Palette {
	p := make(color.Palette, 0, paletteLevels+1)
	p = append(p, background)
	for j := range paletteLevels {
		p = append(p, c.lut[j*(lutSize-1)/(paletteLevels-1)])
	}
	return p
}

// PaletteIndex returns the Palette index for level, never the background
func (c *Colormap) PaletteIndex(level float64) uint8 {
	if math.IsNaN(level) || level <= 0 {
		return 1
	}
	if level >= 1 {
		return paletteLevels
	}
	return uint8(1 + int(level*(paletteLevels-1)))
}
