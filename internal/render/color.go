package render

import (
	"math"
	"slices"
)

// YlGnBu8 is the ColorBrewer YlGnBu sequential palette, light to dark, so the
// darkest blue marks the highest values.
var YlGnBu8 = []string{
	"#ffffd9",
	"#edf8b1",
	"#c7e9b4",
	"#7fcdbb",
	"#41b6c4",
	"#1d91c0",
	"#225ea8",
	"#0c2c84",
}

const (
	// DefaultLowColor shades values below the colour bar range.
	DefaultLowColor = "#F7F6F6"
	// DefaultNaNColor shades values that are not numbers.
	DefaultNaNColor = "gray"
)

// ColorMapper maps numbers in [Low, High] linearly onto a palette.
type ColorMapper struct {
	Low      float64
	High     float64
	Palette  []string
	LowColor string
	NaNColor string
}

// NewColorMapper returns a mapper over the default palette and colours.
func NewColorMapper(low, high float64) ColorMapper {
	return ColorMapper{
		Low:      low,
		High:     high,
		Palette:  slices.Clone(YlGnBu8),
		LowColor: DefaultLowColor,
		NaNColor: DefaultNaNColor,
	}
}

// ColorFor returns the colour for v. Values below Low take LowColor, values
// at or above High take the last palette colour.
func (m ColorMapper) ColorFor(v float64) string {
	n := len(m.Palette)
	switch {
	case n == 0:
		return m.NaNColor
	case math.IsNaN(v):
		return m.NaNColor
	case v < m.Low:
		return m.LowColor
	case v >= m.High || m.High <= m.Low:
		return m.Palette[n-1]
	}
	i := int(float64(n) * (v - m.Low) / (m.High - m.Low))
	return m.Palette[min(i, n-1)]
}

// Boundaries returns the n+1 bin edges of the palette over [Low, High].
func (m ColorMapper) Boundaries() []float64 {
	n := len(m.Palette)
	out := make([]float64, n+1)
	step := (m.High - m.Low) / float64(n)
	for i := range out {
		out[i] = m.Low + step*float64(i)
	}
	out[n] = m.High
	return out
}
