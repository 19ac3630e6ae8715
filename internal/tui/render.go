// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"consolefft/internal/analysis"
)

// Glyphs used to draw bars and traces.
const (
	BlockFull  = '█'
	BlockSmall = '■'
	Dot        = '·'
	blank      = ' '
)

// CharMode selects how many glyphs are used.
type CharMode int

const (
	CharSimple   CharMode = iota // Full blocks only.
	CharMultiple                 // Full block, small square or dot by row.
)

func (c CharMode) String() string {
	if c == CharMultiple {
		return "Multiple"
	}
	return "Simple"
}

// ParseCharMode accepts "simple" or "multiple" in any case.
func ParseCharMode(s string) (CharMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple":
		return CharSimple, nil
	case "multiple":
		return CharMultiple, nil
	}
	return CharSimple, fmt.Errorf("unknown char mode %q", s)
}

// Canvas is a fixed-size grid of runes addressed with (0,0) at the top
// left.
type Canvas struct {
	width, height int
	cells         []rune
	sb            strings.Builder
}

// NewCanvas returns a blank canvas. Negative sizes are treated as zero.
func NewCanvas(width, height int) *Canvas {
	width, height = max(width, 0), max(height, 0)
	c := &Canvas{width: width, height: height, cells: make([]rune, width*height)}
	c.Clear()
	return c
}

func (c *Canvas) Width() int  { return c.width }
func (c *Canvas) Height() int { return c.height }

// Clear fills the canvas with spaces.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = blank
	}
}

// Set writes r at (x, y). Writes outside the canvas are ignored.
func (c *Canvas) Set(x, y int, r rune) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	c.cells[y*c.width+x] = r
}

// At returns the rune at (x, y), or 0 outside the canvas.
func (c *Canvas) At(x, y int) rune {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return 0
	}
	return c.cells[y*c.width+x]
}

// WriteString writes s on row y starting at column x, clipped to the
// canvas.
func (c *Canvas) WriteString(x, y int, s string) {
	for _, r := range s {
		c.Set(x, y, r)
		x++
	}
}

// String returns the rows joined by newlines.
func (c *Canvas) String() string {
	c.sb.Reset()
	c.sb.Grow(len(c.cells)*3 + c.height)
	for y := range c.height {
		if y > 0 {
			c.sb.WriteByte('\n')
		}
		for _, r := range c.cells[y*c.width : (y+1)*c.width] {
			c.sb.WriteRune(r)
		}
	}
	return c.sb.String()
}

// DrawSpectrum draws one bar per bin of averages. Each bin is projected
// with m; the columns between two successive projected x positions are
// filled to the height of the left-hand bin. In CharMultiple the glyph
// depends on the row: full blocks in the bottom fifth, small squares down
// to 30% of the height, dots above.
func DrawSpectrum(c *Canvas, m *analysis.Mapper, averages []float64, scale float64, mode CharMode) {
	w, h := c.width, c.height
	if w == 0 || h == 0 {
		return
	}
	h1, h2 := int(float64(h)*0.8), int(float64(h)*0.3)

	var lastX, lastY int
	for bin, avg := range averages {
		x, y := m.Project(bin, avg, w, h, scale)

		if bin > 0 {
			v := min(h, lastY)
			for xi := lastX; xi < x && xi < w; xi++ {
				for yi := h - v; yi < h; yi++ {
					glyph := BlockFull
					if mode == CharMultiple {
						switch {
						case yi > h1:
							glyph = BlockFull
						case yi > h2:
							glyph = BlockSmall
						default:
							glyph = Dot
						}
					}
					c.Set(xi, yi, glyph)
				}
			}
		}
		lastX, lastY = x, y
	}
}

// WaveformFactor converts a waveform scale to the sample value that spans
// half the canvas height.
func WaveformFactor(scale float64) float64 {
	return 32767 / (scale * 40000)
}

// DrawWaveform draws samples as a trace across the full width, centred
// vertically. Successive points are joined with four interpolation steps.
// The two bottom rows are left free. In CharMultiple the glyph depends on
// the distance from the centre line.
func DrawWaveform(c *Canvas, samples []float64, scale float64, mode CharMode) {
	w, h := c.width, c.height
	n := len(samples)
	if w == 0 || h == 0 || n == 0 {
		return
	}
	ch2, ch3, limit := h/2, h/4, h-2
	f := WaveformFactor(scale)

	lx, ly := 0, ch2
	for i, s := range samples {
		x := int(float64(i) / float64(n) * float64(w))
		y := int(s/f*float64(ch2) + float64(ch2))

		for p := 0.0; p < 1; p += 0.25 {
			tx, ty := lerp(lx, x, p), lerp(ly, y, p)
			if ty >= 0 && ty < limit {
				glyph := BlockFull
				if mode == CharMultiple {
					switch {
					case ty < ch3 || ty > h-ch3:
						glyph = Dot
					case ty < ch2-ch3+4 || ty > ch2+ch3-4:
						glyph = BlockSmall
					default:
						glyph = BlockFull
					}
				}
				c.Set(tx, ty, glyph)
			}
			if tx == x && ty == y {
				break
			}
		}
		lx, ly = x, y
	}
}

func lerp(start, end int, t float64) int {
	return int(float64(start) + t*float64(end-start))
}

// HelpLines returns the key help shown over the graph.
func HelpLines(scaleFFT, scaleWave float64, charMode CharMode, mode analysis.Mode) []string {
	return []string{
		fmt.Sprintf("[+][-]  ScaleFFT: %.8f", scaleFFT),
		fmt.Sprintf("[+][-]  ScaleWav: %.8f", scaleWave),
		fmt.Sprintf("[C]     Style:    %s", charMode),
		fmt.Sprintf("[SPACE] Mode:     %s", modeName(mode)),
		"[ESC]   Exit",
	}
}

func modeName(m analysis.Mode) string {
	if m == analysis.ModeWaveform {
		return "Waveform"
	}
	return "FFT"
}

// DrawHelp writes lines from the top left corner.
func DrawHelp(c *Canvas, lines []string) {
	for y, line := range lines {
		c.WriteString(0, y, line)
	}
}
