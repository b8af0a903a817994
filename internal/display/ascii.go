// SPDX-License-Identifier: MIT
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// shades run from the quietest to the loudest level.
var shades = []rune(" .:-=+*#%@")

// palette colors each shade, dark blue through yellow.
var palette = []lipgloss.Color{
	"#000010", "#0B0B3B", "#1F1F7A", "#3B0F70", "#641A80",
	"#8C2981", "#B73779", "#DE4968", "#F7705C", "#FCFDBF",
}

var axisStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

// RenderASCII draws f as a width x height heatmap, highest frequency on top.
// Each cell shows the loudest value of the bins and frames it covers.
func RenderASCII(f *Frame, width, height int) string {
	var sb strings.Builder
	if f.Bins() == 0 || f.Frames() == 0 || width <= 0 || height <= 0 {
		sb.WriteString(axisStyle.Render("(empty spectrogram)"))
		sb.WriteByte('\n')
		return sb.String()
	}

	width = min(width, f.Frames())
	height = min(height, f.Bins())
	styles := make([]lipgloss.Style, len(palette))
	for i, c := range palette {
		styles[i] = lipgloss.NewStyle().Foreground(c)
	}

	for row := range height {
		// Row 0 is the top of the plot: the highest bins.
		binHi := f.Bins() - row*f.Bins()/height
		binLo := f.Bins() - (row+1)*f.Bins()/height

		sb.WriteString(axisStyle.Render(fmt.Sprintf("%6.0f Hz |", f.FrequenciesHz[binHi-1])))
		for col := range width {
			frameLo := col * f.Frames() / width
			frameHi := (col + 1) * f.Frames() / width
			level := f.Range.Level(f.cellMax(binLo, binHi, frameLo, frameHi))
			idx := min(int(level*float64(len(shades))), len(shades)-1)
			sb.WriteString(styles[idx].Render(string(shades[idx])))
		}
		sb.WriteByte('\n')
	}

	last := f.TimesSec[f.Frames()-1]
	sb.WriteString(axisStyle.Render(fmt.Sprintf("%9s +%s", "", strings.Repeat("-", width))))
	sb.WriteByte('\n')
	sb.WriteString(axisStyle.Render(fmt.Sprintf("%11s0s%*s%.2fs  [%g, %g] dB",
		"", max(width-8, 1), "", last, f.Range.MinDB, f.Range.MaxDB)))
	sb.WriteByte('\n')
	return sb.String()
}

func (f *Frame) cellMax(binLo, binHi, frameLo, frameHi int) float64 {
	best := f.Range.MinDB
	for i := binLo; i < binHi; i++ {
		for j := frameLo; j < frameHi; j++ {
			if v := f.Values[i][j]; v > best {
				best = v
			}
		}
	}
	return best
}
