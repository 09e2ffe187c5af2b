package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/annotate/internal/canvas"
	"github.com/fakeyudi/annotate/internal/geometry"
)

// grid maps an image onto a block of terminal cells. The first and last
// columns sit on the image's left and right edges, the first and last rows on
// its top and bottom, so every edge is reachable with the mouse.
type grid struct {
	x, y          int // screen position of the top-left cell
	cols, rows    int
	width, height int // image size in pixels
}

// sx is the number of image pixels per column.
func (g grid) sx() float64 { return float64(g.width) / float64(max(g.cols-1, 1)) }

// sy is the number of image pixels per row.
func (g grid) sy() float64 { return float64(g.height) / float64(max(g.rows-1, 1)) }

func (g grid) contains(x, y int) bool {
	return x >= g.x && x < g.x+g.cols && y >= g.y && y < g.y+g.rows
}

// toImage converts a screen cell to image coordinates. Cells outside the grid
// snap to its border.
func (g grid) toImage(x, y int) geometry.Point {
	col := min(max(x-g.x, 0), g.cols-1)
	row := min(max(y-g.y, 0), g.rows-1)
	return geometry.Point{X: float64(col) * g.sx(), Y: float64(row) * g.sy()}
}

func (g grid) col(x float64) int {
	return min(max(int(math.Round(x/g.sx())), 0), g.cols-1)
}

func (g grid) row(y float64) int {
	return min(max(int(math.Round(y/g.sy())), 0), g.rows-1)
}

type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellBox
	cellSelected
	cellHandle
	cellActiveHandle
	cellPreview
)

var cellStyles = map[cellKind]lipgloss.Style{
	cellEmpty:        lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
	cellBox:          lipgloss.NewStyle().Foreground(lipgloss.Color("82")),
	cellSelected:     lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
	cellHandle:       lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
	cellActiveHandle: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Reverse(true),
	cellPreview:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
}

type raster struct {
	cols, rows int
	runes      []rune
	kinds      []cellKind
}

func newRaster(cols, rows int) *raster {
	r := &raster{
		cols:  cols,
		rows:  rows,
		runes: make([]rune, cols*rows),
		kinds: make([]cellKind, cols*rows),
	}
	for i := range r.runes {
		r.runes[i] = '·'
	}
	return r
}

func (r *raster) set(col, row int, ch rune, k cellKind) {
	if col < 0 || col >= r.cols || row < 0 || row >= r.rows {
		return
	}
	r.runes[row*r.cols+col] = ch
	r.kinds[row*r.cols+col] = k
}

func (r *raster) rect(c0, r0, c1, r1 int, k cellKind, dashed bool) {
	h, v := '─', '│'
	if dashed {
		h, v = '╌', '╎'
	}
	if c0 == c1 && r0 == r1 {
		r.set(c0, r0, '□', k)
		return
	}
	for c := c0; c <= c1; c++ {
		r.set(c, r0, h, k)
		r.set(c, r1, h, k)
	}
	for row := r0; row <= r1; row++ {
		r.set(c0, row, v, k)
		r.set(c1, row, v, k)
	}
	if c0 < c1 && r0 < r1 {
		r.set(c0, r0, '┌', k)
		r.set(c1, r0, '┐', k)
		r.set(c0, r1, '└', k)
		r.set(c1, r1, '┘', k)
	}
}

func (r *raster) String() string {
	var sb strings.Builder
	for row := 0; row < r.rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		line := r.runes[row*r.cols : (row+1)*r.cols]
		kinds := r.kinds[row*r.cols : (row+1)*r.cols]
		start := 0
		for c := 1; c <= len(line); c++ {
			if c < len(line) && kinds[c] == kinds[start] {
				continue
			}
			sb.WriteString(cellStyles[kinds[start]].Render(string(line[start:c])))
			start = c
		}
	}
	return sb.String()
}

// drawScene rasterizes the scene: unselected boxes first, the selected box on
// top with its corner handles, then any rubber band in progress.
func drawScene(g grid, sc *canvas.Scene, active geometry.Corner) *raster {
	r := newRaster(g.cols, g.rows)
	box := func(b geometry.BBox, k cellKind, dashed bool) {
		r.rect(g.col(b.XMin), g.row(b.YMin), g.col(b.XMax), g.row(b.YMax), k, dashed)
	}

	var selected *canvas.Item
	for _, it := range sc.Items() {
		if it.Selected {
			selected = &it
			continue
		}
		box(it.BBox, cellBox, false)
	}
	if selected != nil {
		b := selected.BBox
		box(b, cellSelected, false)
		for _, c := range []geometry.Corner{geometry.TopLeft, geometry.BottomRight} {
			p := b.TopLeft()
			if c == geometry.BottomRight {
				p = b.BottomRight()
			}
			k := cellHandle
			if c == active {
				k = cellActiveHandle
			}
			r.set(g.col(p.X), g.row(p.Y), '◆', k)
		}
	}
	if b, ok := sc.Preview(); ok {
		box(b, cellPreview, true)
	}
	return r
}
