// Package territory measures map control as a nearest-agent contest over the
// empty cells of the grid.
package territory

import (
	"math"

	"github.com/brensch/splash/game"
)

// WoundedWetness is the wetness at which an agent's distances count double.
const WoundedWetness = 50

const unreachable = math.MaxInt32

// Source is an agent projecting control from Pos.
type Source struct {
	Pos     game.Point
	Wetness int
}

func weight(wetness int) int {
	if wetness >= WoundedWetness {
		return 2
	}
	return 1
}

// Sources converts live agents to control sources at their current position.
func Sources(agents []*game.Agent) []Source {
	out := make([]Source, len(agents))
	for i, a := range agents {
		out[i] = Source{Pos: a.Pos, Wetness: a.Wetness}
	}
	return out
}

// Field holds, for every empty cell, the smallest weighted Manhattan distance
// to any of its sources. It is built once and then contested many times.
type Field struct {
	cells []game.Point
	dist  []int
}

// NewField precomputes the distance field of sources over grid.
func NewField(grid *game.Grid, sources []Source) *Field {
	f := &Field{}
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			p := game.Point{X: x, Y: y}
			if grid.At(p) == game.TileEmpty {
				f.cells = append(f.cells, p)
			}
		}
	}
	f.dist = make([]int, len(f.cells))
	for i, c := range f.cells {
		f.dist[i] = nearest(c, sources)
	}
	return f
}

func nearest(c game.Point, sources []Source) int {
	best := unreachable
	for _, s := range sources {
		if d := c.Manhattan(s.Pos) * weight(s.Wetness); d < best {
			best = d
		}
	}
	return best
}

// Cells is the number of empty cells in the field.
func (f *Field) Cells() int { return len(f.cells) }

// Contest returns +1 per empty cell the challengers reach strictly first and
// -1 per cell the field's own sources reach strictly first. Ties count zero.
func (f *Field) Contest(challengers []Source) int {
	diff := 0
	for i, c := range f.cells {
		mine := nearest(c, challengers)
		switch {
		case mine < f.dist[i]:
			diff++
		case f.dist[i] < mine:
			diff--
		}
	}
	return diff
}

// Diff is the territory differential of side a over side b on grid.
func Diff(grid *game.Grid, a, b []Source) int {
	return NewField(grid, b).Contest(a)
}
