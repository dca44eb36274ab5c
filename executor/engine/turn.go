package engine

import (
	"github.com/brensch/splash/config"
	"github.com/brensch/splash/game"
	"github.com/brensch/splash/territory"
)

// cellSet is a dense membership set over the grid.
type cellSet struct {
	w, h int
	bits []bool
}

func newCellSet(g *game.Grid) *cellSet {
	return &cellSet{w: g.Width, h: g.Height, bits: make([]bool, g.Width*g.Height)}
}

func (s *cellSet) has(p game.Point) bool {
	if p.X < 0 || p.X >= s.w || p.Y < 0 || p.Y >= s.h {
		return false
	}
	return s.bits[p.Y*s.w+p.X]
}

func (s *cellSet) add(p game.Point) {
	if p.X >= 0 && p.X < s.w && p.Y >= 0 && p.Y < s.h {
		s.bits[p.Y*s.w+p.X] = true
	}
}

func (s *cellSet) remove(p game.Point) {
	if p.X >= 0 && p.X < s.w && p.Y >= 0 && p.Y < s.h {
		s.bits[p.Y*s.w+p.X] = false
	}
}

// addSplash marks the 3x3 block centred on p.
func (s *cellSet) addSplash(p game.Point) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			s.add(game.Point{X: p.X + dx, Y: p.Y + dy})
		}
	}
}

func occupancy(b *game.Battlefield) *cellSet {
	s := newCellSet(b.Grid)
	for i := range b.Agents {
		s.add(b.Agents[i].Pos)
	}
	return s
}

// turn is everything one decision needs. It is built from a private clone of
// the battlefield at the start of every call and thrown away at the end.
type turn struct {
	b       *game.Battlefield
	w       *config.Weights
	mine    []*game.Agent
	enemies []*game.Agent

	enemyField *territory.Field
	danger     *cellSet
	throws     []game.Point

	// Strongest agent of each side by Force, or -1.
	bestEnemy int
	bestAlly  int
}

func newTurn(b *game.Battlefield, w *config.Weights) *turn {
	t := &turn{
		b:         b,
		w:         w,
		mine:      b.Mine(),
		enemies:   b.Enemies(),
		bestEnemy: -1,
		bestAlly:  -1,
	}
	t.enemyField = territory.NewField(b.Grid, territory.Sources(t.enemies))
	t.danger, t.throws = enemyBombReach(b, t.enemies)
	t.bestEnemy = strongest(b, t.enemies)
	t.bestAlly = strongest(b, t.mine)
	return t
}

func strongest(b *game.Battlefield, agents []*game.Agent) int {
	best, bestForce := -1, -1.0
	for _, a := range agents {
		if a.Eliminated() {
			continue
		}
		spec, ok := b.Spec(a.ID)
		if !ok {
			continue
		}
		if f := spec.Force(); f > bestForce {
			best, bestForce = a.ID, f
		}
	}
	return best
}

// enemyBombReach estimates where enemy bombs can land this turn. An enemy may
// throw from where it stands or from any free neighbouring cell, up to
// ThrowRange away. throws lists every reachable impact cell and danger is the
// union of their splash.
func enemyBombReach(b *game.Battlefield, enemies []*game.Agent) (*cellSet, []game.Point) {
	g := b.Grid
	danger := newCellSet(g)
	seen := newCellSet(g)
	var throws []game.Point
	for _, e := range enemies {
		if e.SplashBombs <= 0 {
			continue
		}
		origins := []game.Point{e.Pos}
		for _, d := range game.Orthogonal {
			if p := e.Pos.Add(d); g.Walkable(p) {
				origins = append(origins, p)
			}
		}
		for _, o := range origins {
			for dx := -throwRange; dx <= throwRange; dx++ {
				span := throwRange - iabs(dx)
				for dy := -span; dy <= span; dy++ {
					p := game.Point{X: o.X + dx, Y: o.Y + dy}
					if !g.InBounds(p) {
						continue
					}
					danger.addSplash(p)
					if !seen.has(p) {
						seen.add(p)
						throws = append(throws, p)
					}
				}
			}
		}
	}
	return danger, throws
}

func iabs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
