package engine

import (
	"github.com/brensch/splash/game"
	"github.com/brensch/splash/rules"
)

const throwRange = rules.ThrowRange

// throwOffsets are the impact cells reachable from an agent: inside the
// Manhattan diamond of radius 4 but outside the agent's own 3x3 splash.
var throwOffsets = func() []game.Point {
	var out []game.Point
	for dx := -throwRange; dx <= throwRange; dx++ {
		for dy := -throwRange; dy <= throwRange; dy++ {
			if iabs(dx)+iabs(dy) > throwRange {
				continue
			}
			if iabs(dx) <= 1 && iabs(dy) <= 1 {
				continue
			}
			out = append(out, game.Point{X: dx, Y: dy})
		}
	}
	return out
}()

// moveOptions lists where a can stand after its move step: its own cell
// first, then every free walkable orthogonal neighbour.
func moveOptions(g *game.Grid, a *game.Agent, occupied *cellSet) []game.Point {
	out := make([]game.Point, 1, 5)
	out[0] = a.Pos
	for _, d := range game.Orthogonal {
		p := a.Pos.Add(d)
		if g.Walkable(p) && !occupied.has(p) {
			out = append(out, p)
		}
	}
	return out
}

// enumerate builds every candidate sequence for a. The first entry is always
// a plain HUNKER_DOWN in place. targets are the agents a may shoot and
// throwOK filters impact cells.
func enumerate(g *game.Grid, a *game.Agent, occupied *cellSet, targets []*game.Agent, throwOK func(game.Point) bool) []game.ActionSeq {
	out := make([]game.ActionSeq, 0, 32)
	for _, mv := range moveOptions(g, a, occupied) {
		seq := func(c game.Command) game.ActionSeq {
			if mv == a.Pos {
				return game.Stay(mv, c)
			}
			return game.MoveThen(mv, c)
		}
		out = append(out, seq(game.Hunker()))

		if a.Cooldown == 0 {
			for _, t := range targets {
				if d := mv.Manhattan(t.Pos); d > 0 && d <= 2*a.OptimalRange {
					out = append(out, seq(game.Shoot(t.ID)))
				}
			}
		}

		if a.SplashBombs > 0 {
			for _, off := range throwOffsets {
				p := mv.Add(off)
				if !g.InBounds(p) || !throwOK(p) {
					continue
				}
				out = append(out, seq(game.Throw(p)))
			}
		}
	}
	return out
}

// ownThrowFilter accepts impact cells with an enemy in the splash and none
// of the friends in it.
func ownThrowFilter(friends, enemies []*game.Agent) func(game.Point) bool {
	return func(p game.Point) bool {
		for _, f := range friends {
			if f.Pos.Chebyshev(p) <= rules.SplashRadius {
				return false
			}
		}
		for _, e := range enemies {
			if e.Pos.Chebyshev(p) <= rules.SplashRadius {
				return true
			}
		}
		return false
	}
}
