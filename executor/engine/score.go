package engine

import (
	"math"

	"github.com/brensch/splash/game"
	"github.com/brensch/splash/rules"
)

const (
	earlyTurns = 4

	// Shots at exactly twice the optimal range are scored pessimistically.
	doubleRangeFactor = 0.3
	farRangeFactor    = 0.5

	// A target on cooldown with no bombs left is expected to hunker.
	turtleProtection = 0.25
	openShotBelow    = 0.76
	wetnessShare     = 0.1

	splashWeight = 30
)

// perspective says whose agents are whose while scoring one sequence.
type perspective struct {
	friends []*game.Agent
	enemies []*game.Agent
	// searcher is true when scoring for the side running the search.
	searcher bool
	// hazards are the searcher's planned splash cells; only the simulated
	// opponent avoids them.
	hazards *cellSet
}

// individual scores one agent's sequence on b without knowing what anyone
// else does this turn.
func (t *turn) individual(b *game.Battlefield, a *game.Agent, seq game.ActionSeq, pv perspective) float64 {
	w := t.w
	sc := 0.0
	pos := seq.Dest
	hunker := seq.Hunkers()

	if !seq.Moved && hunker && b.Turn < earlyTurns {
		sc -= w.EarlyGame
	}

	switch seq.Action.Kind {
	case game.CmdShoot:
		if target := b.Agent(seq.Action.TargetID); target != nil {
			sc += shootValue(b, a, pos, target, w.WastedShoot)
		}
	case game.CmdThrow:
		sc += t.throwValue(b, seq.Action.Target, pv)
	}

	cov := 0.0
	for _, e := range pv.enemies {
		if e.Cooldown != 0 || pos.Manhattan(e.Pos) > e.OptimalRange {
			continue
		}
		cov += b.CoverProtection(pos, e.Pos)
		if hunker {
			cov += rules.HunkerProtection
		}
	}
	sc += cov * w.Cover

	if len(pv.enemies) > 0 {
		minD := math.MaxInt
		for _, e := range pv.enemies {
			if d := pos.Manhattan(e.Pos); d < minD {
				minD = d
			}
		}
		sc -= float64(minD) * w.Proximity
	}

	if hunker {
		sc += w.Hunker
	}

	if !pv.searcher && pv.hazards != nil && pv.hazards.has(pos) {
		sc -= w.HazardZone
	}
	return sc
}

func shootValue(b *game.Battlefield, a *game.Agent, from game.Point, target *game.Agent, wasted float64) float64 {
	d := from.Manhattan(target.Pos)
	raw := float64(a.SoakingPower)
	switch {
	case d <= a.OptimalRange:
	case d == 2*a.OptimalRange:
		raw *= doubleRangeFactor
	default:
		raw *= farRangeFactor
	}
	prot := b.CoverProtection(target.Pos, from)
	if target.Cooldown > 0 && target.SplashBombs == 0 {
		prot += turtleProtection
	}
	dmg := raw * (1 - prot)
	v := dmg
	if prot < openShotBelow {
		v += (float64(target.Wetness) + dmg) * wetnessShare
	}
	if prot >= 1 {
		v -= wasted
	}
	return v
}

func (t *turn) throwValue(b *game.Battlefield, at game.Point, pv perspective) float64 {
	w := t.w
	v := -w.ThrowWaste
	if pv.searcher {
		for _, e := range pv.enemies {
			if e.Pos == at {
				v += w.ThrowCenterHit
				break
			}
		}
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				c := game.Point{X: at.X + dx, Y: at.Y + dy}
				if !b.Grid.Walkable(c) {
					continue
				}
				hit := false
				for _, e := range pv.enemies {
					if e.Pos == c {
						v += w.ThrowAdjacentHit
						hit = true
						break
					}
				}
				if hit {
					continue
				}
				for _, e := range pv.enemies {
					if e.Pos.Manhattan(c) == 1 {
						v += w.ThrowNearEnemy
					}
				}
			}
		}
	} else {
		v += splashWeight * float64(caught(pv.enemies, at))
	}
	v -= splashWeight * float64(caught(pv.friends, at))
	return v
}

func caught(agents []*game.Agent, at game.Point) int {
	n := 0
	for _, a := range agents {
		if a.Pos.Chebyshev(at) <= rules.SplashRadius {
			n++
		}
	}
	return n
}
