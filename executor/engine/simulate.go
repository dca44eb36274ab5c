package engine

import (
	"math"

	"github.com/brensch/splash/game"
	"github.com/brensch/splash/rules"
	"github.com/brensch/splash/territory"
)

// outcome is one fully simulated joint action.
type outcome struct {
	score float64
	// after is the simulated battlefield once both sides have acted. Cooldowns
	// and eliminations have not been ticked yet.
	after *game.Battlefield
}

// collides reports whether two of the sequences end on the same cell. The
// referee cancels every agent sharing a destination, so such joint actions are
// never played.
func collides(seqs []game.ActionSeq) bool {
	for i := range seqs {
		for j := i + 1; j < len(seqs); j++ {
			if seqs[i].Dest == seqs[j].Dest {
				return true
			}
		}
	}
	return false
}

// simulate plays one joint action of the searching side against a greedy
// single-ply reply from every opposing agent and scores the result. seqs is
// indexed like t.mine.
func (t *turn) simulate(seqs []game.ActionSeq) outcome {
	w := t.w
	sim := t.b.Clone()
	me, opp := sim.Me, sim.Opponent()
	mine := sim.Side(me)
	enemies := sim.Side(opp)
	aliveMe, aliveOpp := sim.Alive(me), sim.Alive(opp)

	splashAdj := newCellSet(sim.Grid)
	bombZones := newCellSet(sim.Grid)
	dests := make([]territory.Source, len(mine))
	for i, a := range mine {
		s := seqs[i]
		dests[i] = territory.Source{Pos: s.Dest, Wetness: a.Wetness}
		a.Pos = s.Dest
		a.Hunkered = s.Hunkers()
		splashAdj.addSplash(s.Dest)
		if s.Action.Kind == game.CmdThrow {
			bombZones.addSplash(s.Action.Target)
		}
	}

	// Greedy reply, one opposing agent at a time.
	occ := occupancy(sim)
	pv := perspective{friends: enemies, enemies: mine, hazards: bombZones}
	pending := make([]game.Order, 0, len(enemies))
	for _, e := range enemies {
		cands := enumerate(sim.Grid, e, occ, mine, splashAdj.has)
		best, bestScore := cands[0], math.Inf(-1)
		for _, c := range cands {
			if s := t.individual(sim, e, c, pv); s > bestScore {
				best, bestScore = c, s
			}
		}
		occ.remove(e.Pos)
		e.Pos = best.Dest
		occ.add(e.Pos)
		e.Hunkered = best.Hunkers()
		if best.Action.IsCombat() {
			pending = append(pending, game.Order{AgentID: e.ID, Seq: best})
		}
	}

	for i, a := range mine {
		if seqs[i].Action.IsCombat() {
			rules.ApplyCombat(sim, a.ID, seqs[i].Action)
		}
	}
	for _, o := range pending {
		rules.ApplyCombat(sim, o.AgentID, o.Seq.Action)
	}

	terr := t.enemyField.Contest(dests)
	kills := (aliveOpp - sim.Alive(opp)) - (aliveMe - sim.Alive(me))
	myHealth, oppHealth := sim.TotalHealth(me), sim.TotalHealth(opp)
	maxWet := 0
	for _, e := range enemies {
		if !e.Eliminated() && e.Wetness > maxWet {
			maxWet = e.Wetness
		}
	}

	score := float64(terr)*w.Territory +
		float64(kills)*w.Kill +
		float64(myHealth-oppHealth)*w.HealthDiff +
		float64(maxWet)*w.MaxWetness

	for _, p := range t.throws {
		n := 0
		for _, d := range dests {
			if d.Pos.Chebyshev(p) <= rules.SplashRadius {
				n++
			}
		}
		if n >= 2 {
			score -= w.MultiHit * float64(n)
		}
	}
	for _, d := range dests {
		if t.danger.has(d.Pos) {
			score -= w.DangerZone
		}
	}

	cooldowns := 0
	for _, a := range mine {
		cooldowns += a.Cooldown
	}
	score -= float64(cooldowns) * w.CooldownPenalty

	if e := sim.Agent(t.bestEnemy); e != nil {
		score += float64(e.Wetness) * w.ForecastEnemyWetness
		if e.Eliminated() {
			score += w.ForecastEnemyKill
		}
	}
	if a := sim.Agent(t.bestAlly); a != nil {
		score += float64(a.Health()) * w.ForecastAllyHealth
		if a.Eliminated() {
			score -= w.ForecastAllyLoss
		}
	}

	if myHealth <= 0 {
		score -= w.Death
	}
	if oppHealth <= 0 {
		score += w.Death
	}
	return outcome{score: score, after: sim}
}
