// Package rules resolves a turn of the splash game: simultaneous movement,
// hunkering, shots and splash bombs, cooldowns, eliminations and scoring.
//
// The decision engine's simulator and the match harness share these
// functions so predicted and refereed damage can never drift apart.
package rules

import (
	"fmt"
	"math"

	"github.com/brensch/splash/game"
)

const (
	HunkerProtection = 0.25
	SplashDamage     = 30
	SplashRadius     = 1
	ThrowRange       = 4
)

// RawShotDamage is the damage before cover: full power within optimal range,
// half up to twice the range, nothing beyond.
func RawShotDamage(power, optimalRange, dist int) float64 {
	switch {
	case dist <= optimalRange:
		return float64(power)
	case dist <= 2*optimalRange:
		return float64(power) * 0.5
	default:
		return 0
	}
}

// Damage applies protection to raw damage and rounds up.
func Damage(raw, protection float64) int {
	protection = math.Max(0, math.Min(1, protection))
	return int(math.Ceil(raw * (1 - protection)))
}

// ShotDamage is the wetness attacker adds to target with one SHOOT, taking
// cover and the target's hunker flag into account.
func ShotDamage(b *game.Battlefield, attacker, target *game.Agent) int {
	dist := attacker.Pos.Manhattan(target.Pos)
	prot := b.CoverProtection(target.Pos, attacker.Pos)
	if target.Hunkered {
		prot += HunkerProtection
	}
	return Damage(RawShotDamage(attacker.SoakingPower, attacker.OptimalRange, dist), prot)
}

// ApplyShot resolves a SHOOT. A shot within twice the optimal range puts the
// shooter on cooldown for its base cooldown plus the current turn.
func ApplyShot(b *game.Battlefield, attacker, target *game.Agent) {
	if attacker.Pos.Manhattan(target.Pos) <= 2*attacker.OptimalRange {
		if spec, ok := b.Spec(attacker.ID); ok {
			attacker.Cooldown = spec.ShootCooldown + 1
		}
	}
	target.Wetness += ShotDamage(b, attacker, target)
}

// ApplyThrow resolves a THROW: one bomb is spent and every agent within
// Chebyshev distance 1 of at takes a flat 30, cover and hunker ignored.
func ApplyThrow(b *game.Battlefield, attacker *game.Agent, at game.Point) {
	if attacker.SplashBombs > 0 {
		attacker.SplashBombs--
	}
	for i := range b.Agents {
		if b.Agents[i].Pos.Chebyshev(at) <= SplashRadius {
			b.Agents[i].Wetness += SplashDamage
		}
	}
}

// ApplyCombat resolves the combat part of one agent's command. Unknown
// agents and non-combat commands are ignored.
func ApplyCombat(b *game.Battlefield, agentID int, cmd game.Command) {
	attacker := b.Agent(agentID)
	if attacker == nil {
		return
	}
	switch cmd.Kind {
	case game.CmdShoot:
		if target := b.Agent(cmd.TargetID); target != nil {
			ApplyShot(b, attacker, target)
		}
	case game.CmdThrow:
		ApplyThrow(b, attacker, cmd.Target)
	}
}

// Validate reports whether an order is legal for the current battlefield.
// Movement must be a single orthogonal step onto a free walkable cell or no
// step at all; shots need a ready shooter and a live target; throws need a
// bomb and a target within range of the post-move cell.
func Validate(b *game.Battlefield, o game.Order) error {
	a := b.Agent(o.AgentID)
	if a == nil {
		return fmt.Errorf("agent %d is not on the battlefield", o.AgentID)
	}
	if a.Player != b.Me {
		return fmt.Errorf("agent %d belongs to player %d", o.AgentID, a.Player)
	}
	dest := o.Seq.Dest
	if o.Seq.Moved && dest != a.Pos {
		if a.Pos.Manhattan(dest) != 1 || !b.Grid.Walkable(dest) {
			return fmt.Errorf("agent %d cannot step from %v to %v", a.ID, a.Pos, dest)
		}
	}
	switch o.Seq.Action.Kind {
	case game.CmdShoot:
		if a.Cooldown > 0 {
			return fmt.Errorf("agent %d shoots on cooldown %d", a.ID, a.Cooldown)
		}
		if b.Agent(o.Seq.Action.TargetID) == nil {
			return fmt.Errorf("agent %d shoots unknown agent %d", a.ID, o.Seq.Action.TargetID)
		}
	case game.CmdThrow:
		if a.SplashBombs <= 0 {
			return fmt.Errorf("agent %d throws with no bombs", a.ID)
		}
		if dest.Manhattan(o.Seq.Action.Target) > ThrowRange || !b.Grid.InBounds(o.Seq.Action.Target) {
			return fmt.Errorf("agent %d throws out of range at %v", a.ID, o.Seq.Action.Target)
		}
	}
	return nil
}

// ResolveMoves applies every MOVE at once. All agents whose destinations
// coincide, or who step onto a cell an agent stays on, keep their position.
// A cancelled mover holds its own cell, which can cancel another mover in
// turn, so cancellation repeats until it settles.
func ResolveMoves(b *game.Battlefield, orders []game.Order) {
	dest := make(map[int]game.Point, len(orders))
	for _, o := range orders {
		if a := b.Agent(o.AgentID); a != nil && o.Seq.Moved && o.Seq.Dest != a.Pos {
			dest[a.ID] = o.Seq.Dest
		}
	}
	for changed := true; changed; {
		changed = false
		claims := make(map[game.Point]int, len(b.Agents))
		for i := range b.Agents {
			if d, ok := dest[b.Agents[i].ID]; ok {
				claims[d]++
			} else {
				claims[b.Agents[i].Pos]++
			}
		}
		for id, d := range dest {
			if claims[d] > 1 {
				delete(dest, id)
				changed = true
			}
		}
	}
	for id, d := range dest {
		b.Agent(id).Pos = d
	}
}

// ApplyHunker resets every hunker flag and raises it for HUNKER_DOWN orders.
func ApplyHunker(b *game.Battlefield, orders []game.Order) {
	for i := range b.Agents {
		b.Agents[i].Hunkered = false
	}
	for _, o := range orders {
		if o.Seq.Hunkers() {
			if a := b.Agent(o.AgentID); a != nil {
				a.Hunkered = true
			}
		}
	}
}

// ApplyAllCombat resolves every SHOOT and THROW in order.
func ApplyAllCombat(b *game.Battlefield, orders []game.Order) {
	for _, o := range orders {
		if o.Seq.Action.IsCombat() {
			ApplyCombat(b, o.AgentID, o.Seq.Action)
		}
	}
}

// EndTurn ticks cooldowns down, removes the eliminated and clears hunker
// flags so b is ready for the next decision.
func EndTurn(b *game.Battlefield) {
	for i := range b.Agents {
		if b.Agents[i].Cooldown > 0 {
			b.Agents[i].Cooldown--
		}
		b.Agents[i].Hunkered = false
	}
	b.PruneEliminated()
}

// Resolve plays one full turn from the orders of both players.
func Resolve(b *game.Battlefield, orders []game.Order) {
	ResolveMoves(b, orders)
	ApplyHunker(b, orders)
	ApplyAllCombat(b, orders)
	EndTurn(b)
	b.Turn++
}
