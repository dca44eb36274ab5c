package rules

import (
	"github.com/brensch/splash/game"
	"github.com/brensch/splash/territory"
)

const (
	DefaultMaxTurns = 100
	PointLead       = 600
)

type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonElimination
	ReasonPointLead
	ReasonEndOfTurns
	ReasonDraw
)

func (r Reason) String() string {
	switch r {
	case ReasonElimination:
		return "elimination"
	case ReasonPointLead:
		return "point_lead"
	case ReasonEndOfTurns:
		return "end_of_turns"
	case ReasonDraw:
		return "draw"
	default:
		return "none"
	}
}

// Outcome reports whether the match is over. Winner is -1 for a draw.
type Outcome struct {
	Done   bool
	Winner int
	Reason Reason
}

// TerritoryDiff is player 0's territory differential over player 1 at the
// agents' current positions.
func TerritoryDiff(b *game.Battlefield) int {
	return territory.Diff(b.Grid, territory.Sources(b.Side(0)), territory.Sources(b.Side(1)))
}

// ScoreTerritory awards the turn's territory differential to the side that
// leads it and returns the differential.
func ScoreTerritory(b *game.Battlefield) int {
	diff := TerritoryDiff(b)
	switch {
	case diff > 0:
		b.Points[0] += diff
	case diff < 0:
		b.Points[1] -= diff
	}
	return diff
}

// CheckVictory applies, in order: mutual elimination (draw), elimination, a
// lead of PointLead points, and the points count once maxTurns are played.
// It is meant to run after Resolve, when b.Turn already names the next turn.
func CheckVictory(b *game.Battlefield, maxTurns int) Outcome {
	alive0, alive1 := b.Alive(0) > 0, b.Alive(1) > 0
	switch {
	case !alive0 && !alive1:
		return Outcome{Done: true, Winner: -1, Reason: ReasonDraw}
	case !alive1:
		return Outcome{Done: true, Winner: 0, Reason: ReasonElimination}
	case !alive0:
		return Outcome{Done: true, Winner: 1, Reason: ReasonElimination}
	}
	lead := b.Points[0] - b.Points[1]
	switch {
	case lead >= PointLead:
		return Outcome{Done: true, Winner: 0, Reason: ReasonPointLead}
	case lead <= -PointLead:
		return Outcome{Done: true, Winner: 1, Reason: ReasonPointLead}
	}
	if b.Turn > maxTurns {
		switch {
		case lead > 0:
			return Outcome{Done: true, Winner: 0, Reason: ReasonEndOfTurns}
		case lead < 0:
			return Outcome{Done: true, Winner: 1, Reason: ReasonEndOfTurns}
		default:
			return Outcome{Done: true, Winner: -1, Reason: ReasonDraw}
		}
	}
	return Outcome{Winner: -1}
}
