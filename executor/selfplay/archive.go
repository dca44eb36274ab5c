package selfplay

import (
	"time"

	"github.com/brensch/splash/game"
	"github.com/brensch/splash/store"
)

// Row converts r into an archive row. start is the battlefield the match was
// generated with, and players names the weight sets on each side.
func (r Result) Row(matchID string, seed int64, players [2]string, start *game.Battlefield) store.MatchRow {
	return store.MatchRow{
		MatchID:    matchID,
		Seed:       seed,
		Player0:    players[0],
		Player1:    players[1],
		Width:      int32(start.Grid.Width),
		Height:     int32(start.Grid.Height),
		Agents:     int32(len(start.Agents)),
		Winner:     int32(r.Winner),
		Reason:     r.Reason.String(),
		Turns:      int32(r.Turns),
		Points0:    int32(r.Points[0]),
		Points1:    int32(r.Points[1]),
		Territory:  int32(r.Territory),
		Rejected:   int32(r.Rejected),
		FinishedAt: time.Now().UnixMilli(),
	}
}
