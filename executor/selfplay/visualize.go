// visualize.go - Console rendering of a battlefield for verbose matches.
package selfplay

import (
	"fmt"
	"strings"

	"github.com/brensch/splash/game"
)

// FormatBoard renders the grid with one character per cell followed by one
// line per agent. Player 0 agents are A, player 1 agents are B, low cover is
// l and high cover is H.
func FormatBoard(b *game.Battlefield) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Turn %d  points %d:%d ===\n", b.Turn, b.Points[0], b.Points[1])
	for y := 0; y < b.Grid.Height; y++ {
		for x := 0; x < b.Grid.Width; x++ {
			p := game.Point{X: x, Y: y}
			if a := b.AgentAt(p); a != nil {
				sb.WriteByte(byte('A' + a.Player))
			} else {
				switch b.Grid.At(p) {
				case game.TileLowCover:
					sb.WriteByte('l')
				case game.TileHighCover:
					sb.WriteByte('H')
				default:
					sb.WriteByte('.')
				}
			}
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	for _, a := range b.Agents {
		fmt.Fprintf(&sb, "  %d p%d (%d,%d) wet=%d cd=%d bombs=%d\n", a.ID, a.Player, a.Pos.X, a.Pos.Y, a.Wetness, a.Cooldown, a.SplashBombs)
	}
	return sb.String()
}
