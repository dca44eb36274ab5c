package selfplay

import (
	"math/rand"

	"github.com/brensch/splash/game"
)

const (
	minWidth, maxWidth   = 12, 20
	minHeight, maxHeight = 6, 10
	minAgents, maxAgents = 3, 5

	coverChance       = 0.25
	highCoverChance   = 0.33
	centreCoverChance = 0.125

	// Starting columns on each side.
	spawnDepth = 3
)

// Generate builds a point-symmetric battlefield from seed. Player 0 starts on
// the left and player 1 on the right, agent 2k of player 0 facing agent 2k+1
// of player 1 with the same stats. The result decides for player 0.
func Generate(seed int64) *game.Battlefield {
	rng := rand.New(rand.NewSource(seed))
	w := minWidth + rng.Intn(maxWidth-minWidth+1)
	h := minHeight + rng.Intn(maxHeight-minHeight+1)
	g := game.NewGrid(w, h)

	mirror := func(p game.Point) game.Point { return game.Point{X: w - 1 - p.X, Y: h - 1 - p.Y} }
	tile := func() game.Tile {
		if rng.Float64() < highCoverChance {
			return game.TileHighCover
		}
		return game.TileLowCover
	}

	for x := 1; x < w-1; x++ {
		if h/2 > 1 && rng.Float64() < coverChance {
			p := game.Point{X: x, Y: 1 + rng.Intn(h/2-1)}
			t := tile()
			g.Set(p, t)
			g.Set(mirror(p), t)
		}
		if h%2 == 1 && x < w/2 && rng.Float64() < centreCoverChance {
			p := game.Point{X: x, Y: h / 2}
			t := tile()
			g.Set(p, t)
			g.Set(mirror(p), t)
		}
	}

	n := minAgents + rng.Intn(maxAgents-minAgents+1)
	taken := make(map[game.Point]bool, 2*n)
	specs := make([]game.AgentSpec, 0, 2*n)
	for k := 0; k < n; k++ {
		var p game.Point
		for {
			p = game.Point{X: rng.Intn(spawnDepth), Y: rng.Intn(h)}
			if g.Walkable(p) && !taken[p] {
				break
			}
		}
		taken[p] = true
		base := game.AgentSpec{
			ShootCooldown: 1 + rng.Intn(4),
			OptimalRange:  3 + rng.Intn(3),
			SoakingPower:  10 + rng.Intn(20),
			SplashBombs:   rng.Intn(3),
		}
		a, b := base, base
		a.ID, a.Player, a.Start = 2*k, 0, p
		b.ID, b.Player, b.Start = 2*k+1, 1, mirror(p)
		specs = append(specs, a, b)
	}
	return game.NewBattlefield(g, specs, 0)
}
