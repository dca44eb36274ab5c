// Package game defines the battlefield model for the splash combat game.
//
// The tile grid never changes during a match and is shared by pointer between
// clones. Agent runtime state is a flat value slice so a Clone costs one copy
// proportional to the number of agents, which keeps simulation branches cheap.
package game

// Point is a board coordinate. (0,0) is the top-left cell.
type Point struct {
	X int
	Y int
}

// Orthogonal lists the four unit steps in a fixed order.
var Orthogonal = [4]Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Manhattan returns |dx|+|dy|.
func (p Point) Manhattan(q Point) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y)
}

// Chebyshev returns max(|dx|,|dy|).
func (p Point) Chebyshev(q Point) int {
	dx, dy := abs(p.X-q.X), abs(p.Y-q.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type Tile uint8

const (
	TileEmpty Tile = iota
	TileLowCover
	TileHighCover
)

// Protection is the damage reduction a cover tile grants.
func (t Tile) Protection() float64 {
	switch t {
	case TileLowCover:
		return 0.5
	case TileHighCover:
		return 0.75
	default:
		return 0
	}
}

// Grid is the immutable tile map.
type Grid struct {
	Width  int
	Height int
	tiles  []Tile
}

func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, tiles: make([]Tile, width*height)}
}

func (g *Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

// At returns the tile at p. Out of bounds cells read as empty.
func (g *Grid) At(p Point) Tile {
	if !g.InBounds(p) {
		return TileEmpty
	}
	return g.tiles[p.Y*g.Width+p.X]
}

// Set is only meant for map construction, before the grid is shared.
func (g *Grid) Set(p Point, t Tile) {
	if g.InBounds(p) {
		g.tiles[p.Y*g.Width+p.X] = t
	}
}

// Walkable reports whether p is in bounds and not a cover tile.
func (g *Grid) Walkable(p Point) bool {
	return g.InBounds(p) && g.At(p) == TileEmpty
}

// AgentSpec holds the stats fixed at match start.
type AgentSpec struct {
	ID            int
	Player        int
	ShootCooldown int
	OptimalRange  int
	SoakingPower  int
	SplashBombs   int
	Start         Point
}

// Force estimates how threatening an agent's shooting is.
func (s AgentSpec) Force() float64 {
	return float64(s.SoakingPower) / float64(s.ShootCooldown+1) * (float64(s.OptimalRange) + 4) / 8
}

// Agent is the per-turn mutable state of one agent. Range and power are
// copied from the spec so hot loops never look the spec up.
type Agent struct {
	ID           int
	Player       int
	Pos          Point
	Cooldown     int
	SplashBombs  int
	Wetness      int
	OptimalRange int
	SoakingPower int
	Hunkered     bool
}

const EliminationWetness = 100

func (a *Agent) Eliminated() bool { return a.Wetness >= EliminationWetness }

// Health is 100 minus wetness, floored at zero.
func (a *Agent) Health() int {
	if a.Wetness >= EliminationWetness {
		return 0
	}
	return EliminationWetness - a.Wetness
}

// Battlefield is the complete state needed for a decision.
// Me selects the side the engine is deciding for. Turn is the 1-based number
// of the turn about to be played.
type Battlefield struct {
	Grid   *Grid
	Specs  []AgentSpec
	Agents []Agent
	Points [2]int
	Turn   int
	Me     int
}

// NewBattlefield builds the battlefield for turn 1 with every agent at its
// start.
func NewBattlefield(grid *Grid, specs []AgentSpec, me int) *Battlefield {
	b := &Battlefield{Grid: grid, Specs: specs, Me: me, Turn: 1}
	b.Agents = make([]Agent, len(specs))
	for i, s := range specs {
		b.Agents[i] = Agent{
			ID:           s.ID,
			Player:       s.Player,
			Pos:          s.Start,
			SplashBombs:  s.SplashBombs,
			OptimalRange: s.OptimalRange,
			SoakingPower: s.SoakingPower,
		}
	}
	return b
}

// Clone copies the agent roster. Grid and specs are shared.
func (b *Battlefield) Clone() *Battlefield {
	if b == nil {
		return nil
	}
	out := *b
	out.Agents = make([]Agent, len(b.Agents))
	copy(out.Agents, b.Agents)
	return &out
}

// ForPlayer returns a clone that decides for the given side.
func (b *Battlefield) ForPlayer(player int) *Battlefield {
	out := b.Clone()
	out.Me = player
	return out
}

// Opponent returns the id of the side not deciding.
func (b *Battlefield) Opponent() int { return 1 - b.Me }

// Agent returns the live agent with the given id, or nil.
func (b *Battlefield) Agent(id int) *Agent {
	for i := range b.Agents {
		if b.Agents[i].ID == id {
			return &b.Agents[i]
		}
	}
	return nil
}

// Spec returns the spec for the given agent id.
func (b *Battlefield) Spec(id int) (AgentSpec, bool) {
	for _, s := range b.Specs {
		if s.ID == id {
			return s, true
		}
	}
	return AgentSpec{}, false
}

// Side returns pointers into Agents for every agent owned by player.
func (b *Battlefield) Side(player int) []*Agent {
	out := make([]*Agent, 0, len(b.Agents))
	for i := range b.Agents {
		if b.Agents[i].Player == player {
			out = append(out, &b.Agents[i])
		}
	}
	return out
}

func (b *Battlefield) Mine() []*Agent { return b.Side(b.Me) }

func (b *Battlefield) Enemies() []*Agent { return b.Side(b.Opponent()) }

// AgentAt returns the agent standing on p, or nil.
func (b *Battlefield) AgentAt(p Point) *Agent {
	for i := range b.Agents {
		if b.Agents[i].Pos == p {
			return &b.Agents[i]
		}
	}
	return nil
}

// Occupied returns the set of cells holding an agent.
func (b *Battlefield) Occupied() map[Point]bool {
	occ := make(map[Point]bool, len(b.Agents))
	for i := range b.Agents {
		occ[b.Agents[i].Pos] = true
	}
	return occ
}

// Alive counts agents of player below the elimination threshold.
func (b *Battlefield) Alive(player int) int {
	n := 0
	for i := range b.Agents {
		if b.Agents[i].Player == player && !b.Agents[i].Eliminated() {
			n++
		}
	}
	return n
}

// TotalHealth sums Health over the surviving agents of player.
func (b *Battlefield) TotalHealth(player int) int {
	sum := 0
	for i := range b.Agents {
		if b.Agents[i].Player == player {
			sum += b.Agents[i].Health()
		}
	}
	return sum
}

// PruneEliminated drops agents at or above the elimination threshold.
func (b *Battlefield) PruneEliminated() {
	kept := b.Agents[:0]
	for _, a := range b.Agents {
		if !a.Eliminated() {
			kept = append(kept, a)
		}
	}
	b.Agents = kept
}
