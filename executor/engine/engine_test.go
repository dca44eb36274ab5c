package engine

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/game"
	"github.com/brensch/splash/rules"
)

func dumpBattlefield(b *game.Battlefield) string {
	if b == nil {
		return "<nil battlefield>"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Turn=%d Size=%dx%d Me=%d\n", b.Turn, b.Grid.Width, b.Grid.Height, b.Me)
	for _, a := range b.Agents {
		fmt.Fprintf(&sb, "Agent %d p%d at (%d,%d) cd=%d bombs=%d wet=%d\n", a.ID, a.Player, a.Pos.X, a.Pos.Y, a.Cooldown, a.SplashBombs, a.Wetness)
	}
	for y := 0; y < b.Grid.Height; y++ {
		for x := 0; x < b.Grid.Width; x++ {
			p := game.Point{X: x, Y: y}
			if a := b.AgentAt(p); a != nil {
				sb.WriteByte(byte('A' + a.Player))
				continue
			}
			switch b.Grid.At(p) {
			case game.TileLowCover:
				sb.WriteByte('l')
			case game.TileHighCover:
				sb.WriteByte('H')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func field(w, h int, agents ...game.AgentSpec) *game.Battlefield {
	return game.NewBattlefield(game.NewGrid(w, h), agents, 0)
}

func unit(id, player int, x, y int) game.AgentSpec {
	return game.AgentSpec{ID: id, Player: player, ShootCooldown: 2, OptimalRange: 3, SoakingPower: 20, SplashBombs: 1, Start: game.Point{X: x, Y: y}}
}

// stepClock advances by step on every reading.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func TestThrowOffsets(t *testing.T) {
	if len(throwOffsets) != 32 {
		t.Fatalf("len(throwOffsets)=%d want=32", len(throwOffsets))
	}
	var origin game.Point
	for _, off := range throwOffsets {
		if off.Manhattan(origin) > rules.ThrowRange || off.Chebyshev(origin) <= 1 {
			t.Fatalf("offset %v outside the throw ring", off)
		}
	}
}

func TestEnumerate_HunkerFirstAndNoOccupiedSteps(t *testing.T) {
	b := field(8, 5, unit(0, 0, 2, 2), unit(1, 0, 3, 2), unit(2, 1, 6, 2))
	b.Grid.Set(game.Point{X: 2, Y: 1}, game.TileLowCover)
	mine := b.Mine()
	seqs := enumerate(b.Grid, mine[0], occupancy(b), b.Enemies(), ownThrowFilter(mine, b.Enemies()))
	if seqs[0] != game.Stay(game.Point{X: 2, Y: 2}, game.Hunker()) {
		t.Fatalf("first sequence=%v want HUNKER_DOWN in place", seqs[0])
	}
	for _, s := range seqs {
		if s.Moved && (s.Dest == game.Point{X: 3, Y: 2} || s.Dest == game.Point{X: 2, Y: 1}) {
			t.Fatalf("%v steps onto a blocked cell\n%s", s, dumpBattlefield(b))
		}
		if s.Action.Kind == game.CmdThrow {
			if s.Action.Target.Chebyshev(game.Point{X: 3, Y: 2}) <= 1 || s.Action.Target.Chebyshev(game.Point{X: 2, Y: 2}) <= 1 {
				t.Fatalf("%v splashes a friend", s)
			}
			if s.Action.Target.Chebyshev(game.Point{X: 6, Y: 2}) > 1 {
				t.Fatalf("%v misses every enemy", s)
			}
		}
	}
}

func TestIndividual_ShootBeatsHunker(t *testing.T) {
	w := config.Default()
	b := field(10, 5, unit(0, 0, 1, 2), unit(1, 1, 4, 2))
	b.Turn = 10
	tn := newTurn(b, &w)
	me := tn.mine[0]
	pv := perspective{friends: tn.mine, enemies: tn.enemies, searcher: true}

	for _, dest := range []game.Point{{X: 1, Y: 2}, {X: 2, Y: 2}, {X: 1, Y: 1}} {
		mk := func(c game.Command) game.ActionSeq {
			if dest == me.Pos {
				return game.Stay(dest, c)
			}
			return game.MoveThen(dest, c)
		}
		shoot := tn.individual(b, me, mk(game.Shoot(1)), pv)
		hunker := tn.individual(b, me, mk(game.Hunker()), pv)
		if shoot <= hunker {
			t.Fatalf("at %v shoot=%.2f hunker=%.2f\n%s", dest, shoot, hunker, dumpBattlefield(b))
		}
	}
}

func TestIndividual_EarlyHunkerPenalty(t *testing.T) {
	w := config.Default()
	b := field(10, 5, unit(0, 0, 1, 2), unit(1, 1, 8, 2))
	tn := newTurn(b, &w)
	pv := perspective{friends: tn.mine, enemies: tn.enemies, searcher: true}
	seq := game.Stay(game.Point{X: 1, Y: 2}, game.Hunker())

	b.Turn = 1
	early := tn.individual(b, tn.mine[0], seq, pv)
	b.Turn = 4
	late := tn.individual(b, tn.mine[0], seq, pv)
	if math.Abs(late-early-w.EarlyGame) > 1e-9 {
		t.Fatalf("early=%.3f late=%.3f want a gap of %.3f", early, late, w.EarlyGame)
	}
}

func TestPruneWidth(t *testing.T) {
	cases := []struct {
		counts []int
		budget int
		want   int
	}{
		{[]int{10, 10, 10}, 100, 4},
		{[]int{3, 50}, 100, 33},
		{[]int{5, 5}, 1, 1},
		{[]int{2, 2}, 1000, 2},
		{[]int{}, 10, 1},
	}
	for _, tc := range cases {
		if got := pruneWidth(tc.counts, tc.budget); got != tc.want {
			t.Fatalf("pruneWidth(%v, %d)=%d want=%d", tc.counts, tc.budget, got, tc.want)
		}
	}
}

func TestPrune_ProductWithinBudget(t *testing.T) {
	for _, budget := range []int{1, 7, 64, 500, 2000, 25000} {
		for _, counts := range [][]int{{40, 40, 40}, {1, 200}, {13, 7, 90, 3}, {55, 55, 55, 55, 55}} {
			k := pruneWidth(counts, budget)
			prod := 1
			for _, c := range counts {
				prod *= min(k, c)
			}
			if k > 1 && prod > budget {
				t.Fatalf("counts=%v budget=%d k=%d product=%d", counts, budget, k, prod)
			}
		}
	}
}

func TestWalker_BestFirstWithoutRepeats(t *testing.T) {
	lists := []candidates{
		{seqs: make([]game.ActionSeq, 3), scores: []float64{5, 3, 1}},
		{seqs: make([]game.ActionSeq, 2), scores: []float64{4, 2}},
	}
	w := newWalker(lists)
	seen := map[[2]int]bool{}
	prev := math.Inf(1)
	for {
		n, ok := w.next()
		if !ok {
			break
		}
		if n.h > prev {
			t.Fatalf("h=%v after %v", n.h, prev)
		}
		want := lists[0].scores[n.idx[0]] + lists[1].scores[n.idx[1]]
		if n.h != want {
			t.Fatalf("idx=%v h=%v want=%v", n.idx, n.h, want)
		}
		k := [2]int{n.idx[0], n.idx[1]}
		if seen[k] {
			t.Fatalf("idx=%v visited twice", n.idx)
		}
		seen[k] = true
		prev = n.h
	}
	if len(seen) != 6 {
		t.Fatalf("visited %d vectors want 6", len(seen))
	}
}

func TestEnemyBombReach(t *testing.T) {
	b := field(12, 12, unit(0, 0, 0, 11), unit(1, 1, 5, 5))
	danger, throws := enemyBombReach(b, b.Enemies())
	if !danger.has(game.Point{X: 5, Y: 11}) {
		t.Fatalf("(5,11) is reachable from (5,6)")
	}
	if danger.has(game.Point{X: 0, Y: 0}) {
		t.Fatalf("(0,0) is out of reach")
	}
	for _, p := range throws {
		if !danger.has(p) {
			t.Fatalf("impact %v missing from danger", p)
		}
	}

	b.Agent(1).SplashBombs = 0
	danger, throws = enemyBombReach(b, b.Enemies())
	if len(throws) != 0 || danger.has(game.Point{X: 5, Y: 5}) {
		t.Fatalf("an enemy without bombs threatens nothing")
	}
}

func TestSimulate_AllEnemiesEliminated(t *testing.T) {
	w := config.Default()
	b := field(10, 5, unit(0, 0, 0, 2), unit(1, 1, 3, 2))
	b.Turn = 10
	enemy := b.Agent(1)
	enemy.Wetness = 90
	enemy.SplashBombs = 0
	enemy.Cooldown = 3
	tn := newTurn(b, &w)

	o := tn.simulate([]game.ActionSeq{game.Stay(game.Point{X: 0, Y: 2}, game.Throw(game.Point{X: 3, Y: 2}))})
	t.Logf("after\n%s", dumpBattlefield(o.after))
	if o.after.Alive(1) != 0 {
		t.Fatalf("enemy survived a 30 splash at 90 wetness")
	}
	if math.IsNaN(o.score) || math.IsInf(o.score, 0) {
		t.Fatalf("score=%v", o.score)
	}
	if o.score < w.Death/2 {
		t.Fatalf("score=%.1f does not reflect wiping the enemy out", o.score)
	}
	if b.Agent(1).Wetness != 90 {
		t.Fatalf("simulation leaked into the input battlefield")
	}
}

func TestSimulate_OpponentShootsBack(t *testing.T) {
	w := config.Default()
	b := field(10, 5, unit(0, 0, 1, 2), unit(1, 1, 4, 2))
	b.Turn = 10
	tn := newTurn(b, &w)

	o := tn.simulate([]game.ActionSeq{game.Stay(game.Point{X: 1, Y: 2}, game.Hunker())})
	t.Logf("after\n%s", dumpBattlefield(o.after))
	if o.after.Agent(0).Wetness == 0 {
		t.Fatalf("greedy opponent left an open target alone")
	}
}

func TestDecide_OneOrderPerSurvivor(t *testing.T) {
	b := field(12, 6, unit(0, 0, 1, 1), unit(2, 0, 1, 4), unit(4, 0, 2, 2), unit(1, 1, 10, 1), unit(3, 1, 10, 4))
	b.Turn = 5
	b.Agent(4).Wetness = 100
	clk := &stepClock{t: time.Unix(0, 0), step: time.Millisecond}
	e := New(config.Default(), withClock(clk.now))
	e.Initialize(b, 0)

	lines := e.Decide(b, 500*time.Millisecond, 200, false)
	if len(lines) != 2 {
		t.Fatalf("got %d lines want 2: %v", len(lines), lines)
	}
	pos := func(id int) (game.Point, bool) {
		if a := b.Agent(id); a != nil {
			return a.Pos, true
		}
		return game.Point{}, false
	}
	seen := map[game.Point]bool{}
	for _, l := range lines {
		o, err := game.ParseOrder(l, pos)
		if err != nil {
			t.Fatalf("ParseOrder(%q): %v", l, err)
		}
		if err := rules.Validate(b, o); err != nil {
			t.Fatalf("illegal order %q: %v\n%s", l, err, dumpBattlefield(b))
		}
		if seen[o.Seq.Dest] {
			t.Fatalf("two agents end on %v", o.Seq.Dest)
		}
		seen[o.Seq.Dest] = true
	}
	if st := e.LastStats(); st.Evaluated == 0 || st.Fallback {
		t.Fatalf("stats=%+v", st)
	}
}

func TestDecide_ExpandsPastOrigin(t *testing.T) {
	// Two identical agents mirrored across the enemy line score the same.
	b := field(12, 7, unit(0, 0, 2, 1), unit(2, 0, 2, 5), unit(1, 1, 9, 3))
	b.Turn = 5
	clk := &stepClock{t: time.Unix(0, 0), step: time.Millisecond}
	e := New(config.Default(), withClock(clk.now))
	e.Initialize(b, 0)
	e.Decide(b, time.Second, 400, false)

	if st := e.LastStats(); st.Evaluated < 2 {
		t.Fatalf("evaluated %d joint actions, want more than the origin: %+v", st.Evaluated, st)
	}
}

func TestDecide_FallbackWhenOutOfTime(t *testing.T) {
	b := field(10, 5, unit(0, 0, 1, 1), unit(2, 0, 1, 3), unit(1, 1, 8, 2))
	b.Turn = 5
	clk := &stepClock{t: time.Unix(0, 0), step: time.Hour}
	e := New(config.Default(), withClock(clk.now))
	e.Initialize(b, 0)

	lines := e.Decide(b, 50*time.Millisecond, 100, false)
	want := []string{"0;HUNKER_DOWN", "2;HUNKER_DOWN"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("lines=%v want=%v", lines, want)
	}
	if !e.LastStats().Fallback {
		t.Fatalf("fallback not reported")
	}
}

func TestDecide_Opening(t *testing.T) {
	b := field(10, 5, unit(0, 0, 1, 1), unit(2, 0, 2, 1), unit(1, 1, 8, 2))

	e := New(config.Default(), WithOpeningTurns(2), WithSeed(7))
	e.Initialize(b, 0)
	lines := e.Decide(b, 50*time.Millisecond, 100, true)
	if strings.Join(lines, "|") != "0;HUNKER_DOWN|2;HUNKER_DOWN" {
		t.Fatalf("pass mode lines=%v", lines)
	}
	if !e.LastStats().Opening {
		t.Fatalf("opening not reported")
	}

	for seed := int64(0); seed < 20; seed++ {
		e := New(config.Default(), WithOpeningTurns(2), WithSeed(seed))
		e.Initialize(b, 0)
		orders := e.Orders(b, 50*time.Millisecond, 100, false)
		if len(orders) != 2 {
			t.Fatalf("seed %d: %d orders", seed, len(orders))
		}
		if orders[0].Seq.Dest == orders[1].Seq.Dest {
			t.Fatalf("seed %d: both agents end on %v", seed, orders[0].Seq.Dest)
		}
		for _, o := range orders {
			if err := rules.Validate(b, o); err != nil {
				t.Fatalf("seed %d: %v", seed, err)
			}
		}
	}
}

func TestDecide_SidesFromInitialize(t *testing.T) {
	b := field(10, 5, unit(0, 0, 1, 1), unit(1, 1, 8, 2), unit(3, 1, 8, 3))
	clk := &stepClock{t: time.Unix(0, 0), step: time.Millisecond}
	e := New(config.Default(), withClock(clk.now))
	e.Initialize(b, 1)
	lines := e.Decide(b, 100*time.Millisecond, 100, false)
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "1") || !strings.HasPrefix(lines[1], "3") {
		t.Fatalf("lines=%v want orders for agents 1 and 3", lines)
	}
	if b.Me != 0 {
		t.Fatalf("Decide changed the caller's battlefield")
	}
}

func BenchmarkDecide(b *testing.B) {
	bf := field(16, 8,
		unit(0, 0, 1, 1), unit(2, 0, 1, 4), unit(4, 0, 2, 6),
		unit(1, 1, 14, 6), unit(3, 1, 14, 3), unit(5, 1, 13, 1),
	)
	bf.Grid.Set(game.Point{X: 5, Y: 2}, game.TileHighCover)
	bf.Grid.Set(game.Point{X: 10, Y: 5}, game.TileHighCover)
	bf.Grid.Set(game.Point{X: 7, Y: 4}, game.TileLowCover)
	bf.Turn = 5
	e := New(config.Default())
	e.Initialize(bf, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Decide(bf, 50*time.Millisecond, 500, false)
	}
}

// onlyWeights zeroes every weight except the ones set, so a greedy opponent
// with nothing to gain hunkers in place.
func onlyWeights(set func(w *config.Weights)) config.Weights {
	var w config.Weights
	set(&w)
	return w
}

// passive takes the listed agents' shots and bombs away.
func passive(b *game.Battlefield, ids ...int) {
	for _, id := range ids {
		b.Agent(id).Cooldown = 5
		b.Agent(id).SplashBombs = 0
	}
}

func TestSimulate_ScoreTerms(t *testing.T) {
	hold := func(b *game.Battlefield, ids ...int) []game.ActionSeq {
		out := make([]game.ActionSeq, len(ids))
		for i, id := range ids {
			out[i] = game.Stay(b.Agent(id).Pos, game.Hunker())
		}
		return out
	}
	tests := []struct {
		name    string
		weights config.Weights
		setup   func() (*game.Battlefield, []game.ActionSeq)
		want    float64
	}{
		{
			name:    "multi hit clumped",
			weights: onlyWeights(func(w *config.Weights) { w.MultiHit = 1 }),
			setup: func() (*game.Battlefield, []game.ActionSeq) {
				b := field(12, 5, unit(0, 0, 3, 2), unit(2, 0, 4, 2), unit(1, 1, 8, 2))
				b.Agent(1).Cooldown = 5
				return b, hold(b, 0, 2)
			},
			// (3,2) (4,1) (4,2) (4,3) are reachable and splash both agents.
			want: -8,
		},
		{
			name:    "multi hit spread",
			weights: onlyWeights(func(w *config.Weights) { w.MultiHit = 1 }),
			setup: func() (*game.Battlefield, []game.ActionSeq) {
				b := field(12, 5, unit(0, 0, 3, 0), unit(2, 0, 3, 4), unit(1, 1, 8, 2))
				b.Agent(1).Cooldown = 5
				return b, hold(b, 0, 2)
			},
			want: 0,
		},
		{
			name:    "danger zone",
			weights: onlyWeights(func(w *config.Weights) { w.DangerZone = 1 }),
			setup: func() (*game.Battlefield, []game.ActionSeq) {
				b := field(12, 5, unit(0, 0, 4, 2), unit(2, 0, 0, 0), unit(1, 1, 8, 2))
				b.Agent(1).Cooldown = 5
				return b, hold(b, 0, 2)
			},
			want: -1,
		},
		{
			name:    "cooldown after a shot",
			weights: onlyWeights(func(w *config.Weights) { w.CooldownPenalty = 1 }),
			setup: func() (*game.Battlefield, []game.ActionSeq) {
				b := field(10, 5, unit(0, 0, 2, 2), unit(1, 1, 4, 2))
				passive(b, 1)
				return b, []game.ActionSeq{game.Stay(game.Point{X: 2, Y: 2}, game.Shoot(1))}
			},
			want: -3,
		},
		{
			name:    "forecast enemy wetness",
			weights: onlyWeights(func(w *config.Weights) { w.ForecastEnemyWetness = 1; w.ForecastEnemyKill = 100 }),
			setup: func() (*game.Battlefield, []game.ActionSeq) {
				b := field(10, 5, unit(0, 0, 2, 2), unit(1, 1, 4, 2))
				passive(b, 1)
				b.Agent(1).Wetness = 40
				return b, []game.ActionSeq{game.Stay(game.Point{X: 2, Y: 2}, game.Shoot(1))}
			},
			// The hunkered target takes ceil(20*0.75).
			want: 55,
		},
		{
			name:    "forecast enemy kill",
			weights: onlyWeights(func(w *config.Weights) { w.ForecastEnemyWetness = 1; w.ForecastEnemyKill = 100 }),
			setup: func() (*game.Battlefield, []game.ActionSeq) {
				b := field(10, 5, unit(0, 0, 2, 2), unit(1, 1, 4, 2))
				passive(b, 1)
				b.Agent(1).Wetness = 90
				return b, []game.ActionSeq{game.Stay(game.Point{X: 2, Y: 2}, game.Shoot(1))}
			},
			want: 105 + 100,
		},
		{
			name:    "forecast ally health",
			weights: onlyWeights(func(w *config.Weights) { w.ForecastAllyHealth = 1; w.ForecastAllyLoss = 100 }),
			setup: func() (*game.Battlefield, []game.ActionSeq) {
				b := field(10, 5, unit(0, 0, 2, 2), unit(1, 1, 4, 2))
				passive(b, 1)
				b.Agent(0).Wetness = 10
				return b, hold(b, 0)
			},
			want: 90,
		},
		{
			name:    "forecast ally loss",
			weights: onlyWeights(func(w *config.Weights) { w.ForecastAllyHealth = 1; w.ForecastAllyLoss = 100 }),
			setup: func() (*game.Battlefield, []game.ActionSeq) {
				b := field(10, 5, unit(0, 0, 2, 2), unit(1, 1, 4, 2))
				b.Agent(1).SplashBombs = 0
				b.Agent(0).Wetness = 95
				return b, hold(b, 0)
			},
			want: -100,
		},
		{
			name:    "own side wiped out",
			weights: onlyWeights(func(w *config.Weights) { w.Death = 1000 }),
			setup: func() (*game.Battlefield, []game.ActionSeq) {
				b := field(10, 5, unit(0, 0, 2, 2), unit(1, 1, 4, 2))
				b.Agent(1).SplashBombs = 0
				b.Agent(0).Wetness = 95
				return b, hold(b, 0)
			},
			want: -1000,
		},
		{
			name:    "enemy side wiped out",
			weights: onlyWeights(func(w *config.Weights) { w.Death = 1000 }),
			setup: func() (*game.Battlefield, []game.ActionSeq) {
				b := field(10, 5, unit(0, 0, 2, 2), unit(1, 1, 4, 2))
				passive(b, 1)
				b.Agent(1).Wetness = 90
				return b, []game.ActionSeq{game.Stay(game.Point{X: 2, Y: 2}, game.Shoot(1))}
			},
			want: 1000,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, seqs := tc.setup()
			b.Turn = 10
			tn := newTurn(b, &tc.weights)
			o := tn.simulate(seqs)
			if math.Abs(o.score-tc.want) > 1e-9 {
				t.Fatalf("score=%v want=%v\n%s", o.score, tc.want, dumpBattlefield(o.after))
			}
		})
	}
}

func TestSimulate_LaterOpponentSeesEarlierMove(t *testing.T) {
	// Both enemies are one step from (2,1), the only cell next to agent 0
	// either can reach.
	b := field(6, 3, unit(0, 0, 1, 1), unit(1, 1, 3, 1), unit(3, 1, 2, 2))
	for _, p := range []game.Point{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 2}, {X: 3, Y: 2}} {
		b.Grid.Set(p, game.TileLowCover)
	}
	passive(b, 1, 3)
	b.Turn = 10
	w := onlyWeights(func(w *config.Weights) { w.Proximity = 1 })
	tn := newTurn(b, &w)

	o := tn.simulate([]game.ActionSeq{game.Stay(game.Point{X: 1, Y: 1}, game.Hunker())})
	t.Logf("after\n%s", dumpBattlefield(o.after))
	if got := o.after.Agent(1).Pos; got != (game.Point{X: 2, Y: 1}) {
		t.Fatalf("first enemy at %v want (2,1)", got)
	}
	if got := o.after.Agent(3).Pos; got != (game.Point{X: 2, Y: 2}) {
		t.Fatalf("second enemy at %v want to stay on (2,2)", got)
	}
}

// expiringClock reads t for the first left readings and an hour later after.
type expiringClock struct {
	t    time.Time
	left int
}

func (c *expiringClock) now() time.Time {
	if c.left > 0 {
		c.left--
		return c.t
	}
	return c.t.Add(time.Hour)
}

func joinSeqs(seqs []game.ActionSeq) string {
	parts := make([]string, len(seqs))
	for i, s := range seqs {
		parts[i] = s.String()
	}
	return strings.Join(parts, "|")
}

func searchField() *game.Battlefield {
	b := field(10, 5, unit(0, 0, 1, 1), unit(2, 0, 1, 3), unit(1, 1, 8, 2))
	b.Turn = 5
	return b
}

func TestSearch_LookaheadCoversShortlist(t *testing.T) {
	w := config.Default()
	tn := newTurn(searchField(), &w)
	clk := &expiringClock{t: time.Unix(0, 0), left: math.MaxInt}
	end := clk.t.Add(time.Second)

	var st Stats
	ranked := tn.shortlist(20, end, clk.now, &st)
	if len(ranked) < lookaheadWidth {
		t.Fatalf("shortlist has %d entries", len(ranked))
	}
	tn.refine(ranked, end, clk.now, &st)
	if st.Lookahead != lookaheadWidth {
		t.Fatalf("lookahead=%d want %d", st.Lookahead, lookaheadWidth)
	}
}

func TestSearch_DeadlineInsideLookaheadKeepsPhaseOneBest(t *testing.T) {
	w := config.Default()
	for reads := 0; reads < 4; reads++ {
		tn := newTurn(searchField(), &w)
		start := time.Unix(0, 0)
		end := start.Add(time.Second)

		var st Stats
		ranked := tn.shortlist(20, end, (&expiringClock{t: start, left: math.MaxInt}).now, &st)
		want := joinSeqs(ranked[0].seqs)

		clk := &expiringClock{t: start, left: reads}
		got := joinSeqs(tn.refine(ranked, end, clk.now, &st))
		if got != want {
			t.Fatalf("reads=%d: chose %s want phase-1 best %s", reads, got, want)
		}
		if st.Lookahead != 0 {
			t.Fatalf("reads=%d: %d lookaheads counted as finished", reads, st.Lookahead)
		}
	}
}
