// Package engine picks one action sequence for every agent of a side under a
// wall-clock budget.
//
// A decision enumerates each agent's sequences, scores them individually,
// prunes every list to a width that keeps the joint product within the
// permutation budget, and walks joint actions best-first on the summed
// individual scores. Every joint action popped is played out against a greedy
// opponent reply and scored in full. The best few then get a one-turn
// lookahead. All state lives in a per-call context built on a private clone,
// so two engines may decide concurrently without locking.
package engine

import (
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/game"
)

const (
	minPhase1    = 40 * time.Millisecond
	phase2Margin = 10 * time.Millisecond
)

// Stats describes the last decision.
type Stats struct {
	Turn       int
	Candidates int
	Evaluated  int
	Lookahead  int
	Elapsed    time.Duration
	Fallback   bool
	Opening    bool
}

type Engine struct {
	weights config.Weights
	logger  *slog.Logger
	rng     *rand.Rand
	now     func() time.Time

	firstTurnLimit time.Duration
	openingTurns   int

	side        int
	initialized bool
	last        Stats
}

type Option func(*Engine)

// WithLogger sets the logger for per-decision debug records.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSeed seeds the random opening moves.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewSource(seed)) }
}

// WithFirstTurnLimit replaces the per-call limit on turn 1.
func WithFirstTurnLimit(d time.Duration) Option {
	return func(e *Engine) { e.firstTurnLimit = d }
}

// WithOpeningTurns skips the search for turns up to n.
func WithOpeningTurns(n int) Option {
	return func(e *Engine) { e.openingTurns = n }
}

func withClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(w config.Weights, opts ...Option) *Engine {
	e := &Engine{
		weights: w,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
		side:    -1,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Initialize binds the engine to a side. Later battlefields are always read
// from that side's point of view.
func (e *Engine) Initialize(b *game.Battlefield, side int) {
	e.side = side
	e.initialized = true
	e.logger.Debug("engine initialized",
		"side", side,
		"width", b.Grid.Width,
		"height", b.Grid.Height,
		"agents", len(b.Agents),
	)
}

// LastStats returns the statistics of the most recent decision.
func (e *Engine) LastStats() Stats { return e.last }

// Decide returns one "<id>;<cmd>..." line per surviving agent of the side.
// b is not modified.
func (e *Engine) Decide(b *game.Battlefield, limit time.Duration, budget int, pass bool) []string {
	orders := e.Orders(b, limit, budget, pass)
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.String()
	}
	return out
}

// Orders is Decide without the text formatting.
func (e *Engine) Orders(b *game.Battlefield, limit time.Duration, budget int, pass bool) []game.Order {
	start := e.now()
	work := b.Clone()
	if e.initialized {
		work.Me = e.side
	}
	work.PruneEliminated()

	if work.Turn == 1 && e.firstTurnLimit > 0 {
		limit = e.firstTurnLimit
	}
	st := Stats{Turn: work.Turn}
	t := newTurn(work, &e.weights)

	var seqs []game.ActionSeq
	switch {
	case len(t.mine) == 0:
	case work.Turn <= e.openingTurns:
		st.Opening = true
		if pass {
			seqs = hunkerAll(t.mine)
		} else {
			seqs = e.randomSeqs(t)
		}
	default:
		phase1 := start.Add(max(minPhase1, limit-phase2Margin))
		var ok bool
		seqs, ok = t.search(budget, phase1, start.Add(limit), e.now, &st)
		if !ok {
			st.Fallback = true
			seqs = hunkerAll(t.mine)
		}
	}

	orders := make([]game.Order, len(seqs))
	for i, s := range seqs {
		orders[i] = game.Order{AgentID: t.mine[i].ID, Seq: s}
	}
	st.Elapsed = e.now().Sub(start)
	e.last = st
	e.logger.Debug("decision",
		"turn", st.Turn,
		"side", work.Me,
		"candidates", st.Candidates,
		"evaluated", st.Evaluated,
		"lookahead", st.Lookahead,
		"fallback", st.Fallback,
		"opening", st.Opening,
		"elapsed", st.Elapsed,
	)
	return orders
}

// randomSeqs picks a uniformly random legal sequence per agent, keeping
// destinations apart.
func (e *Engine) randomSeqs(t *turn) []game.ActionSeq {
	occ := occupancy(t.b)
	throwOK := ownThrowFilter(t.mine, t.enemies)
	out := make([]game.ActionSeq, len(t.mine))
	for i, a := range t.mine {
		cands := enumerate(t.b.Grid, a, occ, t.enemies, throwOK)
		s := cands[e.rng.Intn(len(cands))]
		occ.remove(a.Pos)
		occ.add(s.Dest)
		out[i] = s
	}
	return out
}
