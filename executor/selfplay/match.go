package selfplay

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/executor/engine"
	"github.com/brensch/splash/game"
	"github.com/brensch/splash/rules"
)

// Player decides for one side of a match. A player sees a private clone of
// the battlefield with Me set to its side and returns the referee's order
// lines.
type Player interface {
	Initialize(b *game.Battlefield, side int)
	Decide(b *game.Battlefield) []string
}

// EnginePlayer adapts an engine with fixed per-call arguments.
type EnginePlayer struct {
	Engine *engine.Engine
	Limit  time.Duration
	Budget int
	Pass   bool
}

func NewEnginePlayer(w config.Weights, limit time.Duration, budget int, opts ...engine.Option) *EnginePlayer {
	return &EnginePlayer{Engine: engine.New(w, opts...), Limit: limit, Budget: budget}
}

func (p *EnginePlayer) Initialize(b *game.Battlefield, side int) { p.Engine.Initialize(b, side) }

func (p *EnginePlayer) Decide(b *game.Battlefield) []string {
	return p.Engine.Decide(b, p.Limit, p.Budget, p.Pass)
}

// MatchOptions tune PlayMatch. The zero value plays DefaultMaxTurns silently.
type MatchOptions struct {
	MaxTurns int
	Logger   *slog.Logger
	// Verbose logs the board at debug level after every turn.
	Verbose bool
	// OnTurn is called after each resolved turn.
	OnTurn func(TurnRecord)
}

// TurnRecord is one resolved turn. After is a private copy.
type TurnRecord struct {
	Turn      int
	Orders    [2][]string
	Rejected  int
	Territory int
	After     *game.Battlefield
}

type Result struct {
	Winner    int
	Reason    rules.Reason
	Turns     int
	Points    [2]int
	Territory int
	Rejected  int
}

// PlayMatch runs a full match on b, which it consumes. Both players decide
// concurrently every turn. Unparsable or illegal order lines are dropped and
// the agent does nothing that turn. The only error is ctx's.
func PlayMatch(ctx context.Context, b *game.Battlefield, players [2]Player, opts MatchOptions) (Result, error) {
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = rules.DefaultMaxTurns
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	for side, p := range players {
		p.Initialize(b.ForPlayer(side), side)
	}

	var res Result
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var lines [2][]string
		var wg sync.WaitGroup
		for side := range players {
			wg.Add(1)
			go func(side int) {
				defer wg.Done()
				lines[side] = players[side].Decide(b.ForPlayer(side))
			}(side)
		}
		wg.Wait()

		orders, rejected := collectOrders(b, lines, logger)
		res.Rejected += rejected
		rules.Resolve(b, orders)
		res.Territory = rules.ScoreTerritory(b)

		if opts.Verbose {
			logger.Debug("turn resolved", "turn", b.Turn-1, "board", FormatBoard(b))
		}
		if opts.OnTurn != nil {
			opts.OnTurn(TurnRecord{
				Turn:      b.Turn - 1,
				Orders:    lines,
				Rejected:  rejected,
				Territory: res.Territory,
				After:     b.Clone(),
			})
		}

		out := rules.CheckVictory(b, maxTurns)
		if out.Done {
			res.Winner = out.Winner
			res.Reason = out.Reason
			res.Turns = b.Turn - 1
			res.Points = b.Points
			return res, nil
		}
	}
}

// collectOrders parses and validates both sides' lines against the
// pre-turn battlefield. Only the first order per agent counts.
func collectOrders(b *game.Battlefield, lines [2][]string, logger *slog.Logger) ([]game.Order, int) {
	pos := func(id int) (game.Point, bool) {
		if a := b.Agent(id); a != nil {
			return a.Pos, true
		}
		return game.Point{}, false
	}
	var orders []game.Order
	seen := make(map[int]bool)
	rejected := 0
	for side, ls := range lines {
		view := b.ForPlayer(side)
		for _, l := range ls {
			o, err := game.ParseOrder(l, pos)
			if err == nil {
				err = rules.Validate(view, o)
			}
			if err == nil && seen[o.AgentID] {
				continue
			}
			if err != nil {
				rejected++
				logger.Warn("dropping order", "side", side, "turn", b.Turn, "line", l, "err", err)
				continue
			}
			seen[o.AgentID] = true
			orders = append(orders, o)
		}
	}
	return orders, rejected
}
