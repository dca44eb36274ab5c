// Package tuning searches the scoring weights for a set that beats a fixed
// baseline in self-play.
package tuning

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/executor/selfplay"
)

// EvalFunc returns the share of n matches that candidate wins against
// baseline. Matches use the seeds seed, seed+1, ..., seed+n-1.
type EvalFunc func(ctx context.Context, candidate, baseline config.Weights, n int, seed int64) (float64, error)

// Arena plays the matches behind an EvalFunc.
type Arena struct {
	Limit    time.Duration
	Budget   int
	MaxTurns int
	// Workers caps concurrent matches. Zero means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
	// OnMatch, if set, sees every finished match. It may be called from
	// several goroutines at once.
	OnMatch func(seed int64, r selfplay.Result)

	played atomic.Int64
}

// Played counts matches finished since the arena was created.
func (a *Arena) Played() int64 { return a.played.Load() }

// WinRate plays n matches in parallel, the candidate always as player 1.
// Draws count as losses.
func (a *Arena) WinRate(ctx context.Context, candidate, baseline config.Weights, n int, seed int64) (float64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("win rate needs at least one match, got %d", n)
	}
	workers := a.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var wins atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		s := seed + int64(i)
		g.Go(func() error {
			players := [2]selfplay.Player{
				selfplay.NewEnginePlayer(baseline, a.Limit, a.Budget),
				selfplay.NewEnginePlayer(candidate, a.Limit, a.Budget),
			}
			res, err := selfplay.PlayMatch(gctx, selfplay.Generate(s), players, selfplay.MatchOptions{
				MaxTurns: a.MaxTurns,
				Logger:   a.Logger,
			})
			if err != nil {
				return fmt.Errorf("match seed %d: %w", s, err)
			}
			if res.Winner == 1 {
				wins.Add(1)
			}
			a.played.Add(1)
			if a.OnMatch != nil {
				a.OnMatch(s, res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return float64(wins.Load()) / float64(n), nil
}

// Improvement is reported whenever a tuner adopts a new incumbent.
type Improvement struct {
	Method    string
	Iteration int
	Field     string // coordinate descent only
	WinRate   float64
	Weights   config.Weights
}
