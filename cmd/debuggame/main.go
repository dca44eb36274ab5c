// Command debuggame plays one seeded match and prints the board and both
// engines' search statistics after every turn.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/executor/engine"
	"github.com/brensch/splash/executor/selfplay"
	"github.com/brensch/splash/logging"
)

func main() {
	seed := flag.Int64("seed", 1, "Map seed")
	pathA := flag.String("a", "default", "Weights for player 0")
	pathB := flag.String("b", "tuned", "Weights for player 1")
	limit := flag.Duration("limit", 50*time.Millisecond, "Per-decision time limit")
	budget := flag.Int("budget", 1000, "Per-decision permutation budget")
	maxTurns := flag.Int("max-turns", 100, "Turn limit")
	engineSeed := flag.Int64("engine-seed", 1, "Seed for the engines' opening moves")
	flag.Parse()

	logger := logging.New(os.Stderr, &logging.Options{Level: logging.ParseLevel("warn"), Compact: true})

	var players [2]*selfplay.EnginePlayer
	for side, path := range []string{*pathA, *pathB} {
		w, err := config.LoadOrDefault(path)
		if err != nil {
			logger.Error("load weights", "path", path, "err", err)
			os.Exit(1)
		}
		players[side] = selfplay.NewEnginePlayer(w, *limit, *budget, engine.WithSeed(*engineSeed+int64(side)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	b := selfplay.Generate(*seed)
	fmt.Printf("seed %d: %dx%d, %d agents\n%s\n", *seed, b.Grid.Width, b.Grid.Height, len(b.Agents), selfplay.FormatBoard(b))

	onTurn := func(r selfplay.TurnRecord) {
		fmt.Printf("turn %3d | territory %+d | points %d-%d | rejected %d\n", r.Turn, r.Territory, r.After.Points[0], r.After.Points[1], r.Rejected)
		for side, p := range players {
			st := p.Engine.LastStats()
			fmt.Printf("  p%d %v | cand %d eval %d look %d %s", side, r.Orders[side], st.Candidates, st.Evaluated, st.Lookahead, st.Elapsed.Round(time.Millisecond))
			switch {
			case st.Opening:
				fmt.Print(" opening")
			case st.Fallback:
				fmt.Print(" fallback")
			}
			fmt.Println()
		}
		fmt.Println(selfplay.FormatBoard(r.After))
	}

	res, err := selfplay.PlayMatch(ctx, b, [2]selfplay.Player{players[0], players[1]}, selfplay.MatchOptions{
		MaxTurns: *maxTurns,
		Logger:   logger,
		OnTurn:   onTurn,
	})
	if err != nil {
		logger.Error("match aborted", "err", err)
		os.Exit(1)
	}
	fmt.Printf("winner %d by %s after %d turns (points %d-%d)\n", res.Winner, res.Reason, res.Turns, res.Points[0], res.Points[1])
}
