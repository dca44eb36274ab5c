// Command arena plays a seeded series between two weight sets and archives
// every match to parquet. Finished matches are recorded in a done log so an
// interrupted series resumes where it stopped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/executor/selfplay"
	"github.com/brensch/splash/logging"
	"github.com/brensch/splash/store"
)

func weightsName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func main() {
	pathA := flag.String("a", "default", "Weights for side A: a YAML file, \"default\" or \"tuned\"")
	pathB := flag.String("b", "tuned", "Weights for side B")
	matches := flag.Int("matches", 100, "Number of seeds to play")
	seed := flag.Int64("seed", 1, "First seed")
	swap := flag.Bool("swap", true, "Play every seed twice with sides swapped")
	workers := flag.Int("workers", runtime.GOMAXPROCS(0), "Concurrent matches")
	limit := flag.Duration("limit", 50*time.Millisecond, "Per-decision time limit")
	budget := flag.Int("budget", 1000, "Per-decision permutation budget")
	maxTurns := flag.Int("max-turns", 100, "Turn limit per match")
	outDir := flag.String("out-dir", "data/arena", "Output directory for parquet batches and the done log")
	recordTurns := flag.Bool("turns", false, "Also archive one row per resolved turn")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	logger := logging.New(os.Stderr, &logging.Options{Level: logging.ParseLevel(*logLevel)})

	wa, err := config.LoadOrDefault(*pathA)
	if err != nil {
		logger.Error("load weights", "side", "a", "err", err)
		os.Exit(1)
	}
	wb, err := config.LoadOrDefault(*pathB)
	if err != nil {
		logger.Error("load weights", "side", "b", "err", err)
		os.Exit(1)
	}
	names := [2]string{weightsName(*pathA), weightsName(*pathB)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done, err := store.OpenDoneLog(filepath.Join(*outDir, "logs", "done.log"))
	if err != nil {
		logger.Error("open done log", "err", err)
		os.Exit(1)
	}
	defer done.Close()

	var turns *store.BatchWriter[store.TurnRow]
	if *recordTurns {
		if turns, err = store.NewBatchWriter[store.TurnRow](*outDir, "turns", store.TurnSchema); err != nil {
			logger.Error("open turn writer", "err", err)
			os.Exit(1)
		}
	}

	type job struct {
		seed    int64
		swapped bool
		id      string
	}
	var jobs []job
	for i := 0; i < *matches; i++ {
		s := *seed + int64(i)
		for _, swapped := range []bool{false, true} {
			if swapped && !*swap {
				continue
			}
			id := fmt.Sprintf("%s-vs-%s-%d", names[0], names[1], s)
			if swapped {
				id += "-swapped"
			}
			if done.Has(id) {
				continue
			}
			jobs = append(jobs, job{seed: s, swapped: swapped, id: id})
		}
	}
	logger.Info("starting series", "a", names[0], "b", names[1], "jobs", len(jobs), "already_done", done.Count())

	// Results are normalised so A is always player 0.
	collector := selfplay.NewCollector()
	var mu sync.Mutex
	var rows []store.MatchRow
	var ids []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)
	start := time.Now()
	for _, j := range jobs {
		g.Go(func() error {
			weights := [2]config.Weights{wa, wb}
			sideNames := names
			if j.swapped {
				weights[0], weights[1] = weights[1], weights[0]
				sideNames[0], sideNames[1] = sideNames[1], sideNames[0]
			}
			players := [2]selfplay.Player{
				selfplay.NewEnginePlayer(weights[0], *limit, *budget),
				selfplay.NewEnginePlayer(weights[1], *limit, *budget),
			}
			opts := selfplay.MatchOptions{MaxTurns: *maxTurns, Logger: logger.With("match", j.id)}
			if turns != nil {
				opts.OnTurn = func(r selfplay.TurnRecord) {
					row := store.NewTurnRow(j.id, r.Turn, r.After, r.Orders, r.Territory)
					mu.Lock()
					defer mu.Unlock()
					if err := turns.Write(row); err != nil {
						logger.Warn("turn row dropped", "match", j.id, "turn", r.Turn, "err", err)
					}
				}
			}

			startBoard := selfplay.Generate(j.seed)
			res, err := selfplay.PlayMatch(gctx, selfplay.Generate(j.seed), players, opts)
			if err != nil {
				return fmt.Errorf("match %s: %w", j.id, err)
			}
			row := res.Row(j.id, j.seed, sideNames, startBoard)

			norm := res
			if j.swapped {
				if norm.Winner >= 0 {
					norm.Winner = 1 - norm.Winner
				}
				norm.Points[0], norm.Points[1] = norm.Points[1], norm.Points[0]
				norm.Territory = -norm.Territory
			}
			collector.Add(norm)

			mu.Lock()
			rows = append(rows, row)
			ids = append(ids, j.id)
			mu.Unlock()
			logger.Debug("match finished", "match", j.id, "winner", res.Winner, "reason", res.Reason.String(), "turns", res.Turns)
			return nil
		})
	}
	runErr := g.Wait()

	// Archive whatever finished, even on interrupt, before marking it done.
	if len(rows) > 0 {
		path, err := store.WriteMatchesParquetAtomic(*outDir, rows)
		if err != nil {
			logger.Error("write match rows", "err", err)
			os.Exit(1)
		}
		logger.Info("match rows written", "path", path, "rows", len(rows))
		if err := done.AddMany(ids); err != nil {
			logger.Error("update done log", "err", err)
		}
	}
	if turns != nil {
		path, n, err := turns.Finalize()
		if err != nil {
			logger.Error("finalize turn rows", "err", err)
		} else if n > 0 {
			logger.Info("turn rows written", "path", path, "rows", n)
		}
	}

	s := collector.Summary()
	fmt.Printf("%s vs %s: %d matches in %s\n", names[0], names[1], s.Matches, time.Since(start).Round(time.Second))
	fmt.Printf("  wins    %s=%d %s=%d draws=%d\n", names[0], s.Wins[0], names[1], s.Wins[1], s.Draws)
	fmt.Printf("  %s win rate (draws half) %.3f\n", names[1], s.WinRate(1))
	fmt.Printf("  avg turns %.1f, avg score diff (a-b) %.1f\n", s.AvgTurns, s.AvgScoreDiff)
	reasons := make([]string, 0, len(s.Reasons))
	for r := range s.Reasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("  %-13s %d\n", r, s.Reasons[r])
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("series failed", "err", runErr)
		os.Exit(1)
	}
}
