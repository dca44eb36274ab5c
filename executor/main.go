package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/executor/selfplay"
	"github.com/brensch/splash/executor/tuning"
	"github.com/brensch/splash/logging"
	"github.com/brensch/splash/store"
)

var totalMatches atomic.Int64
var totalTurns atomic.Int64
var totalImprovements atomic.Int64

type writeRequest struct {
	match  *store.MatchRow
	tuning *store.TuningRow
}

type model struct {
	method       string
	matches      int64
	turns        int64
	improvements int64
	bestRate     float64
	startTime    time.Time
	recent       []string
	updates      chan tuning.Improvement
	done         bool
}

func initialModel(method string, updates chan tuning.Improvement) model {
	return model{
		method:    method,
		startTime: time.Now(),
		updates:   updates,
	}
}

type TickMsg time.Time

type finishedMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan tuning.Improvement) tea.Cmd {
	return func() tea.Msg {
		imp, ok := <-updates
		if !ok {
			return finishedMsg{}
		}
		return imp
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.matches = totalMatches.Load()
		m.turns = totalTurns.Load()
		m.improvements = totalImprovements.Load()
		return m, tickCmd()
	case tuning.Improvement:
		m.bestRate = msg.WinRate
		line := fmt.Sprintf("iter %d: win rate %.3f", msg.Iteration, msg.WinRate)
		if msg.Field != "" {
			line += " via " + msg.Field
		}
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > 10 {
			m.recent = m.recent[:10]
		}
		return m, waitForUpdate(m.updates)
	case finishedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	matchesPerSec := float64(m.matches) / duration.Seconds()
	turnsPerSec := float64(m.turns) / duration.Seconds()
	if duration.Seconds() < 1 {
		matchesPerSec = 0
		turnsPerSec = 0
	}

	s := fmt.Sprintf("Method:         %s\n", m.method)
	s += fmt.Sprintf("Matches Played: %d\n", m.matches)
	s += fmt.Sprintf("Turns Played:   %d\n", m.turns)
	s += fmt.Sprintf("Improvements:   %d\n", m.improvements)
	s += fmt.Sprintf("Best Win Rate:  %.3f\n", m.bestRate)
	s += fmt.Sprintf("Duration:       %s\n", duration.Round(time.Second))
	s += fmt.Sprintf("Matches/Sec:    %.2f\n", matchesPerSec)
	s += fmt.Sprintf("Turns/Sec:      %.2f\n\n", turnsPerSec)

	s += "Recent Improvements:\n"
	for _, l := range m.recent {
		s += l + "\n"
	}

	if m.done {
		s += "\nDone.\n"
	} else {
		s += "\nPress q to quit.\n"
	}
	return s
}

type tuner interface {
	Run(ctx context.Context, n int) (config.Weights, float64, error)
}

func main() {
	method := flag.String("method", "hill", "Tuning method: hill or coord")
	iterations := flag.Int("iterations", 50, "Hill-climbing iterations, or coordinate-descent sweeps")
	matches := flag.Int("matches", tuning.DefaultMatches, "Matches per hill-climbing evaluation and per coordinate-descent confirmation")
	basePath := flag.String("base", "default", "Baseline weights: a YAML file, \"default\" or \"tuned\"")
	workers := flag.Int("workers", 0, "Concurrent matches (0 = GOMAXPROCS)")
	limit := flag.Duration("limit", 20*time.Millisecond, "Per-decision time limit")
	budget := flag.Int("budget", 500, "Per-decision permutation budget")
	maxTurns := flag.Int("max-turns", 100, "Turn limit per match")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Seed for perturbations and match generation")
	outDir := flag.String("out-dir", "data/tuning", "Output directory for parquet batches and weight snapshots")
	matchesPerFlush := flag.Int("matches-per-flush", 500, "Number of match rows to buffer per parquet flush")
	useTUI := flag.Bool("tui", false, "Show a terminal dashboard instead of periodic log lines")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create out dir: %v\n", err)
		os.Exit(1)
	}

	// The dashboard owns the terminal, so logs go to a file.
	var logOut io.Writer = os.Stderr
	if *useTUI {
		f, err := os.OpenFile(filepath.Join(*outDir, "tuning.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.New(logOut, &logging.Options{Level: logging.ParseLevel(*logLevel), Compact: *useTUI})

	base, err := config.LoadOrDefault(*basePath)
	if err != nil {
		logger.Error("load baseline", "path", *basePath, "err", err)
		os.Exit(1)
	}

	runID := time.Now().UTC().Format("20060102T150405")
	logger.Info("starting tuning run", "run", runID, "method", *method, "iterations", *iterations, "seed", *seed)

	writeReqs := make(chan writeRequest, 1024)
	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(logger, *outDir, *matchesPerFlush, writeReqs)
		close(writerDone)
	}()

	arena := &tuning.Arena{
		Limit:    *limit,
		Budget:   *budget,
		MaxTurns: *maxTurns,
		Workers:  *workers,
		Logger:   logger.With("component", "arena"),
		OnMatch: func(s int64, r selfplay.Result) {
			totalMatches.Add(1)
			totalTurns.Add(int64(r.Turns))
			row := r.Row(fmt.Sprintf("%s-%d", runID, s), s, [2]string{"baseline", "candidate"}, selfplay.Generate(s))
			writeReqs <- writeRequest{match: &row}
		},
	}

	updates := make(chan tuning.Improvement, 16)
	onImprove := func(imp tuning.Improvement) {
		totalImprovements.Add(1)
		snap := filepath.Join(*outDir, fmt.Sprintf("%s_%s_%04d.yaml", runID, imp.Method, imp.Iteration))
		for _, p := range []string{snap, filepath.Join(*outDir, "best.yaml")} {
			if err := config.Save(p, imp.Weights); err != nil {
				logger.Error("snapshot weights", "path", p, "err", err)
			}
		}
		writeReqs <- writeRequest{tuning: &store.TuningRow{
			RunID:     runID,
			Method:    imp.Method,
			Iteration: int32(imp.Iteration),
			Field:     imp.Field,
			WinRate:   imp.WinRate,
			Played:    arena.Played(),
			Weights:   store.WeightColumns(imp.Weights),
			At:        time.Now().UnixMilli(),
		}}
		logger.Info("improvement", "method", imp.Method, "iteration", imp.Iteration, "field", imp.Field, "win_rate", imp.WinRate, "snapshot", snap)
		select {
		case updates <- imp:
		default:
		}
	}

	var t tuner
	switch *method {
	case "hill":
		h := tuning.NewHillClimber(arena.WinRate, base, *seed)
		h.Matches = *matches
		h.OnImprove = onImprove
		t = h
	case "coord":
		c := tuning.NewCoordinateDescent(arena.WinRate, base, *seed)
		c.Confirm = *matches
		c.OnImprove = onImprove
		t = c
	default:
		logger.Error("unknown method", "method", *method)
		os.Exit(2)
	}

	tunerDone := make(chan struct{})
	var best config.Weights
	var bestRate float64
	var runErr error
	go func() {
		defer close(tunerDone)
		best, bestRate, runErr = t.Run(ctx, *iterations)
		close(updates)
	}()

	if *useTUI {
		p := tea.NewProgram(initialModel(*method, updates), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			logger.Error("dashboard", "err", err)
		}
		cancel()
	} else {
		startTime := time.Now()
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-tunerDone:
				break loop
			case <-ticker.C:
				elapsed := time.Since(startTime).Seconds()
				logger.Info("progress",
					"matches", totalMatches.Load(),
					"matches_per_sec", float64(totalMatches.Load())/elapsed,
					"turns_per_sec", float64(totalTurns.Load())/elapsed,
					"improvements", totalImprovements.Load())
			}
		}
	}

	<-tunerDone
	close(writeReqs)
	<-writerDone

	if runErr != nil && ctx.Err() == nil {
		logger.Error("tuning failed", "err", runErr)
		os.Exit(1)
	}
	finalPath := filepath.Join(*outDir, runID+"_final.yaml")
	if err := config.Save(finalPath, best); err != nil {
		logger.Error("save final weights", "path", finalPath, "err", err)
		os.Exit(1)
	}
	logger.Info("tuning finished", "run", runID, "win_rate", bestRate, "matches", totalMatches.Load(), "weights", finalPath, "interrupted", ctx.Err() != nil)
}

// parquetWriterLoop archives match rows in batches of matchesPerFlush and
// every tuning row as soon as it arrives.
func parquetWriterLoop(logger *slog.Logger, outDir string, matchesPerFlush int, in <-chan writeRequest) {
	if matchesPerFlush <= 0 {
		matchesPerFlush = 500
	}

	pending := make([]store.MatchRow, 0, matchesPerFlush)
	flush := func(final bool) {
		if len(pending) == 0 {
			return
		}
		outPath, err := store.WriteMatchesParquetAtomic(outDir, pending)
		if err != nil {
			logger.Error("parquet flush failed", "rows", len(pending), "final", final, "err", err)
		} else {
			logger.Info("parquet flush ok", "path", outPath, "rows", len(pending), "final", final)
		}
		pending = pending[:0]
	}

	for req := range in {
		if req.tuning != nil {
			if outPath, err := store.WriteTuningParquetAtomic(outDir, []store.TuningRow{*req.tuning}); err != nil {
				logger.Error("tuning row write failed", "err", err)
			} else {
				logger.Debug("tuning row written", "path", outPath)
			}
		}
		if req.match != nil {
			pending = append(pending, *req.match)
			if len(pending) >= matchesPerFlush {
				flush(false)
			}
		}
	}
	flush(true)
}
