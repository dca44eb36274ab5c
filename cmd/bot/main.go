// Command bot plays one match against the referee over stdin and stdout.
// Logs go to stderr only.
package main

import (
	"bufio"
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/executor/engine"
	"github.com/brensch/splash/logging"
	"github.com/brensch/splash/protocol"
)

func main() {
	weightsPath := flag.String("weights", "tuned", "Weights: a YAML file, \"default\" or \"tuned\"")
	limit := flag.Duration("limit", 45*time.Millisecond, "Per-turn time limit")
	firstLimit := flag.Duration("first-limit", 500*time.Millisecond, "Time limit on turn 1")
	budget := flag.Int("budget", 2000, "Per-turn permutation budget")
	opening := flag.Int("opening", 0, "Skip the search for this many opening turns")
	pass := flag.Bool("pass", false, "Hunker instead of moving randomly during the opening")
	logLevel := flag.String("log-level", "warn", "debug, info, warn or error")
	flag.Parse()

	logger := logging.New(os.Stderr, &logging.Options{Level: logging.ParseLevel(*logLevel), Compact: true})

	w, err := config.LoadOrDefault(*weightsPath)
	if err != nil {
		logger.Error("load weights", "path", *weightsPath, "err", err)
		os.Exit(1)
	}

	r := protocol.NewReader(bufio.NewReader(os.Stdin))
	b, err := r.ReadInit()
	if err != nil {
		logger.Error("read init", "err", err)
		os.Exit(1)
	}
	e := engine.New(w,
		engine.WithLogger(logger),
		engine.WithFirstTurnLimit(*firstLimit),
		engine.WithOpeningTurns(*opening),
	)

	for {
		if err := r.ReadTurn(b); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			logger.Error("read turn", "turn", b.Turn+1, "err", err)
			os.Exit(1)
		}
		if b.Turn == 1 {
			e.Initialize(b, b.Me)
		}
		lines := e.Decide(b, *limit, *budget, *pass)
		if err := protocol.WriteOrders(os.Stdout, lines); err != nil {
			logger.Error("write orders", "err", err)
			os.Exit(1)
		}
	}
}
