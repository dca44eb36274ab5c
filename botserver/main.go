// Command botserver serves engine decisions over HTTP and websockets.
//
// GET / reports server info, POST /decide answers a single battlefield frame,
// and /ws keeps one engine per connection for a whole game.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/logging"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", ":8080", "HTTP listen address")
	weightsPath := fs.String("weights", "tuned", "Weights: a YAML file, \"default\" or \"tuned\"")
	timeout := fs.Duration("timeout", 50*time.Millisecond, "Turn timeout when a frame carries none")
	reserve := fs.Duration("reserve", 10*time.Millisecond, "Time kept back from each timeout for overhead")
	floor := fs.Duration("floor", 20*time.Millisecond, "Minimum compute time per decision")
	budget := fs.Int("budget", 2000, "Per-decision permutation budget")
	logLevel := fs.String("log-level", "info", "debug, info, warn or error")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	logger := logging.New(os.Stderr, &logging.Options{Level: logging.ParseLevel(*logLevel), Compact: true})

	w, err := config.LoadOrDefault(*weightsPath)
	if err != nil {
		logger.Error("load weights", "path", *weightsPath, "err", err)
		os.Exit(1)
	}

	server := NewServer(w, *timeout, *reserve, *floor, *budget, logger)
	srv := &http.Server{
		Addr:              *listen,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("bot server listening", "addr", *listen, "weights", *weightsPath)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
