// Command viewer serves the match and tuning archive over HTTP. Parquet
// batches under the data roots are queried in place through DuckDB.
package main

import (
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brensch/splash/logging"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", ":8090", "HTTP listen address")
	roots := fs.String("roots", "data/arena,data/tuning", "Comma-separated directories holding parquet batches")
	refresh := fs.Duration("refresh", 30*time.Second, "How often to pick up new parquet files")
	logLevel := fs.String("log-level", "info", "debug, info, warn or error")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	logger := logging.New(os.Stderr, &logging.Options{Level: logging.ParseLevel(*logLevel), Compact: true})

	server := NewServer(strings.Split(*roots, ","), *refresh, logger)
	defer server.dbCache.Close()

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	srv := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("viewer listening", "addr", *listen, "roots", *roots)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
