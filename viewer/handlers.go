package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brensch/splash/executor/selfplay"
	"github.com/brensch/splash/game"
	"github.com/brensch/splash/httpjson"
)

// Server holds shared state for HTTP handlers.
type Server struct {
	dbCache *DBCache
	logger  *slog.Logger
}

func NewServer(roots []string, refresh time.Duration, logger *slog.Logger) *Server {
	return &Server{
		dbCache: NewDBCache(roots, refresh, logger),
		logger:  logger,
	}
}

// RegisterRoutes sets up all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/matches", s.handleMatches)
	mux.HandleFunc("/api/matches/", s.handleMatch)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/tuning", s.handleTuning)
}

// get guards the common preamble: CORS, GET only and a live DB.
func (s *Server) get(w http.ResponseWriter, r *http.Request) (*sql.DB, bool) {
	httpjson.AllowCORS(w, http.MethodGet)
	if r.Method == http.MethodOptions {
		return nil, false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return db, true
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	db, ok := s.get(w, r)
	if !ok {
		return
	}
	limit := parseIntQuery(r, "limit", 100)
	offset := parseIntQuery(r, "offset", 0)
	total, err := queryMatchesTotal(r.Context(), db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	matches, err := queryMatches(r.Context(), db, limit, offset, r.URL.Query().Get("sort"), r.URL.Query().Get("dir"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	httpjson.Write(w, http.StatusOK, MatchesResponse{Total: total, Matches: matches})
}

// handleMatch serves /api/matches/{id}/turns and /api/matches/{id}/board?turn=N.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	db, ok := s.get(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/matches/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	matchID, err := url.PathUnescape(parts[0])
	if err != nil {
		http.Error(w, "bad match id", http.StatusBadRequest)
		return
	}

	turns, err := queryTurns(r.Context(), db, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	switch parts[1] {
	case "turns":
		httpjson.Write(w, http.StatusOK, turns)
	case "board":
		n := parseIntQuery(r, "turn", len(turns))
		if n < 1 || n > len(turns) {
			http.Error(w, fmt.Sprintf("turn %d out of range 1..%d", n, len(turns)), http.StatusBadRequest)
			return
		}
		board, err := s.renderBoard(r.Context(), db, turns[n-1])
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(board))
	default:
		http.NotFound(w, r)
	}
}

// renderBoard regenerates the match's map from its seed and places the
// archived agents on it.
func (s *Server) renderBoard(ctx context.Context, db *sql.DB, t Turn) (string, error) {
	var seed int64
	if err := db.QueryRowContext(ctx, `SELECT seed FROM matches WHERE match_id = ? LIMIT 1`, t.MatchID).Scan(&seed); err != nil {
		return "", fmt.Errorf("seed of %s: %w", t.MatchID, err)
	}
	b := selfplay.Generate(seed)
	if b.Grid.Width != int(t.Width) || b.Grid.Height != int(t.Height) {
		return "", fmt.Errorf("seed %d gives a %dx%d map, archive has %dx%d", seed, b.Grid.Width, b.Grid.Height, t.Width, t.Height)
	}
	b.Turn = int(t.Turn)
	b.Points = [2]int{int(t.Points0), int(t.Points1)}
	b.Agents = b.Agents[:0]
	for _, a := range t.Agents {
		b.Agents = append(b.Agents, game.Agent{
			ID:          int(a.ID),
			Player:      int(a.Player),
			Pos:         game.Point{X: int(a.X), Y: int(a.Y)},
			Wetness:     int(a.Wetness),
			Cooldown:    int(a.Cooldown),
			SplashBombs: int(a.Bombs),
		})
	}
	return selfplay.FormatBoard(b), nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	db, ok := s.get(w, r)
	if !ok {
		return
	}
	stats, err := queryStats(r.Context(), db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	httpjson.Write(w, http.StatusOK, stats)
}

func (s *Server) handleTuning(w http.ResponseWriter, r *http.Request) {
	db, ok := s.get(w, r)
	if !ok {
		return
	}
	imps, err := queryTuning(r.Context(), db, strings.TrimSpace(r.URL.Query().Get("run")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	httpjson.Write(w, http.StatusOK, imps)
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
