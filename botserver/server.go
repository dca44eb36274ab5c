package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/executor/engine"
	"github.com/brensch/splash/game"
	"github.com/brensch/splash/httpjson"
)

// API request/response types

type InfoResponse struct {
	APIVersion string `json:"apiversion"`
	Author     string `json:"author"`
	Version    string `json:"version"`
	Sessions   int64  `json:"sessions"`
}

type SpecJSON struct {
	ID       int `json:"id"`
	Player   int `json:"player"`
	Cooldown int `json:"cooldown"`
	Range    int `json:"range"`
	Power    int `json:"power"`
	Bombs    int `json:"bombs"`
}

type AgentJSON struct {
	ID       int `json:"id"`
	X        int `json:"x"`
	Y        int `json:"y"`
	Cooldown int `json:"cooldown"`
	Bombs    int `json:"bombs"`
	Wetness  int `json:"wetness"`
}

// Frame is one battlefield snapshot. Tiles are row-major tile types and,
// with Specs, are only needed on the first frame of a websocket session.
type Frame struct {
	GameID    string      `json:"game_id"`
	Me        int         `json:"me"`
	Turn      int         `json:"turn"`
	TimeoutMs int         `json:"timeout_ms"`
	Width     int         `json:"width,omitempty"`
	Height    int         `json:"height,omitempty"`
	Tiles     []int       `json:"tiles,omitempty"`
	Specs     []SpecJSON  `json:"specs,omitempty"`
	Agents    []AgentJSON `json:"agents"`
	Points    [2]int      `json:"points"`
}

type StatsJSON struct {
	Candidates int   `json:"candidates"`
	Evaluated  int   `json:"evaluated"`
	Lookahead  int   `json:"lookahead"`
	ElapsedMs  int64 `json:"elapsed_ms"`
	Fallback   bool  `json:"fallback,omitempty"`
}

type DecideResponse struct {
	Type   string    `json:"type,omitempty"`
	Turn   int       `json:"turn"`
	Orders []string  `json:"orders"`
	Stats  StatsJSON `json:"stats"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type readyMessage struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	Side   int    `json:"side"`
}

func (f *Frame) grid() (*game.Grid, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("grid size %dx%d", f.Width, f.Height)
	}
	if len(f.Tiles) != f.Width*f.Height {
		return nil, fmt.Errorf("got %d tiles for a %dx%d grid", len(f.Tiles), f.Width, f.Height)
	}
	g := game.NewGrid(f.Width, f.Height)
	for i, t := range f.Tiles {
		if t < int(game.TileEmpty) || t > int(game.TileHighCover) {
			return nil, fmt.Errorf("tile %d has unknown type %d", i, t)
		}
		g.Set(game.Point{X: i % f.Width, Y: i / f.Width}, game.Tile(t))
	}
	return g, nil
}

func (f *Frame) specs() []game.AgentSpec {
	out := make([]game.AgentSpec, len(f.Specs))
	for i, s := range f.Specs {
		out[i] = game.AgentSpec{ID: s.ID, Player: s.Player, ShootCooldown: s.Cooldown, OptimalRange: s.Range, SoakingPower: s.Power, SplashBombs: s.Bombs}
	}
	return out
}

func (f *Frame) checkSide() error {
	if f.Me != 0 && f.Me != 1 {
		return fmt.Errorf("me must be 0 or 1, got %d", f.Me)
	}
	return nil
}

// battlefield places f's agents on g. Agents not listed have been
// eliminated.
func (f *Frame) battlefield(g *game.Grid, specs []game.AgentSpec) (*game.Battlefield, error) {
	if err := f.checkSide(); err != nil {
		return nil, err
	}
	b := &game.Battlefield{Grid: g, Specs: specs, Me: f.Me, Turn: f.Turn, Points: f.Points}
	if b.Turn < 1 {
		b.Turn = 1
	}
	for _, a := range f.Agents {
		spec, ok := b.Spec(a.ID)
		if !ok {
			return nil, fmt.Errorf("agent %d has no spec", a.ID)
		}
		p := game.Point{X: a.X, Y: a.Y}
		if !g.InBounds(p) {
			return nil, fmt.Errorf("agent %d out of bounds at %v", a.ID, p)
		}
		b.Agents = append(b.Agents, game.Agent{
			ID:           a.ID,
			Player:       spec.Player,
			Pos:          p,
			Cooldown:     a.Cooldown,
			SplashBombs:  a.Bombs,
			Wetness:      a.Wetness,
			OptimalRange: spec.OptimalRange,
			SoakingPower: spec.SoakingPower,
		})
	}
	return b, nil
}

// Server decides turns for remote callers. Every websocket session owns one
// engine; POST /decide builds a fresh engine per request.
type Server struct {
	weights        config.Weights
	defaultTimeout time.Duration
	reserve        time.Duration
	floor          time.Duration
	budget         int
	logger         *slog.Logger
	upgrader       websocket.Upgrader

	sessions atomic.Int64
}

func NewServer(w config.Weights, defaultTimeout, reserve, floor time.Duration, budget int, logger *slog.Logger) *Server {
	return &Server{
		weights:        w,
		defaultTimeout: defaultTimeout,
		reserve:        reserve,
		floor:          floor,
		budget:         budget,
		logger:         logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/decide", s.handleDecide)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// computeTime leaves the reserve for overhead and network latency, but never
// drops below the floor.
func (s *Server) computeTime(timeoutMs int) time.Duration {
	timeout := s.defaultTimeout
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	return max(timeout-s.reserve, s.floor)
}

func (s *Server) decide(e *engine.Engine, b *game.Battlefield, timeoutMs int) DecideResponse {
	lines := e.Decide(b, s.computeTime(timeoutMs), s.budget, false)
	st := e.LastStats()
	return DecideResponse{
		Type:   "orders",
		Turn:   b.Turn,
		Orders: lines,
		Stats: StatsJSON{
			Candidates: st.Candidates,
			Evaluated:  st.Evaluated,
			Lookahead:  st.Lookahead,
			ElapsedMs:  st.Elapsed.Milliseconds(),
			Fallback:   st.Fallback,
		},
	}
}

// handleIndex returns the server info
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	httpjson.Write(w, http.StatusOK, InfoResponse{
		APIVersion: "1",
		Author:     "splash",
		Version:    "1.0.0",
		Sessions:   s.sessions.Load(),
	})
}

// handleDecide answers one self-contained frame.
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var f Frame
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		httpjson.Write(w, http.StatusBadRequest, errorMessage{Type: "error", Error: err.Error()})
		return
	}
	g, err := f.grid()
	if err != nil {
		httpjson.Write(w, http.StatusBadRequest, errorMessage{Type: "error", Error: err.Error()})
		return
	}
	b, err := f.battlefield(g, f.specs())
	if err != nil {
		httpjson.Write(w, http.StatusBadRequest, errorMessage{Type: "error", Error: err.Error()})
		return
	}

	e := engine.New(s.weights, engine.WithLogger(s.logger))
	e.Initialize(b, f.Me)
	resp := s.decide(e, b, f.TimeoutMs)
	s.logger.Info("decided", "game", f.GameID, "turn", resp.Turn, "orders", len(resp.Orders), "elapsed_ms", resp.Stats.ElapsedMs)
	httpjson.Write(w, http.StatusOK, resp)
}

// handleWS runs one game per connection. The first frame carries the grid
// and specs, every later frame gets an orders reply.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	s.sessions.Add(1)
	defer s.sessions.Add(-1)

	var (
		e     *engine.Engine
		grid  *game.Grid
		specs []game.AgentSpec
	)
	logger := s.logger.With("remote", r.RemoteAddr)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("session ended", "err", err)
			}
			return
		}

		var f Frame
		var reply any
		if err := json.Unmarshal(payload, &f); err != nil {
			logger.Warn("discarding malformed frame", "err", err)
			reply = errorMessage{Type: "error", Error: err.Error()}
		} else if e == nil {
			err = f.checkSide()
			if err == nil {
				grid, err = f.grid()
			}
			if err != nil {
				reply = errorMessage{Type: "error", Error: err.Error()}
			} else {
				specs = f.specs()
				e = engine.New(s.weights, engine.WithLogger(logger))
				e.Initialize(&game.Battlefield{Grid: grid, Specs: specs, Me: f.Me}, f.Me)
				logger = logger.With("game", f.GameID)
				reply = readyMessage{Type: "ready", GameID: f.GameID, Side: f.Me}
			}
		} else {
			b, err := f.battlefield(grid, specs)
			if err != nil {
				reply = errorMessage{Type: "error", Error: err.Error()}
			} else {
				resp := s.decide(e, b, f.TimeoutMs)
				logger.Debug("decided", "turn", resp.Turn, "orders", len(resp.Orders), "elapsed_ms", resp.Stats.ElapsedMs)
				reply = resp
			}
		}

		data, err := json.Marshal(reply)
		if err != nil {
			logger.Error("encode reply", "err", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
