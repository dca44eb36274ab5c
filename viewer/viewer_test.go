package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/executor/selfplay"
	"github.com/brensch/splash/logging"
	"github.com/brensch/splash/rules"
	"github.com/brensch/splash/store"
)

func seedArchive(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	names := [2]string{"default", "tuned"}

	start := selfplay.Generate(5)
	m1 := selfplay.Result{Winner: 1, Reason: rules.ReasonElimination, Turns: 2, Points: [2]int{1, 4}}.Row("m1", 5, names, start)
	m2 := selfplay.Result{Winner: -1, Reason: rules.ReasonDraw, Turns: 100, Points: [2]int{3, 3}}.Row("m2", 6, names, selfplay.Generate(6))
	if _, err := store.WriteMatchesParquetAtomic(dir, []store.MatchRow{m1, m2}); err != nil {
		t.Fatalf("write matches: %v", err)
	}

	first := start.Clone()
	first.Agent(1).Wetness = 30
	second := first.Clone()
	second.Points = [2]int{1, 4}
	turns := []store.TurnRow{
		store.NewTurnRow("m1", 1, first, [2][]string{{"0;HUNKER_DOWN"}, {"1;SHOOT 0"}}, 2),
		store.NewTurnRow("m1", 2, second, [2][]string{nil, {"1;HUNKER_DOWN"}}, -1),
	}
	if _, err := store.WriteTurnsParquetAtomic(dir, turns); err != nil {
		t.Fatalf("write turns: %v", err)
	}

	w := config.Default()
	w.Cover = 1.25
	if _, err := store.WriteTuningParquetAtomic(dir, []store.TuningRow{
		{RunID: "r1", Method: "hill_climb", Iteration: 3, WinRate: 0.58, Played: 400, Weights: store.WeightColumns(w), At: 10},
		{RunID: "r2", Method: "coordinate_descent", Iteration: 0, Field: "cover_bonus", WinRate: 0.55, Weights: store.WeightColumns(w), At: 20},
	}); err != nil {
		t.Fatalf("write tuning: %v", err)
	}
	return dir
}

func newViewer(t *testing.T, roots ...string) *httptest.Server {
	t.Helper()
	s := NewServer(roots, time.Minute, logging.New(io.Discard, nil))
	t.Cleanup(func() { s.dbCache.Close() })
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		t.Fatalf("get %s: status %d: %s", url, res.StatusCode, body)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestViewer_Matches(t *testing.T) {
	srv := newViewer(t, seedArchive(t))

	var resp MatchesResponse
	getJSON(t, srv.URL+"/api/matches?sort=seed&dir=asc", &resp)
	if resp.Total != 2 || len(resp.Matches) != 2 {
		t.Fatalf("resp=%+v", resp)
	}
	if m := resp.Matches[0]; m.MatchID != "m1" || m.Winner != 1 || m.Reason != "elimination" || m.Player1 != "tuned" {
		t.Fatalf("first=%+v", m)
	}

	getJSON(t, srv.URL+"/api/matches?limit=1&offset=1&sort=seed&dir=asc", &resp)
	if resp.Total != 2 || len(resp.Matches) != 1 || resp.Matches[0].MatchID != "m2" {
		t.Fatalf("page=%+v", resp)
	}
}

func TestViewer_TurnsAndBoard(t *testing.T) {
	srv := newViewer(t, seedArchive(t))

	var turns []Turn
	getJSON(t, srv.URL+"/api/matches/m1/turns", &turns)
	if len(turns) != 2 || turns[0].Turn != 1 || turns[1].Territory != -1 {
		t.Fatalf("turns=%+v", turns)
	}
	if turns[0].Orders[1][0] != "1;SHOOT 0" || len(turns[1].Orders[0]) != 0 {
		t.Fatalf("orders=%v %v", turns[0].Orders, turns[1].Orders)
	}
	var wet int32
	for _, a := range turns[0].Agents {
		if a.ID == 1 {
			wet = a.Wetness
		}
	}
	if wet != 30 {
		t.Fatalf("agent 1 wetness=%d", wet)
	}

	res, err := http.Get(srv.URL + "/api/matches/m1/board?turn=2")
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), "=== Turn 2  points 1:4 ===") {
		t.Fatalf("board status=%d:\n%s", res.StatusCode, body)
	}
	t.Logf("\n%s", body)

	for _, path := range []string{"/api/matches/nope/turns", "/api/matches/m1/replay"} {
		res, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusNotFound {
			t.Fatalf("%s status=%d", path, res.StatusCode)
		}
	}
}

func TestViewer_StatsAndTuning(t *testing.T) {
	srv := newViewer(t, seedArchive(t))

	var stats []PlayerStats
	getJSON(t, srv.URL+"/api/stats", &stats)
	if len(stats) != 2 || stats[0].Name != "default" || stats[1].Name != "tuned" {
		t.Fatalf("stats=%+v", stats)
	}
	if stats[1].Matches != 2 || stats[1].Wins != 1 || stats[1].Draws != 1 || stats[1].WinRate != 0.75 {
		t.Fatalf("tuned=%+v", stats[1])
	}

	var imps []Improvement
	getJSON(t, srv.URL+"/api/tuning", &imps)
	if len(imps) != 2 || imps[0].RunID != "r1" || imps[1].Field != "cover_bonus" {
		t.Fatalf("imps=%+v", imps)
	}
	if imps[0].Weights["cover_bonus"] != 1.25 {
		t.Fatalf("weights=%v", imps[0].Weights)
	}
	getJSON(t, srv.URL+"/api/tuning?run=r2", &imps)
	if len(imps) != 1 || imps[0].Method != "coordinate_descent" {
		t.Fatalf("filtered=%+v", imps)
	}
}

func TestViewer_EmptyArchive(t *testing.T) {
	srv := newViewer(t, t.TempDir())
	var resp MatchesResponse
	getJSON(t, srv.URL+"/api/matches", &resp)
	if resp.Total != 0 || len(resp.Matches) != 0 {
		t.Fatalf("resp=%+v", resp)
	}
	var stats []PlayerStats
	getJSON(t, srv.URL+"/api/stats", &stats)
	if len(stats) != 0 {
		t.Fatalf("stats=%+v", stats)
	}
}
