package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/game"
)

func TestWriteMatchesParquetAtomic(t *testing.T) {
	dir := t.TempDir()
	rows := []MatchRow{
		{MatchID: "m1", Seed: 1, Player0: "default", Player1: "tuned", Width: 14, Height: 7, Agents: 8, Winner: 1, Reason: "elimination", Turns: 41, Points0: 12, Points1: 30},
		{MatchID: "m2", Seed: 2, Player0: "default", Player1: "tuned", Width: 16, Height: 9, Agents: 6, Winner: -1, Reason: "draw", Turns: 100},
	}
	path, err := WriteMatchesParquetAtomic(dir, rows)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("file %s not in %s", path, dir)
	}
	if left, _ := os.ReadDir(filepath.Join(dir, "tmp")); len(left) != 0 {
		t.Fatalf("tmp dir not empty: %v", left)
	}

	got, err := parquet.ReadFile[MatchRow](path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0] != rows[0] || got[1] != rows[1] {
		t.Fatalf("got=%+v", got)
	}
}

func TestTurnRow(t *testing.T) {
	b := game.NewBattlefield(game.NewGrid(6, 4), []game.AgentSpec{
		{ID: 0, Player: 0, SplashBombs: 2, Start: game.Point{X: 1, Y: 2}},
		{ID: 1, Player: 1, Start: game.Point{X: 4, Y: 1}},
	}, 0)
	b.Agent(1).Wetness = 35
	b.Points = [2]int{3, 0}
	orders := [2][]string{{"0;MOVE 1 2;THROW 4 1"}, {"1;HUNKER_DOWN"}}
	row := NewTurnRow("m", 7, b, orders, 3)
	orders[0][0] = "mutated"

	dir := t.TempDir()
	path, err := WriteTurnsParquetAtomic(dir, []TurnRow{row})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := parquet.ReadFile[TurnRow](path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	r := got[0]
	if r.Turn != 7 || r.Points0 != 3 || r.Territory != 3 || len(r.Agents) != 2 {
		t.Fatalf("row=%+v", r)
	}
	if r.Orders0[0] != "0;MOVE 1 2;THROW 4 1" {
		t.Fatalf("orders were not copied: %v", r.Orders0)
	}
	if a := r.Agents[1]; a.ID != 1 || a.X != 4 || a.Y != 1 || a.Wetness != 35 {
		t.Fatalf("agent=%+v", a)
	}
	if r.Agents[0].Bombs != 2 {
		t.Fatalf("bombs=%d", r.Agents[0].Bombs)
	}
}

func TestTuningRows_WeightsRoundTrip(t *testing.T) {
	w := config.Tuned()
	w.Hunker = 0.75
	dir := t.TempDir()
	path, err := WriteTuningParquetAtomic(dir, []TuningRow{
		{RunID: "r", Method: "hill_climb", Iteration: 4, WinRate: 0.57, Played: 400, Weights: WeightColumns(w)},
		{RunID: "r", Method: "coordinate_descent", Iteration: 9, Field: "cover_bonus", WinRate: 0.6, Weights: WeightColumns(config.Default())},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := parquet.ReadFile[TuningRow](path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[1].Field != "cover_bonus" {
		t.Fatalf("got=%+v", got)
	}
	if back := WeightsFromColumns(got[0].Weights); back != w {
		t.Fatalf("weights=%+v want=%+v", back, w)
	}
}

func TestBatchWriter(t *testing.T) {
	dir := t.TempDir()
	bw, err := NewBatchWriter[MatchRow](dir, "matches", MatchSchema)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := bw.Write(MatchRow{MatchID: string(rune('a' + i)), Turns: int32(i)}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	path, n, err := bw.Finalize()
	if err != nil || n != 3 || path != bw.OutPath() {
		t.Fatalf("finalize: path=%s n=%d err=%v", path, n, err)
	}
	got, err := parquet.ReadFile[MatchRow](path)
	if err != nil || len(got) != 3 || got[2].MatchID != "c" {
		t.Fatalf("read: %+v %v", got, err)
	}
	if err := bw.Write(MatchRow{}); err == nil {
		t.Fatalf("write after finalize must fail")
	}

	empty, err := NewBatchWriter[MatchRow](dir, "empty", MatchSchema)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if path, n, err := empty.Finalize(); path != "" || n != 0 || err != nil {
		t.Fatalf("empty finalize: %q %d %v", path, n, err)
	}
}

func TestDoneLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "done.log")
	l, err := OpenDoneLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.AddMany([]string{"a", "b", "", "a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	l, err = OpenDoneLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()
	if l.Count() != 2 || !l.Has("a") || !l.Has("b") || l.Has("c") {
		t.Fatalf("count=%d", l.Count())
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "a\nb\n" {
		t.Fatalf("file=%q", raw)
	}
}
