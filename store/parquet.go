// Package store archives match results, per-turn replays and tuning
// improvements as zstd-compressed Parquet batches.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/game"
)

const (
	MatchSchema  = "match_result_v1"
	TurnSchema   = "match_turn_v1"
	TuningSchema = "tuning_improvement_v1"
)

// MatchRow is the outcome of one match. Winner is -1 for a draw.
type MatchRow struct {
	MatchID    string `parquet:"match_id,dict"`
	Seed       int64  `parquet:"seed"`
	Player0    string `parquet:"player0,dict"`
	Player1    string `parquet:"player1,dict"`
	Width      int32  `parquet:"width"`
	Height     int32  `parquet:"height"`
	Agents     int32  `parquet:"agents"`
	Winner     int32  `parquet:"winner"`
	Reason     string `parquet:"reason,dict"`
	Turns      int32  `parquet:"turns"`
	Points0    int32  `parquet:"points0"`
	Points1    int32  `parquet:"points1"`
	Territory  int32  `parquet:"territory"`
	Rejected   int32  `parquet:"rejected"`
	FinishedAt int64  `parquet:"finished_at_ms"`
}

// TurnRow is one resolved turn, one row per turn with the agents nested.
type TurnRow struct {
	MatchID   string `parquet:"match_id,dict"`
	Turn      int32  `parquet:"turn"`
	Width     int32  `parquet:"width"`
	Height    int32  `parquet:"height"`
	Points0   int32  `parquet:"points0"`
	Points1   int32  `parquet:"points1"`
	Territory int32  `parquet:"territory"`

	Orders0 []string `parquet:"orders0"`
	Orders1 []string `parquet:"orders1"`

	Agents []TurnAgent `parquet:"agents"`
}

type TurnAgent struct {
	ID       int32 `parquet:"id"`
	Player   int32 `parquet:"player"`
	X        int32 `parquet:"x"`
	Y        int32 `parquet:"y"`
	Wetness  int32 `parquet:"wetness"`
	Cooldown int32 `parquet:"cooldown"`
	Bombs    int32 `parquet:"bombs"`
}

// TuningRow is one adopted weight set.
type TuningRow struct {
	RunID     string         `parquet:"run_id,dict"`
	Method    string         `parquet:"method,dict"`
	Iteration int32          `parquet:"iteration"`
	Field     string         `parquet:"field,dict,optional"`
	WinRate   float64        `parquet:"win_rate"`
	Played    int64          `parquet:"matches_played"`
	Weights   []WeightColumn `parquet:"weights"`
	At        int64          `parquet:"at_ms"`
}

type WeightColumn struct {
	Name  string  `parquet:"name,dict"`
	Value float64 `parquet:"value"`
}

// NewTurnRow snapshots b, the battlefield after the turn was resolved.
func NewTurnRow(matchID string, turn int, b *game.Battlefield, orders [2][]string, territory int) TurnRow {
	row := TurnRow{
		MatchID:   matchID,
		Turn:      int32(turn),
		Width:     int32(b.Grid.Width),
		Height:    int32(b.Grid.Height),
		Points0:   int32(b.Points[0]),
		Points1:   int32(b.Points[1]),
		Territory: int32(territory),
		Orders0:   append([]string(nil), orders[0]...),
		Orders1:   append([]string(nil), orders[1]...),
		Agents:    make([]TurnAgent, 0, len(b.Agents)),
	}
	for _, a := range b.Agents {
		row.Agents = append(row.Agents, TurnAgent{
			ID:       int32(a.ID),
			Player:   int32(a.Player),
			X:        int32(a.Pos.X),
			Y:        int32(a.Pos.Y),
			Wetness:  int32(a.Wetness),
			Cooldown: int32(a.Cooldown),
			Bombs:    int32(a.SplashBombs),
		})
	}
	return row
}

// WeightColumns flattens w in config.Fields order.
func WeightColumns(w config.Weights) []WeightColumn {
	out := make([]WeightColumn, 0, len(config.Fields()))
	for _, f := range config.Fields() {
		out = append(out, WeightColumn{Name: f.Name, Value: *f.Ptr(&w)})
	}
	return out
}

// WeightsFromColumns rebuilds a weight set. Unknown names are ignored and
// missing ones keep their default.
func WeightsFromColumns(cols []WeightColumn) config.Weights {
	w := config.Default()
	for _, c := range cols {
		if f, ok := config.Lookup(c.Name); ok {
			*f.Ptr(&w) = c.Value
		}
	}
	return w
}

func WriteMatchesParquetAtomic(outDir string, rows []MatchRow) (string, error) {
	return writeBatchAtomic(outDir, "matches", MatchSchema, rows)
}

func WriteTurnsParquetAtomic(outDir string, rows []TurnRow) (string, error) {
	return writeBatchAtomic(outDir, "turns", TurnSchema, rows)
}

func WriteTuningParquetAtomic(outDir string, rows []TuningRow) (string, error) {
	return writeBatchAtomic(outDir, "tuning", TuningSchema, rows)
}

// writeBatchAtomic writes rows into outDir/tmp and then renames the file
// into outDir, so readers never observe a partial file.
func writeBatchAtomic[T any](outDir, prefix, schema string, rows []T) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("%s_%d.parquet", prefix, time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}
