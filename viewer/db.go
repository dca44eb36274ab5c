package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// archiveViews maps each DuckDB view to the file prefix the store package
// writes and the empty shape used when no file exists yet.
var archiveViews = []struct {
	view   string
	prefix string
	empty  string
}{
	{"matches", "matches_", `SELECT NULL::VARCHAR AS match_id, NULL::BIGINT AS seed, NULL::VARCHAR AS player0, NULL::VARCHAR AS player1,
		NULL::INTEGER AS width, NULL::INTEGER AS height, NULL::INTEGER AS agents, NULL::INTEGER AS winner, NULL::VARCHAR AS reason,
		NULL::INTEGER AS turns, NULL::INTEGER AS points0, NULL::INTEGER AS points1, NULL::INTEGER AS territory,
		NULL::INTEGER AS rejected, NULL::BIGINT AS finished_at_ms, NULL::VARCHAR AS filename`},
	{"turns", "turns_", `SELECT NULL::VARCHAR AS match_id, NULL::INTEGER AS turn, NULL::INTEGER AS width, NULL::INTEGER AS height,
		NULL::INTEGER AS points0, NULL::INTEGER AS points1, NULL::INTEGER AS territory,
		NULL::VARCHAR[] AS orders0, NULL::VARCHAR[] AS orders1,
		NULL::STRUCT(id INTEGER, player INTEGER, x INTEGER, y INTEGER, wetness INTEGER, cooldown INTEGER, bombs INTEGER)[] AS agents,
		NULL::VARCHAR AS filename`},
	{"tuning", "tuning_", `SELECT NULL::VARCHAR AS run_id, NULL::VARCHAR AS method, NULL::INTEGER AS iteration, NULL::VARCHAR AS field,
		NULL::DOUBLE AS win_rate, NULL::BIGINT AS matches_played, NULL::STRUCT(name VARCHAR, value DOUBLE)[] AS weights,
		NULL::BIGINT AS at_ms, NULL::VARCHAR AS filename`},
}

// DBCache maintains a cached DuckDB connection over the archive that
// refreshes periodically, so newly flushed batches show up.
type DBCache struct {
	roots       []string
	refreshRate time.Duration
	logger      *slog.Logger

	mu          sync.RWMutex
	db          *sql.DB
	lastRefresh time.Time
}

func NewDBCache(roots []string, refreshRate time.Duration, logger *slog.Logger) *DBCache {
	return &DBCache{
		roots:       roots,
		refreshRate: refreshRate,
		logger:      logger,
	}
}

// Get returns the cached DB connection, refreshing if needed.
func (c *DBCache) Get() (*sql.DB, error) {
	c.mu.RLock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		db := c.db
		c.mu.RUnlock()
		return db, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		return c.db, nil
	}
	return c.refreshLocked()
}

// Refresh forces a refresh of the cached DB connection.
func (c *DBCache) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.refreshLocked()
	return err
}

func (c *DBCache) refreshLocked() (*sql.DB, error) {
	start := time.Now()
	newDB, err := openArchive(c.roots)
	if err != nil {
		return nil, err
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	c.db = newDB
	c.lastRefresh = time.Now()
	c.logger.Debug("archive refreshed", "elapsed", time.Since(start))
	return c.db, nil
}

func (c *DBCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}

// archiveFiles lists the finished parquet files under roots by prefix.
// Files still in a tmp directory are skipped.
func archiveFiles(roots []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == "tmp" {
					return filepath.SkipDir
				}
				return nil
			}
			name := d.Name()
			if !strings.HasSuffix(name, ".parquet") {
				return nil
			}
			for _, v := range archiveViews {
				if strings.HasPrefix(name, v.prefix) {
					out[v.view] = append(out[v.view], path)
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}
	return out, nil
}

// openArchive creates an in-memory DuckDB with one view per archive kind.
func openArchive(roots []string) (*sql.DB, error) {
	files, err := archiveFiles(roots)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	// Basic pragmas; ignore errors for compatibility across versions.
	_, _ = db.Exec("PRAGMA threads=4")

	for _, v := range archiveViews {
		var sqlText string
		if paths := files[v.view]; len(paths) > 0 {
			quoted := make([]string, len(paths))
			for i, p := range paths {
				quoted[i] = "'" + escapeSQLString(p) + "'"
			}
			sqlText = `CREATE OR REPLACE VIEW ` + v.view + ` AS
				SELECT * FROM read_parquet([` + strings.Join(quoted, ",") + `], filename=true, union_by_name=true)`
		} else {
			sqlText = `CREATE OR REPLACE VIEW ` + v.view + ` AS SELECT * FROM (` + v.empty + `) WHERE 1=0`
		}
		if _, err := db.Exec(sqlText); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create view %s: %w", v.view, err)
		}
	}
	return db, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func normalizeSort(sortKey string, sortDir string) (string, string) {
	sk := strings.ToLower(strings.TrimSpace(sortKey))
	sd := strings.ToLower(strings.TrimSpace(sortDir))
	if sd != "asc" && sd != "desc" {
		sd = "desc"
	}
	// Map user-facing keys to columns. Must be safe (no user input concatenated).
	switch sk {
	case "time", "finished", "finished_at_ms":
		sk = "finished_at_ms"
	case "id", "match", "match_id":
		sk = "match_id"
	case "seed":
		sk = "seed"
	case "turns":
		sk = "turns"
	case "territory":
		sk = "territory"
	default:
		sk = "finished_at_ms"
		sd = "desc"
	}
	return sk, sd
}

func queryMatchesTotal(ctx context.Context, db *sql.DB) (int64, error) {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func queryMatches(ctx context.Context, db *sql.DB, limit, offset int, sortKey, sortDir string) ([]MatchSummary, error) {
	sk, sd := normalizeSort(sortKey, sortDir)
	rows, err := db.QueryContext(ctx,
		`SELECT match_id, seed, player0, player1, width::INTEGER, height::INTEGER, agents::INTEGER, winner::INTEGER, reason,
		        turns::INTEGER, points0::INTEGER, points1::INTEGER, territory::INTEGER, rejected::INTEGER, finished_at_ms, filename
		 FROM matches
		 ORDER BY `+sk+` `+sd+`, match_id ASC
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MatchSummary, 0, 64)
	for rows.Next() {
		var m MatchSummary
		if err := rows.Scan(&m.MatchID, &m.Seed, &m.Player0, &m.Player1, &m.Width, &m.Height, &m.Agents, &m.Winner, &m.Reason,
			&m.Turns, &m.Points0, &m.Points1, &m.Territory, &m.Rejected, &m.FinishedAtMs, &m.File); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// queryTurns returns the archived turns of one match. Nested columns come
// back as JSON so the driver's composite types never need decoding.
func queryTurns(ctx context.Context, db *sql.DB, matchID string) ([]Turn, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT match_id, turn::INTEGER, width::INTEGER, height::INTEGER, points0::INTEGER, points1::INTEGER, territory::INTEGER,
		        to_json(orders0)::VARCHAR, to_json(orders1)::VARCHAR, to_json(agents)::VARCHAR
		 FROM turns
		 WHERE match_id = ?
		 ORDER BY turn ASC`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := make([]Turn, 0, 128)
	for rows.Next() {
		var t Turn
		var orders0, orders1, agents sql.NullString
		if err := rows.Scan(&t.MatchID, &t.Turn, &t.Width, &t.Height, &t.Points0, &t.Points1, &t.Territory, &orders0, &orders1, &agents); err != nil {
			return nil, err
		}
		if err := unmarshalNullable(orders0, &t.Orders[0]); err != nil {
			return nil, fmt.Errorf("orders0 of turn %d: %w", t.Turn, err)
		}
		if err := unmarshalNullable(orders1, &t.Orders[1]); err != nil {
			return nil, fmt.Errorf("orders1 of turn %d: %w", t.Turn, err)
		}
		if err := unmarshalNullable(agents, &t.Agents); err != nil {
			return nil, fmt.Errorf("agents of turn %d: %w", t.Turn, err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, sql.ErrNoRows
	}
	return turns, nil
}

func unmarshalNullable(s sql.NullString, dst any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}

// queryStats aggregates results per weight set over both seats.
func queryStats(ctx context.Context, db *sql.DB) ([]PlayerStats, error) {
	rows, err := db.QueryContext(ctx, `WITH seats AS (
			SELECT player0 AS name, CASE WHEN winner = 0 THEN 1 ELSE 0 END AS win,
			       CASE WHEN winner = -1 THEN 1 ELSE 0 END AS draw, turns, points0 - points1 AS diff
			FROM matches
			UNION ALL
			SELECT player1, CASE WHEN winner = 1 THEN 1 ELSE 0 END,
			       CASE WHEN winner = -1 THEN 1 ELSE 0 END, turns, points1 - points0
			FROM matches
		)
		SELECT name, COUNT(*)::BIGINT, SUM(win)::BIGINT, SUM(draw)::BIGINT, AVG(turns)::DOUBLE, AVG(diff)::DOUBLE
		FROM seats
		GROUP BY name
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerStats
	for rows.Next() {
		var p PlayerStats
		if err := rows.Scan(&p.Name, &p.Matches, &p.Wins, &p.Draws, &p.AvgTurns, &p.AvgScoreDiff); err != nil {
			return nil, err
		}
		if p.Matches > 0 {
			p.WinRate = (float64(p.Wins) + 0.5*float64(p.Draws)) / float64(p.Matches)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// queryTuning lists the improvements of one run, or of every run when runID
// is empty, oldest first.
func queryTuning(ctx context.Context, db *sql.DB, runID string) ([]Improvement, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT run_id, method, iteration::INTEGER, COALESCE(field, ''), win_rate, matches_played, to_json(weights)::VARCHAR, at_ms
		 FROM tuning
		 WHERE ? = '' OR run_id = ?
		 ORDER BY at_ms ASC, iteration ASC`, runID, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Improvement
	for rows.Next() {
		var imp Improvement
		var weights sql.NullString
		if err := rows.Scan(&imp.RunID, &imp.Method, &imp.Iteration, &imp.Field, &imp.WinRate, &imp.Played, &weights, &imp.AtMs); err != nil {
			return nil, err
		}
		var cols []struct {
			Name  string  `json:"name"`
			Value float64 `json:"value"`
		}
		if err := unmarshalNullable(weights, &cols); err != nil {
			return nil, fmt.Errorf("weights of %s/%d: %w", imp.RunID, imp.Iteration, err)
		}
		imp.Weights = make(map[string]float64, len(cols))
		for _, c := range cols {
			imp.Weights[c.Name] = c.Value
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}
