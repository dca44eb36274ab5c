package main

type MatchSummary struct {
	MatchID      string `json:"match_id"`
	Seed         int64  `json:"seed"`
	Player0      string `json:"player0"`
	Player1      string `json:"player1"`
	Width        int32  `json:"width"`
	Height       int32  `json:"height"`
	Agents       int32  `json:"agents"`
	Winner       int32  `json:"winner"`
	Reason       string `json:"reason"`
	Turns        int32  `json:"turns"`
	Points0      int32  `json:"points0"`
	Points1      int32  `json:"points1"`
	Territory    int32  `json:"territory"`
	Rejected     int32  `json:"rejected"`
	FinishedAtMs int64  `json:"finished_at_ms"`
	File         string `json:"file"`
}

type MatchesResponse struct {
	Total   int64          `json:"total"`
	Matches []MatchSummary `json:"matches"`
}

type Agent struct {
	ID       int32 `json:"id"`
	Player   int32 `json:"player"`
	X        int32 `json:"x"`
	Y        int32 `json:"y"`
	Wetness  int32 `json:"wetness"`
	Cooldown int32 `json:"cooldown"`
	Bombs    int32 `json:"bombs"`
}

// Turn is the state after a resolved turn, with the orders that led to it.
type Turn struct {
	MatchID   string      `json:"match_id"`
	Turn      int32       `json:"turn"`
	Width     int32       `json:"width"`
	Height    int32       `json:"height"`
	Points0   int32       `json:"points0"`
	Points1   int32       `json:"points1"`
	Territory int32       `json:"territory"`
	Orders    [2][]string `json:"orders"`
	Agents    []Agent     `json:"agents"`
}

type PlayerStats struct {
	Name         string  `json:"name"`
	Matches      int64   `json:"matches"`
	Wins         int64   `json:"wins"`
	Draws        int64   `json:"draws"`
	WinRate      float64 `json:"win_rate"`
	AvgTurns     float64 `json:"avg_turns"`
	AvgScoreDiff float64 `json:"avg_score_diff"`
}

type Improvement struct {
	RunID     string             `json:"run_id"`
	Method    string             `json:"method"`
	Iteration int32              `json:"iteration"`
	Field     string             `json:"field,omitempty"`
	WinRate   float64            `json:"win_rate"`
	Played    int64              `json:"matches_played"`
	Weights   map[string]float64 `json:"weights"`
	AtMs      int64              `json:"at_ms"`
}
