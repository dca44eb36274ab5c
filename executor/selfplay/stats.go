package selfplay

import (
	"sync"

	"github.com/brensch/splash/rules"
)

// Collector aggregates match results. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	matches int
	wins    [2]int
	draws   int
	turns   int
	diff    int
	reasons map[rules.Reason]int
}

type Summary struct {
	Matches      int
	Wins         [2]int
	Draws        int
	AvgTurns     float64
	AvgScoreDiff float64 // player 0 minus player 1
	Reasons      map[string]int
}

func NewCollector() *Collector {
	return &Collector{reasons: make(map[rules.Reason]int)}
}

func (c *Collector) Add(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches++
	if r.Winner == 0 || r.Winner == 1 {
		c.wins[r.Winner]++
	} else {
		c.draws++
	}
	c.turns += r.Turns
	c.diff += r.Points[0] - r.Points[1]
	c.reasons[r.Reason]++
}

func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Summary{
		Matches: c.matches,
		Wins:    c.wins,
		Draws:   c.draws,
		Reasons: make(map[string]int, len(c.reasons)),
	}
	if c.matches > 0 {
		s.AvgTurns = float64(c.turns) / float64(c.matches)
		s.AvgScoreDiff = float64(c.diff) / float64(c.matches)
	}
	for r, n := range c.reasons {
		s.Reasons[r.String()] = n
	}
	return s
}

// WinRate is the share of matches won by player, counting draws as half.
func (s Summary) WinRate(player int) float64 {
	if s.Matches == 0 {
		return 0
	}
	return (float64(s.Wins[player]) + 0.5*float64(s.Draws)) / float64(s.Matches)
}
