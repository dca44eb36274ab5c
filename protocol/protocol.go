// Package protocol reads the referee's line-oriented text input and writes
// the bot's answers.
//
// The init block is my player id, the agent count, one
// "id player cooldown range power bombs" line per agent, "width height", and
// height lines of width "x y type" triples. Every turn block is the live agent
// count, one "id x y cooldown bombs wetness" line per live agent, and my agent
// count. Tokens are whitespace separated, so line breaks are not significant.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/brensch/splash/game"
)

// ErrShortInput reports input that ended in the middle of a block.
var ErrShortInput = errors.New("input ended mid-block")

type Reader struct {
	sc *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	return &Reader{sc: sc}
}

func (r *Reader) int(what string) (int, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return 0, fmt.Errorf("read %s: %w", what, err)
		}
		return 0, fmt.Errorf("%w: missing %s", ErrShortInput, what)
	}
	v, err := strconv.Atoi(r.sc.Text())
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", what, r.sc.Text(), err)
	}
	return v, nil
}

func (r *Reader) ints(what string, dst ...*int) error {
	for _, p := range dst {
		v, err := r.int(what)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

// ReadInit reads the init block. The returned battlefield has no agents on
// the board until the first ReadTurn.
func (r *Reader) ReadInit() (*game.Battlefield, error) {
	me, err := r.int("player id")
	if err != nil {
		return nil, err
	}
	n, err := r.int("agent count")
	if err != nil {
		return nil, err
	}
	specs := make([]game.AgentSpec, n)
	for i := range specs {
		s := &specs[i]
		if err := r.ints("agent spec", &s.ID, &s.Player, &s.ShootCooldown, &s.OptimalRange, &s.SoakingPower, &s.SplashBombs); err != nil {
			return nil, err
		}
	}
	var w, h int
	if err := r.ints("grid size", &w, &h); err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("grid size %dx%d", w, h)
	}
	g := game.NewGrid(w, h)
	for i := 0; i < w*h; i++ {
		var x, y, t int
		if err := r.ints("tile", &x, &y, &t); err != nil {
			return nil, err
		}
		p := game.Point{X: x, Y: y}
		if !g.InBounds(p) {
			return nil, fmt.Errorf("tile %v outside %dx%d grid", p, w, h)
		}
		if t < int(game.TileEmpty) || t > int(game.TileHighCover) {
			return nil, fmt.Errorf("tile %v has unknown type %d", p, t)
		}
		g.Set(p, game.Tile(t))
	}
	return &game.Battlefield{Grid: g, Specs: specs, Me: me}, nil
}

// ReadTurn reads one turn block into b. Agents missing from the block have
// been eliminated and are dropped. It returns io.EOF when the input ends
// cleanly before the block.
func (r *Reader) ReadTurn(b *game.Battlefield) error {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return fmt.Errorf("read agent count: %w", err)
		}
		return io.EOF
	}
	n, err := strconv.Atoi(r.sc.Text())
	if err != nil {
		return fmt.Errorf("parse agent count %q: %w", r.sc.Text(), err)
	}
	agents := make([]game.Agent, 0, n)
	for i := 0; i < n; i++ {
		var id, x, y, cd, bombs, wet int
		if err := r.ints("agent state", &id, &x, &y, &cd, &bombs, &wet); err != nil {
			return err
		}
		spec, ok := b.Spec(id)
		if !ok {
			return fmt.Errorf("agent %d was not in the init block", id)
		}
		agents = append(agents, game.Agent{
			ID:           id,
			Player:       spec.Player,
			Pos:          game.Point{X: x, Y: y},
			Cooldown:     cd,
			SplashBombs:  bombs,
			Wetness:      wet,
			OptimalRange: spec.OptimalRange,
			SoakingPower: spec.SoakingPower,
		})
	}
	if _, err := r.int("my agent count"); err != nil {
		return err
	}
	b.Agents = agents
	b.Turn++
	return nil
}

// WriteOrders writes one order per line.
func WriteOrders(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := bw.WriteString(l + "\n"); err != nil {
			return fmt.Errorf("write orders: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write orders: %w", err)
	}
	return nil
}
