package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/brensch/splash/game"
)

const sample = `1
4
0 0 2 3 20 1
1 1 2 3 20 1
2 0 1 5 12 0
3 1 1 5 12 0
4 3
0 0 0 1 0 0 2 0 0 3 0 0
0 1 0 1 1 1 2 1 2 3 1 0
0 2 0 1 2 0 2 2 0 3 2 0
4
0 0 0 0 1 0
1 3 2 0 1 0
2 0 2 0 0 10
3 3 0 1 0 55
2
3
0 1 0 1 1 0
1 3 1 0 0 30
3 3 0 0 0 60
2
`

func TestReader_InitAndTurns(t *testing.T) {
	r := NewReader(strings.NewReader(sample))
	b, err := r.ReadInit()
	if err != nil {
		t.Fatalf("ReadInit: %v", err)
	}
	if b.Me != 1 || len(b.Specs) != 4 || b.Grid.Width != 4 || b.Grid.Height != 3 {
		t.Fatalf("init=%+v", b)
	}
	if b.Grid.At(game.Point{X: 1, Y: 1}) != game.TileLowCover || b.Grid.At(game.Point{X: 2, Y: 1}) != game.TileHighCover {
		t.Fatalf("cover tiles not read")
	}
	if s, _ := b.Spec(2); s.OptimalRange != 5 || s.SoakingPower != 12 || s.ShootCooldown != 1 {
		t.Fatalf("spec 2=%+v", s)
	}

	if err := r.ReadTurn(b); err != nil {
		t.Fatalf("ReadTurn 1: %v", err)
	}
	if b.Turn != 1 || len(b.Agents) != 4 {
		t.Fatalf("turn=%d agents=%d", b.Turn, len(b.Agents))
	}
	if a := b.Agent(3); a.Player != 1 || a.Wetness != 55 || a.Cooldown != 1 || a.OptimalRange != 5 {
		t.Fatalf("agent 3=%+v", a)
	}
	if len(b.Mine()) != 2 {
		t.Fatalf("mine=%d", len(b.Mine()))
	}

	if err := r.ReadTurn(b); err != nil {
		t.Fatalf("ReadTurn 2: %v", err)
	}
	if b.Turn != 2 || len(b.Agents) != 3 || b.Agent(2) != nil {
		t.Fatalf("eliminated agent kept: %+v", b.Agents)
	}
	if a := b.Agent(0); a.Pos != (game.Point{X: 1, Y: 0}) || a.Cooldown != 1 {
		t.Fatalf("agent 0=%+v", a)
	}

	if err := r.ReadTurn(b); !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v want EOF", err)
	}
}

func TestReader_ShortInput(t *testing.T) {
	r := NewReader(strings.NewReader("0 2 0 0 1 3 20 1\n"))
	if _, err := r.ReadInit(); !errors.Is(err, ErrShortInput) {
		t.Fatalf("err=%v want ErrShortInput", err)
	}

	r = NewReader(strings.NewReader(sample + "4\n0 0 0"))
	b, err := r.ReadInit()
	if err != nil {
		t.Fatalf("ReadInit: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := r.ReadTurn(b); err != nil {
			t.Fatalf("ReadTurn %d: %v", i, err)
		}
	}
	if err := r.ReadTurn(b); !errors.Is(err, ErrShortInput) {
		t.Fatalf("err=%v want ErrShortInput", err)
	}
}

func TestReader_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad number":   "x",
		"bad tile":     "0 0 1 1 0 0 7",
		"tile outside": "0 0 1 1 3 0 0",
		"zero size":    "0 0 0 3",
		"unknown spec": "0 0 1 1 0 0 0\n1 5 0 0 0 0 0 0",
	}
	for name, in := range cases {
		r := NewReader(strings.NewReader(in))
		b, err := r.ReadInit()
		if err == nil {
			err = r.ReadTurn(b)
		}
		if err == nil || errors.Is(err, io.EOF) {
			t.Fatalf("%s: accepted %q", name, in)
		}
	}
}

func TestWriteOrders(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOrders(&buf, []string{"0;MOVE 1 2;SHOOT 3", "2;HUNKER_DOWN"}); err != nil {
		t.Fatalf("WriteOrders: %v", err)
	}
	if buf.String() != "0;MOVE 1 2;SHOOT 3\n2;HUNKER_DOWN\n" {
		t.Fatalf("out=%q", buf.String())
	}
}
