package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type CommandKind uint8

const (
	CmdNone CommandKind = iota
	CmdMove
	CmdHunker
	CmdShoot
	CmdThrow
)

// Command is one symbolic instruction. Target is the destination for MOVE and
// the impact cell for THROW; TargetID is the victim of a SHOOT.
type Command struct {
	Kind     CommandKind
	Target   Point
	TargetID int
}

func Move(p Point) Command { return Command{Kind: CmdMove, Target: p} }

func Hunker() Command { return Command{Kind: CmdHunker} }

func Shoot(id int) Command { return Command{Kind: CmdShoot, TargetID: id} }

func Throw(p Point) Command { return Command{Kind: CmdThrow, Target: p} }

func (c Command) IsCombat() bool { return c.Kind == CmdShoot || c.Kind == CmdThrow }

func (c Command) String() string {
	switch c.Kind {
	case CmdMove:
		return fmt.Sprintf("MOVE %d %d", c.Target.X, c.Target.Y)
	case CmdHunker:
		return "HUNKER_DOWN"
	case CmdShoot:
		return "SHOOT " + strconv.Itoa(c.TargetID)
	case CmdThrow:
		return fmt.Sprintf("THROW %d %d", c.Target.X, c.Target.Y)
	default:
		return ""
	}
}

// ActionSeq is the plan for one agent for one turn: an optional MOVE followed
// by at most one action. Dest is where the agent stands after the move step.
type ActionSeq struct {
	Moved  bool
	Dest   Point
	Action Command
}

// Stay builds a sequence that keeps the agent at pos.
func Stay(pos Point, action Command) ActionSeq {
	return ActionSeq{Dest: pos, Action: action}
}

// MoveThen builds a sequence that steps to dest before acting.
func MoveThen(dest Point, action Command) ActionSeq {
	return ActionSeq{Moved: true, Dest: dest, Action: action}
}

// Commands returns the sequence in emission order.
func (s ActionSeq) Commands() []Command {
	out := make([]Command, 0, 2)
	if s.Moved {
		out = append(out, Move(s.Dest))
	}
	if s.Action.Kind != CmdNone {
		out = append(out, s.Action)
	}
	return out
}

func (s ActionSeq) String() string {
	cmds := s.Commands()
	parts := make([]string, len(cmds))
	for i, c := range cmds {
		parts[i] = c.String()
	}
	return strings.Join(parts, ";")
}

// Hunkers reports whether the sequence ends in HUNKER_DOWN.
func (s ActionSeq) Hunkers() bool { return s.Action.Kind == CmdHunker }

// Order is an agent id paired with its sequence.
type Order struct {
	AgentID int
	Seq     ActionSeq
}

// String renders "<agentId>;<cmd1>;<cmd2>".
func (o Order) String() string {
	body := o.Seq.String()
	if body == "" {
		return strconv.Itoa(o.AgentID)
	}
	return strconv.Itoa(o.AgentID) + ";" + body
}

var ErrMalformedCommand = errors.New("malformed command")

// ParseCommand parses a single command token such as "THROW 4 2".
func ParseCommand(s string) (Command, error) {
	f := strings.Fields(s)
	if len(f) == 0 {
		return Command{}, fmt.Errorf("%w: empty", ErrMalformedCommand)
	}
	ints := func(n int) ([]int, error) {
		if len(f) != n+1 {
			return nil, fmt.Errorf("%w: %q wants %d arguments", ErrMalformedCommand, s, n)
		}
		out := make([]int, n)
		for i := range out {
			v, err := strconv.Atoi(f[i+1])
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrMalformedCommand, s, err)
			}
			out[i] = v
		}
		return out, nil
	}
	switch strings.ToUpper(f[0]) {
	case "MOVE":
		v, err := ints(2)
		if err != nil {
			return Command{}, err
		}
		return Move(Point{X: v[0], Y: v[1]}), nil
	case "HUNKER_DOWN":
		if len(f) != 1 {
			return Command{}, fmt.Errorf("%w: %q takes no arguments", ErrMalformedCommand, s)
		}
		return Hunker(), nil
	case "SHOOT":
		v, err := ints(1)
		if err != nil {
			return Command{}, err
		}
		return Shoot(v[0]), nil
	case "THROW":
		v, err := ints(2)
		if err != nil {
			return Command{}, err
		}
		return Throw(Point{X: v[0], Y: v[1]}), nil
	default:
		return Command{}, fmt.Errorf("%w: unknown verb %q", ErrMalformedCommand, f[0])
	}
}

// ParseOrder parses "<agentId>;<cmd>[;<cmd>]". from is the agent's current
// position, used as Dest when no MOVE is present. A MOVE may only come first
// and at most one action may follow it.
func ParseOrder(line string, from func(id int) (Point, bool)) (Order, error) {
	parts := strings.Split(strings.TrimSpace(line), ";")
	id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Order{}, fmt.Errorf("%w: agent id %q", ErrMalformedCommand, parts[0])
	}
	pos, ok := from(id)
	if !ok {
		return Order{}, fmt.Errorf("%w: unknown agent %d", ErrMalformedCommand, id)
	}
	if len(parts) > 3 {
		return Order{}, fmt.Errorf("%w: %q has more than two commands", ErrMalformedCommand, line)
	}
	seq := ActionSeq{Dest: pos}
	for i, p := range parts[1:] {
		if strings.TrimSpace(p) == "" {
			continue
		}
		c, err := ParseCommand(p)
		if err != nil {
			return Order{}, err
		}
		if c.Kind == CmdMove {
			if i != 0 {
				return Order{}, fmt.Errorf("%w: MOVE must come first in %q", ErrMalformedCommand, line)
			}
			seq.Moved = true
			seq.Dest = c.Target
			continue
		}
		if seq.Action.Kind != CmdNone {
			return Order{}, fmt.Errorf("%w: %q has two actions", ErrMalformedCommand, line)
		}
		seq.Action = c
	}
	return Order{AgentID: id, Seq: seq}, nil
}
