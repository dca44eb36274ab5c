package engine

import (
	"container/heap"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/brensch/splash/game"
	"github.com/brensch/splash/rules"
)

const (
	keepBest       = 10
	lookaheadWidth = 3
	lookaheadJoint = 10
)

// candidates is one agent's sequences sorted by descending individual score.
type candidates struct {
	seqs   []game.ActionSeq
	scores []float64
}

func (c candidates) Len() int { return len(c.seqs) }

// candidateLists enumerates and scores every sequence of the searching side.
func (t *turn) candidateLists() []candidates {
	occ := occupancy(t.b)
	throwOK := ownThrowFilter(t.mine, t.enemies)
	pv := perspective{friends: t.mine, enemies: t.enemies, searcher: true}

	out := make([]candidates, len(t.mine))
	for i, a := range t.mine {
		seqs := enumerate(t.b.Grid, a, occ, t.enemies, throwOK)
		scores := make([]float64, len(seqs))
		for j, s := range seqs {
			scores[j] = t.individual(t.b, a, s, pv)
		}
		order := make([]int, len(seqs))
		for j := range order {
			order[j] = j
		}
		sort.SliceStable(order, func(x, y int) bool { return scores[order[x]] > scores[order[y]] })
		c := candidates{seqs: make([]game.ActionSeq, len(seqs)), scores: make([]float64, len(seqs))}
		for j, k := range order {
			c.seqs[j] = seqs[k]
			c.scores[j] = scores[k]
		}
		out[i] = c
	}
	return out
}

// pruneWidth returns the largest K such that the product over agents of
// min(K, count) stays within budget, and at least 1.
func pruneWidth(counts []int, budget int) int {
	widest := 0
	for _, c := range counts {
		widest = max(widest, c)
	}
	k := 1
	for next := 2; next <= widest; next++ {
		prod := 1
		for _, c := range counts {
			prod *= min(next, c)
			if prod > budget {
				break
			}
		}
		if prod > budget {
			break
		}
		k = next
	}
	return k
}

func prune(lists []candidates, budget int) []candidates {
	counts := make([]int, len(lists))
	for i := range lists {
		counts[i] = lists[i].Len()
	}
	k := pruneWidth(counts, budget)
	out := make([]candidates, len(lists))
	for i, l := range lists {
		n := min(k, l.Len())
		out[i] = candidates{seqs: l.seqs[:n], scores: l.scores[:n]}
	}
	return out
}

// node is a frontier entry: one index into each agent's candidate list.
type node struct {
	idx []int
	h   float64
}

// frontier is a max-heap on the summed individual scores.
type frontier []node

func (f frontier) Len() int           { return len(f) }
func (f frontier) Less(i, j int) bool { return f[i].h > f[j].h }
func (f frontier) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)        { *f = append(*f, x.(node)) }
func (f *frontier) Pop() any {
	old := *f
	n := old[len(old)-1]
	*f = old[:len(old)-1]
	return n
}

// walker enumerates index vectors in best-first order of their summed
// individual scores without revisiting any.
type walker struct {
	lists   []candidates
	strides []int
	open    frontier
	seen    map[int]struct{}
}

func newWalker(lists []candidates) *walker {
	w := &walker{lists: lists, strides: make([]int, len(lists)), seen: make(map[int]struct{})}
	stride := 1
	root := node{idx: make([]int, len(lists))}
	for i, l := range lists {
		w.strides[i] = stride
		stride *= max(1, l.Len())
		if l.Len() == 0 {
			return w
		}
		root.h += l.scores[0]
	}
	w.seen[0] = struct{}{}
	heap.Push(&w.open, root)
	return w
}

func (w *walker) key(idx []int) int {
	k := 0
	for i, v := range idx {
		k += v * w.strides[i]
	}
	return k
}

// next pops the best unvisited vector and queues its neighbours.
func (w *walker) next() (node, bool) {
	if w.open.Len() == 0 {
		return node{}, false
	}
	n := heap.Pop(&w.open).(node)
	for i, v := range n.idx {
		l := w.lists[i]
		if v+1 >= l.Len() {
			continue
		}
		idx := slices.Clone(n.idx)
		idx[i]++
		k := w.key(idx)
		if _, ok := w.seen[k]; ok {
			continue
		}
		w.seen[k] = struct{}{}
		heap.Push(&w.open, node{idx: idx, h: n.h - l.scores[v] + l.scores[v+1]})
	}
	return n, true
}

func (w *walker) seqs(idx []int) []game.ActionSeq {
	out := make([]game.ActionSeq, len(idx))
	for i, v := range idx {
		out[i] = w.lists[i].seqs[v]
	}
	return out
}

// scored is a fully simulated joint action.
type scored struct {
	seqs []game.ActionSeq
	outcome
}

// best keeps the highest scoring entries as a min-heap on score.
type best []scored

func (b best) Len() int           { return len(b) }
func (b best) Less(i, j int) bool { return b[i].score < b[j].score }
func (b best) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
func (b *best) Push(x any)        { *b = append(*b, x.(scored)) }
func (b *best) Pop() any {
	old := *b
	n := old[len(old)-1]
	*b = old[:len(old)-1]
	return n
}

func (b *best) offer(s scored, limit int) {
	if b.Len() < limit {
		heap.Push(b, s)
		return
	}
	if s.score > (*b)[0].score {
		(*b)[0] = s
		heap.Fix(b, 0)
	}
}

// sorted returns the entries from best to worst.
func (b best) sorted() []scored {
	out := slices.Clone(b)
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// search runs the two phases and returns the chosen joint action, indexed like
// t.mine. ok is false when nothing was evaluated in time.
func (t *turn) search(budget int, phase1, deadline time.Time, now func() time.Time, st *Stats) ([]game.ActionSeq, bool) {
	ranked := t.shortlist(budget, phase1, now, st)
	if len(ranked) == 0 {
		return nil, false
	}
	return t.refine(ranked, deadline, now, st), true
}

// shortlist is phase 1: best-first over the pruned cross product until
// phase1 or exhaustion. It returns the kept joint actions, best first.
func (t *turn) shortlist(budget int, phase1 time.Time, now func() time.Time, st *Stats) []scored {
	lists := prune(t.candidateLists(), budget)
	for _, l := range lists {
		st.Candidates += l.Len()
	}

	w := newWalker(lists)
	var top best
	for now().Before(phase1) {
		n, ok := w.next()
		if !ok {
			break
		}
		seqs := w.seqs(n.idx)
		if collides(seqs) {
			continue
		}
		top.offer(scored{seqs: seqs, outcome: t.simulate(seqs)}, keepBest)
		st.Evaluated++
	}
	return top.sorted()
}

// refine is phase 2: the lookaheadWidth best of ranked are re-scored with the
// best continuation one turn later. A candidate whose lookahead is cut off by
// the deadline does not compete, so with no completed lookahead the phase-1
// winner stands.
func (t *turn) refine(ranked []scored, deadline time.Time, now func() time.Time, st *Stats) []game.ActionSeq {
	choice := ranked[0].seqs
	bestTotal := math.Inf(-1)
	for _, c := range ranked[:min(lookaheadWidth, len(ranked))] {
		if !now().Before(deadline) {
			break
		}
		next, done := t.lookahead(c.after, deadline, now)
		if !done {
			break
		}
		st.Lookahead++
		if total := c.score + next; total > bestTotal {
			choice, bestTotal = c.seqs, total
		}
	}
	return choice
}

// lookahead scores the best of the lookaheadJoint highest summed continuations
// one turn after sim. sim is advanced in place. It returns 0 when either side
// is gone, and done is false when the deadline stopped it early.
func (t *turn) lookahead(sim *game.Battlefield, deadline time.Time, now func() time.Time) (score float64, done bool) {
	rules.EndTurn(sim)
	sim.Turn++
	if sim.Alive(sim.Me) == 0 || sim.Alive(sim.Opponent()) == 0 {
		return 0, true
	}
	next := newTurn(sim, t.w)
	w := newWalker(next.candidateLists())
	found := false
	for n := 0; n < lookaheadJoint; n++ {
		if !now().Before(deadline) {
			return score, false
		}
		nd, ok := w.next()
		if !ok {
			break
		}
		seqs := w.seqs(nd.idx)
		if collides(seqs) {
			continue
		}
		if s := next.simulate(seqs).score; !found || s > score {
			score, found = s, true
		}
	}
	return score, true
}

// hunkerAll is the safe answer when the search produced nothing.
func hunkerAll(mine []*game.Agent) []game.ActionSeq {
	out := make([]game.ActionSeq, len(mine))
	for i, a := range mine {
		out[i] = game.Stay(a.Pos, game.Hunker())
	}
	return out
}
