package tuning

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brensch/splash/config"
	"github.com/brensch/splash/executor/selfplay"
)

// territoryEval pretends that a larger territory weight wins more often.
func territoryEval(calls *int) EvalFunc {
	return func(_ context.Context, cand, base config.Weights, n int, _ int64) (float64, error) {
		*calls++
		return 0.5 + 0.5*(cand.Territory-base.Territory)/base.Territory, nil
	}
}

func TestClampFactor(t *testing.T) {
	cases := []struct {
		v, base, want float64
	}{
		{5, 4, 5},
		{100, 4, 8},
		{0, 4, 0.8},
		{-100, -4, -8},
		{-0.1, -4, -0.8},
	}
	for _, tc := range cases {
		if got := clampFactor(tc.v, tc.base, DefaultMinFactor, DefaultMaxFactor); got != tc.want {
			t.Fatalf("clampFactor(%v, %v)=%v want=%v", tc.v, tc.base, got, tc.want)
		}
	}
}

func TestHillClimber_OnlyAcceptsImprovements(t *testing.T) {
	calls := 0
	h := NewHillClimber(territoryEval(&calls), config.Default(), 3)
	h.Sigma = 0.3
	var seen []Improvement
	h.OnImprove = func(imp Improvement) { seen = append(seen, imp) }

	best, rate, err := h.Run(context.Background(), 60)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 60 {
		t.Fatalf("calls=%d want=60", calls)
	}
	if len(seen) == 0 {
		t.Fatalf("no improvement in 60 iterations with sigma 0.3")
	}
	for i := 1; i < len(seen); i++ {
		if seen[i].WinRate <= seen[i-1].WinRate {
			t.Fatalf("improvement %d rate %v after %v", i, seen[i].WinRate, seen[i-1].WinRate)
		}
	}
	if rate != seen[len(seen)-1].WinRate || best != seen[len(seen)-1].Weights {
		t.Fatalf("Run returned something other than the last improvement")
	}
	base := config.Default()
	for _, f := range config.Fields() {
		v, b := *f.Ptr(&best), *f.Ptr(&base)
		if v < DefaultMinFactor*b-1e-9 || v > DefaultMaxFactor*b+1e-9 {
			t.Fatalf("%s=%v outside [%v, %v]", f.Name, v, DefaultMinFactor*b, DefaultMaxFactor*b)
		}
	}
}

func TestHillClimber_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	h := NewHillClimber(func(context.Context, config.Weights, config.Weights, int, int64) (float64, error) {
		return 0, boom
	}, config.Default(), 1)
	if _, _, err := h.Run(context.Background(), 5); !errors.Is(err, boom) {
		t.Fatalf("err=%v want boom", err)
	}
}

func TestCoordinateDescent_FollowsGradient(t *testing.T) {
	calls := 0
	c := NewCoordinateDescent(territoryEval(&calls), config.Default(), 9)
	var fieldsImproved []string
	c.OnImprove = func(imp Improvement) { fieldsImproved = append(fieldsImproved, imp.Field) }

	best, rate, err := c.Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	base := config.Default()
	// +20% then +10% on the only field that matters.
	if want := base.Territory * 1.3; best.Territory < want-1e-9 || best.Territory > want+1e-9 {
		t.Fatalf("territory=%v want=%v", best.Territory, want)
	}
	if rate <= DefaultIncumbent {
		t.Fatalf("rate=%v", rate)
	}
	for _, f := range fieldsImproved {
		if f != "territory_weight" {
			t.Fatalf("improved on %s, which the evaluator ignores", f)
		}
	}
}

func TestCoordinateDescent_SeedsAdvance(t *testing.T) {
	var seeds []int64
	eval := func(_ context.Context, _, _ config.Weights, n int, seed int64) (float64, error) {
		seeds = append(seeds, seed)
		return 0.4, nil
	}
	c := NewCoordinateDescent(eval, config.Default(), 100)
	c.Rounds = []int{10}
	c.Confirm = 30
	if _, _, err := c.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Two halving evaluations and one confirmation per field.
	if len(seeds) != 3*len(config.Fields()) {
		t.Fatalf("%d evaluations for %d fields", len(seeds), len(config.Fields()))
	}
	if seeds[0] != 100 || seeds[1] != 110 || seeds[2] != 120 || seeds[3] != 150 {
		t.Fatalf("seeds=%v", seeds[:4])
	}
}

func TestArena_WinRate(t *testing.T) {
	a := &Arena{Limit: 5 * time.Millisecond, Budget: 50, MaxTurns: 2, Workers: 2}
	var mu sync.Mutex
	seeds := map[int64]bool{}
	a.OnMatch = func(seed int64, _ selfplay.Result) {
		mu.Lock()
		seeds[seed] = true
		mu.Unlock()
	}
	rate, err := a.WinRate(context.Background(), config.Default(), config.Default(), 4, 20)
	if err != nil {
		t.Fatalf("WinRate: %v", err)
	}
	if rate < 0 || rate > 1 {
		t.Fatalf("rate=%v", rate)
	}
	if a.Played() != 4 || len(seeds) != 4 || !seeds[20] || !seeds[23] {
		t.Fatalf("played=%d seeds=%v", a.Played(), seeds)
	}
	if _, err := a.WinRate(context.Background(), config.Default(), config.Default(), 0, 0); err == nil {
		t.Fatalf("zero matches must fail")
	}
}
