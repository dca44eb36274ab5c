package tuning

import (
	"context"
	"math"
	"math/rand"

	"github.com/brensch/splash/config"
)

const (
	DefaultSigma      = 0.06
	DefaultMinFactor  = 0.2
	DefaultMaxFactor  = 2.0
	DefaultIncumbent  = 0.52
	DefaultMatches    = 100
	hillClimbMethodID = "hill_climb"
)

// HillClimber perturbs every weight at once and keeps candidates that beat
// the incumbent's win rate against Base.
type HillClimber struct {
	Eval EvalFunc
	Base config.Weights
	// Sigma is the standard deviation of the multiplicative noise.
	Sigma float64
	// Every weight stays within [MinFactor, MaxFactor] times its Base value.
	MinFactor, MaxFactor float64
	// Threshold is the win rate a first candidate must beat.
	Threshold float64
	Matches   int
	Seed      int64
	OnImprove func(Improvement)
}

func NewHillClimber(eval EvalFunc, base config.Weights, seed int64) *HillClimber {
	return &HillClimber{
		Eval:      eval,
		Base:      base,
		Sigma:     DefaultSigma,
		MinFactor: DefaultMinFactor,
		MaxFactor: DefaultMaxFactor,
		Threshold: DefaultIncumbent,
		Matches:   DefaultMatches,
		Seed:      seed,
	}
}

// Run climbs for the given number of iterations and returns the incumbent
// and its win rate. Every iteration plays a fresh block of seeds.
func (h *HillClimber) Run(ctx context.Context, iterations int) (config.Weights, float64, error) {
	rng := rand.New(rand.NewSource(h.Seed))
	best, bestRate := h.Base, h.Threshold
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return best, bestRate, err
		}
		cand := h.perturb(best, rng)
		rate, err := h.Eval(ctx, cand, h.Base, h.Matches, h.Seed+int64(i*h.Matches))
		if err != nil {
			return best, bestRate, err
		}
		if rate > bestRate {
			best, bestRate = cand, rate
			if h.OnImprove != nil {
				h.OnImprove(Improvement{Method: hillClimbMethodID, Iteration: i, WinRate: rate, Weights: cand})
			}
		}
	}
	return best, bestRate, nil
}

func (h *HillClimber) perturb(w config.Weights, rng *rand.Rand) config.Weights {
	out := w
	for _, f := range config.Fields() {
		v := f.Ptr(&out)
		base := *f.Ptr(&h.Base)
		*v = clampFactor(*v*(1+rng.NormFloat64()*h.Sigma), base, h.MinFactor, h.MaxFactor)
	}
	return out
}

// clampFactor keeps v between lo*base and hi*base, whatever base's sign.
func clampFactor(v, base, lo, hi float64) float64 {
	a, b := lo*base, hi*base
	if a > b {
		a, b = b, a
	}
	return math.Max(a, math.Min(b, v))
}
