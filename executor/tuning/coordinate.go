package tuning

import (
	"context"

	"github.com/brensch/splash/config"
)

const coordinateMethodID = "coordinate_descent"

// CoordinateDescent tries one field at a time, nudging it up and down by
// Step times its Base value. The two nudges race through successive halving
// and the survivor must beat the incumbent on a confirmation run.
type CoordinateDescent struct {
	Eval EvalFunc
	Base config.Weights
	Step float64
	// Rounds are the match budgets of the successive halving rounds. Each
	// round drops the worst remaining candidate.
	Rounds    []int
	Confirm   int
	Threshold float64
	Seed      int64
	OnImprove func(Improvement)

	nextSeed int64
}

func NewCoordinateDescent(eval EvalFunc, base config.Weights, seed int64) *CoordinateDescent {
	return &CoordinateDescent{
		Eval:      eval,
		Base:      base,
		Step:      0.2,
		Rounds:    []int{20, 40},
		Confirm:   DefaultMatches,
		Threshold: DefaultIncumbent,
		Seed:      seed,
	}
}

// Run performs the given number of sweeps over every field, halving Step
// after each sweep.
func (c *CoordinateDescent) Run(ctx context.Context, sweeps int) (config.Weights, float64, error) {
	c.nextSeed = c.Seed
	best, bestRate := c.Base, c.Threshold
	step := c.Step
	iter := 0
	for s := 0; s < sweeps; s++ {
		for _, f := range config.Fields() {
			if err := ctx.Err(); err != nil {
				return best, bestRate, err
			}
			delta := step * *f.Ptr(&c.Base)
			if delta == 0 {
				continue
			}
			up, down := best, best
			*f.Ptr(&up) += delta
			*f.Ptr(&down) -= delta

			survivor, err := c.halve(ctx, []config.Weights{up, down})
			if err != nil {
				return best, bestRate, err
			}
			rate, err := c.eval(ctx, survivor, c.Confirm)
			if err != nil {
				return best, bestRate, err
			}
			if rate > bestRate {
				best, bestRate = survivor, rate
				if c.OnImprove != nil {
					c.OnImprove(Improvement{Method: coordinateMethodID, Iteration: iter, Field: f.Name, WinRate: rate, Weights: survivor})
				}
			}
			iter++
		}
		step /= 2
	}
	return best, bestRate, nil
}

// halve runs successive halving over cands and returns the last one
// standing. If the rounds run out first the earliest survivor wins.
func (c *CoordinateDescent) halve(ctx context.Context, cands []config.Weights) (config.Weights, error) {
	for _, budget := range c.Rounds {
		if len(cands) == 1 {
			break
		}
		rates := make([]float64, len(cands))
		for i, w := range cands {
			r, err := c.eval(ctx, w, budget)
			if err != nil {
				return config.Weights{}, err
			}
			rates[i] = r
		}
		worst := 0
		for i := range rates {
			if rates[i] < rates[worst] {
				worst = i
			}
		}
		cands = append(cands[:worst:worst], cands[worst+1:]...)
	}
	return cands[0], nil
}

func (c *CoordinateDescent) eval(ctx context.Context, w config.Weights, n int) (float64, error) {
	seed := c.nextSeed
	c.nextSeed += int64(n)
	return c.Eval(ctx, w, c.Base, n, seed)
}
