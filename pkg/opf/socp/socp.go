// Package socp hand-rolls a primal log-barrier solver for the
// second-order-cone relaxation of spec §4.4.3. No conic interior-point
// library exists anywhere in the reference corpus (same situation as
// pkg/opf/lp's LP solver), so the cone constraints P²+Q² <= v·ℓ are
// enforced by a logarithmic barrier whose weight relative to the cost
// is driven toward zero across an outer loop (the weight t on the cost
// and equality-penalty terms grows), classical central-path continuation,
// with each inner unconstrained minimization done by
// gonum.org/v1/gonum/optimize's LBFGS — the same quasi-Newton method
// pkg/opf's AC-OPF penalty solver uses.
package socp

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/gatproject/gat/pkg/gaterrors"
)

// ConeConstraint names the four variable indices of one branch's cone
// P² + Q² <= V·L (V, L both required to stay strictly positive).
type ConeConstraint struct {
	PIdx, QIdx, VIdx, LIdx int
}

// Problem is a convex program: minimize Cost(x) + a large penalty for
// EqResidual(x)'s squared equality violations, subject to each
// ConeConstraint and VarBounds.
type Problem struct {
	NumVars    int
	Cost       func(x []float64) float64
	EqResidual func(x []float64) []float64
	Cones      []ConeConstraint
	// VarBounds[i] = [lo,hi]; use math.Inf for an unbounded side.
	VarBounds [][2]float64
}

type Options struct {
	Tolerance          float64
	OuterIterations    int
	InitialBarrier     float64
	BarrierGrowth      float64
	EqPenaltyWeight    float64
}

func DefaultOptions() Options {
	return Options{
		Tolerance:       1e-6,
		OuterIterations: 8,
		InitialBarrier:  1.0,
		BarrierGrowth:   10,
		EqPenaltyWeight: 1e6,
	}
}

type Result struct {
	X                []float64
	Converged        bool
	MaxConeSlack     float64 // min over cones of (v*l - p^2 - q^2); >=0 means feasible
	OuterIterations  int
}

// Solve runs the barrier-continuation loop described in the package
// doc comment. x0 must be strictly interior: every cone slack and
// every bound slack in x0 must be > 0.
func Solve(p Problem, x0 []float64, opts Options) (Result, error) {
	x := append([]float64(nil), x0...)

	barrierTerm := func(x []float64) (float64, bool) {
		total := 0.0
		for _, c := range p.Cones {
			slack := x[c.VIdx]*x[c.LIdx] - x[c.PIdx]*x[c.PIdx] - x[c.QIdx]*x[c.QIdx]
			if slack <= 0 {
				return 0, false
			}
			total -= math.Log(slack)
		}
		for i, b := range p.VarBounds {
			if !math.IsInf(b[0], 0) {
				s := x[i] - b[0]
				if s <= 0 {
					return 0, false
				}
				total -= math.Log(s)
			}
			if !math.IsInf(b[1], 0) {
				s := b[1] - x[i]
				if s <= 0 {
					return 0, false
				}
				total -= math.Log(s)
			}
		}
		return total, true
	}

	penalty := func(x []float64) float64 {
		res := p.EqResidual(x)
		sum := 0.0
		for _, r := range res {
			sum += r * r
		}
		return sum
	}

	barrierWeight := opts.InitialBarrier
	var lastResult *optimize.Result
	for outer := 0; outer < opts.OuterIterations; outer++ {
		t := barrierWeight
		objective := func(x []float64) float64 {
			bt, feasible := barrierTerm(x)
			if !feasible {
				return math.Inf(1)
			}
			return t*(p.Cost(x)+opts.EqPenaltyWeight*penalty(x)) + bt
		}
		gradient := func(grad, x []float64) {
			f0 := objective(x)
			const h = 1e-6
			for i := range x {
				saved := x[i]
				x[i] = saved + h
				f1 := objective(x)
				x[i] = saved
				if math.IsInf(f1, 1) || math.IsInf(f0, 1) {
					grad[i] = 0
					continue
				}
				grad[i] = (f1 - f0) / h
			}
		}

		problem := optimize.Problem{Func: objective, Grad: gradient}
		result, err := optimize.Minimize(problem, x, nil, &optimize.LBFGS{})
		if err != nil && result == nil {
			return Result{}, gaterrors.Wrap(gaterrors.KindIllConditioned, "socp: barrier subproblem failed", err, map[string]any{"outer_iteration": outer})
		}
		if result != nil {
			x = result.X
			lastResult = result
		}
		barrierWeight *= opts.BarrierGrowth
	}
	_ = lastResult

	minSlack := math.Inf(1)
	for _, c := range p.Cones {
		slack := x[c.VIdx]*x[c.LIdx] - x[c.PIdx]*x[c.PIdx] - x[c.QIdx]*x[c.QIdx]
		if slack < minSlack {
			minSlack = slack
		}
	}

	return Result{
		X:               x,
		Converged:       minSlack > -opts.Tolerance && norm(p.EqResidual(x)) < math.Sqrt(opts.Tolerance),
		MaxConeSlack:    minSlack,
		OuterIterations: opts.OuterIterations,
	}, nil
}

func norm(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
