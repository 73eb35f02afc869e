package powerflow

import "github.com/gatproject/gat/internal/consts"

// ACOptions configures SolveAC. The zero value is not usable directly;
// callers should start from DefaultACOptions() (spec §9, functional
// defaults rather than env-sourced configuration — see SPEC_FULL.md §2).
type ACOptions struct {
	// Tolerance is the largest acceptable |ΔP| or |ΔQ| mismatch, in p.u.
	Tolerance float64
	// MaxIterations bounds the Newton-Raphson loop.
	MaxIterations int
	// MaxTypeSwitches bounds how many times a single bus may flip
	// between PV and PQ during Q-limit enforcement before it is pinned
	// at the limit it last hit (spec §9 Open Question, decided: 3).
	MaxTypeSwitches int
	// WarmStartSweeps is the number of Gauss-Seidel Y-bus sweeps run
	// against the complex admittance matrix before Newton-Raphson
	// starts iterating (spec §4.1/§4.3). Zero disables the warm start
	// and begins Newton-Raphson from flat/setpoint start directly.
	WarmStartSweeps int
}

// DefaultACOptions returns the spec §9-decided defaults.
func DefaultACOptions() ACOptions {
	return ACOptions{
		Tolerance:       consts.DefaultACTolerance,
		MaxIterations:   consts.DefaultMaxIterations,
		MaxTypeSwitches: consts.DefaultMaxTypeSwitches,
		WarmStartSweeps: consts.DefaultACWarmStartSweeps,
	}
}

// ACOption mutates an ACOptions in place, following the teacher's
// functional-options pattern used throughout the ambient config layer.
type ACOption func(*ACOptions)

func WithTolerance(tol float64) ACOption {
	return func(o *ACOptions) { o.Tolerance = tol }
}

func WithMaxIterations(n int) ACOption {
	return func(o *ACOptions) { o.MaxIterations = n }
}

func WithMaxTypeSwitches(n int) ACOption {
	return func(o *ACOptions) { o.MaxTypeSwitches = n }
}

func WithWarmStartSweeps(n int) ACOption {
	return func(o *ACOptions) { o.WarmStartSweeps = n }
}

func newACOptions(opts ...ACOption) ACOptions {
	o := DefaultACOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return o
}
