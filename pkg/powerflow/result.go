// Package powerflow implements the DC and AC power-flow solvers of spec
// §4.2/§4.3, generalizing the teacher's Newton-Raphson operating-point
// loop (analysis/op.go doNRiter: clear, stamp, solve, check convergence,
// repeat) from circuit-element stamping to bus power-mismatch stamping.
package powerflow

import "github.com/gatproject/gat/pkg/model"

// BusResult is the per-bus output of a power-flow solve.
type BusResult struct {
	Vm float64 // p.u.
	Va float64 // rad
}

// BranchResult is the per-branch output of a power-flow solve.
type BranchResult struct {
	P float64 // MW, from-end
	Q float64 // MVar, from-end (AC only; 0 for DC)
}

// DCResult is the outcome of SolveDC.
type DCResult struct {
	Bus    map[model.BusID]BusResult
	Branch map[model.BranchID]BranchResult
}

// ACResult is the outcome of SolveAC.
type ACResult struct {
	Converged  bool
	Iterations int
	MaxDP      float64
	MaxDQ      float64
	Bus        map[model.BusID]BusResult
	Branch     map[model.BranchID]BranchResult
}
