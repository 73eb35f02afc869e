// Package solverx implements the solver dispatcher and external-solver
// transport of spec §4.6: a small backend registry keyed by problem
// class, and a framed Arrow-IPC wire protocol to out-of-process native
// solvers, generalizing the teacher's single in-process
// BaseAnalysis/doNRiter solve loop to a pluggable pure-Go-or-native
// backend choice made at dispatch time.
package solverx

import "context"

// ProblemClass is the OPF instance shape the dispatcher classifies
// each problem into (spec §4.6).
type ProblemClass int

const (
	LinearProgram ProblemClass = iota
	ConicProgram
	NonlinearProgram
)

func (c ProblemClass) String() string {
	switch c {
	case LinearProgram:
		return "LinearProgram"
	case ConicProgram:
		return "ConicProgram"
	case NonlinearProgram:
		return "NonlinearProgram"
	default:
		return "Unknown"
	}
}

// BackendKind distinguishes a pure in-process backend from a native
// out-of-process one, the two backend families spec §4.6 names.
type BackendKind int

const (
	BackendPure BackendKind = iota
	BackendNative
)

func (k BackendKind) String() string {
	if k == BackendNative {
		return "Native"
	}
	return "Pure"
}

// SolveStatus is the stable integer status enum carried by a
// SolutionBatch (spec §4.6 "Status enum (stable integer encoding)").
type SolveStatus int32

const (
	StatusOptimal SolveStatus = iota
	StatusInfeasible
	StatusUnbounded
	StatusIterationLimit
	StatusTimeLimit
	StatusNumericalError
	StatusUnknown
)

// ProblemBatch is the wire message a backend receives (spec §4.6): a
// dense objective, a sparse constraint matrix in (row, col, value)
// triple form, and variable/constraint bounds.
type ProblemBatch struct {
	NumVars         int
	NumConstraints  int
	Objective       []float64
	ConstraintRows  []int32
	ConstraintCols  []int32
	ConstraintVals  []float64
	VarLower        []float64
	VarUpper        []float64
	ConstraintLower []float64
	ConstraintUpper []float64
	// VarType is nil for a continuous LP/QP; when non-nil it carries a
	// per-variable MIP type code (spec §4.6 "optional ... type vector
	// for MIP"). No backend in this module branches on it yet.
	VarType []int8
}

// SolutionBatch is the wire message a backend returns (spec §4.6).
type SolutionBatch struct {
	Status      SolveStatus
	Objective   float64
	Primal      []float64
	Dual        []float64
	Iterations  int
	SolveTimeMS int64
}

// Backend solves one ProblemBatch. Implementations must not retain
// problem after Solve returns.
type Backend interface {
	Solve(ctx context.Context, problem ProblemBatch) (SolutionBatch, error)
}
