package solverx

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gatproject/gat/pkg/gaterrors"
	"github.com/gatproject/gat/pkg/opf/lp"
)

// PureLPBackend solves a ProblemBatch in-process with pkg/opf/lp,
// the pure-Go registry entry spec §4.6 calls "pure in-process". There
// is no pure in-process registry entry for ConicProgram: the cone
// constraints pkg/opf/socp needs (branch-indexed P/Q/V/L quadruples)
// have no representation in ProblemBatch's generic (row, col, value)
// triples, so SOCP relaxation is solved directly by pkg/opf without
// ever crossing the solverx wire format; Dispatcher.Select(ConicProgram,
// ...) only succeeds once a native out-of-process backend is
// registered for it.
type PureLPBackend struct{}

func (PureLPBackend) Solve(ctx context.Context, problem ProblemBatch) (SolutionBatch, error) {
	if err := ctx.Err(); err != nil {
		return SolutionBatch{}, gaterrors.Wrap(gaterrors.KindCancelled, "pure LP backend", err, nil)
	}

	bp := lp.BoundedProblem{
		C:      append([]float64(nil), problem.Objective...),
		Bounds: make([]lp.Bound, problem.NumVars),
	}
	for i := 0; i < problem.NumVars; i++ {
		lo, hi := math.Inf(-1), math.Inf(1)
		if i < len(problem.VarLower) {
			lo = problem.VarLower[i]
		}
		if i < len(problem.VarUpper) {
			hi = problem.VarUpper[i]
		}
		bp.Bounds[i] = lp.Bound{Lo: lo, Hi: hi}
	}

	rows := make([][]float64, problem.NumConstraints)
	for r := range rows {
		rows[r] = make([]float64, problem.NumVars)
	}
	for k, r := range problem.ConstraintRows {
		c := problem.ConstraintCols[k]
		rows[r][c] = problem.ConstraintVals[k]
	}

	var eqRows, ineqRows [][]float64
	var eqB, ineqB []float64
	for i := 0; i < problem.NumConstraints; i++ {
		lower, upper := problem.ConstraintLower[i], problem.ConstraintUpper[i]
		if lower == upper {
			eqRows = append(eqRows, rows[i])
			eqB = append(eqB, lower)
			continue
		}
		if !math.IsInf(upper, 1) {
			ineqRows = append(ineqRows, rows[i])
			ineqB = append(ineqB, upper)
		}
		if !math.IsInf(lower, -1) {
			neg := make([]float64, problem.NumVars)
			for j, v := range rows[i] {
				neg[j] = -v
			}
			ineqRows = append(ineqRows, neg)
			ineqB = append(ineqB, -lower)
		}
	}
	if len(eqRows) > 0 {
		bp.AEq = denseFromRows(eqRows)
		bp.BEq = eqB
	}
	if len(ineqRows) > 0 {
		bp.AIneq = denseFromRows(ineqRows)
		bp.BIneq = ineqB
	}

	result, err := lp.SolveBounded(bp, lp.DefaultOptions())
	if err != nil {
		return SolutionBatch{Status: statusFromErr(err)}, nil
	}

	dual := append(append([]float64(nil), result.EqDuals...), result.IneqDuals...)
	status := StatusOptimal
	if !result.Converged {
		status = StatusIterationLimit
	}
	return SolutionBatch{
		Status:     status,
		Objective:  result.Objective,
		Primal:     result.X,
		Dual:       dual,
		Iterations: result.Iterations,
	}, nil
}

func denseFromRows(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	n := len(rows[0])
	m := mat.NewDense(len(rows), n, nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}

func statusFromErr(err error) SolveStatus {
	gerr, ok := err.(*gaterrors.Error)
	if !ok {
		return StatusUnknown
	}
	switch gerr.Kind {
	case gaterrors.KindInfeasible:
		return StatusInfeasible
	case gaterrors.KindUnbounded:
		return StatusUnbounded
	case gaterrors.KindIterationLimit, gaterrors.KindDidNotConverge:
		return StatusIterationLimit
	case gaterrors.KindTimeLimit, gaterrors.KindDeadline:
		return StatusTimeLimit
	case gaterrors.KindSingular, gaterrors.KindIllConditioned, gaterrors.KindNumericalBreakdown:
		return StatusNumericalError
	default:
		return StatusUnknown
	}
}
