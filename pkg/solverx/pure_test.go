package solverx

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPureLPBackendSolvesSimpleTransportProblem solves a small
// transport-style problem: minimize x0+x1 subject to x0+x1=10,
// 0<=x0,x1<=8. Every feasible split summing to 10 has the same cost, so
// the optimum is not unique and only the objective and the sum are
// checked.
func TestPureLPBackendSolvesSimpleTransportProblem(t *testing.T) {
	problem := ProblemBatch{
		NumVars:         2,
		NumConstraints:  1,
		Objective:       []float64{1, 1},
		ConstraintRows:  []int32{0, 0},
		ConstraintCols:  []int32{0, 1},
		ConstraintVals:  []float64{1, 1},
		VarLower:        []float64{0, 0},
		VarUpper:        []float64{8, 8},
		ConstraintLower: []float64{10},
		ConstraintUpper: []float64{10},
	}

	backend := PureLPBackend{}
	sol, err := backend.Solve(context.Background(), problem)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	require.InDelta(t, 10.0, sol.Objective, 1e-4)
	require.InDelta(t, 10.0, sol.Primal[0]+sol.Primal[1], 1e-4)
}

func TestPureLPBackendReportsInfeasible(t *testing.T) {
	problem := ProblemBatch{
		NumVars:         1,
		NumConstraints:  1,
		Objective:       []float64{1},
		ConstraintRows:  []int32{0},
		ConstraintCols:  []int32{0},
		ConstraintVals:  []float64{1},
		VarLower:        []float64{0},
		VarUpper:        []float64{5},
		ConstraintLower: []float64{10},
		ConstraintUpper: []float64{10},
	}
	backend := PureLPBackend{}
	sol, err := backend.Solve(context.Background(), problem)
	require.NoError(t, err)
	require.Equal(t, StatusInfeasible, sol.Status)
}

func TestPureLPBackendRespectsInequalityBounds(t *testing.T) {
	problem := ProblemBatch{
		NumVars:         1,
		NumConstraints:  1,
		Objective:       []float64{-1}, // maximize x by minimizing -x
		ConstraintRows:  []int32{0},
		ConstraintCols:  []int32{0},
		ConstraintVals:  []float64{1},
		VarLower:        []float64{0},
		VarUpper:        []float64{math.Inf(1)},
		ConstraintLower: []float64{math.Inf(-1)},
		ConstraintUpper: []float64{20},
	}
	backend := PureLPBackend{}
	sol, err := backend.Solve(context.Background(), problem)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	require.InDelta(t, 20.0, sol.Primal[0], 1e-4)
}
