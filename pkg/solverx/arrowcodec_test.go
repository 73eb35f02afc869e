package solverx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeProblemRoundTrips(t *testing.T) {
	problem := ProblemBatch{
		NumVars:         3,
		NumConstraints:  2,
		Objective:       []float64{1, 2, 3},
		ConstraintRows:  []int32{0, 0, 1, 1},
		ConstraintCols:  []int32{0, 1, 1, 2},
		ConstraintVals:  []float64{1, 1, 1, 1},
		VarLower:        []float64{0, 0, 0},
		VarUpper:        []float64{10, 10, 10},
		ConstraintLower: []float64{2, 1},
		ConstraintUpper: []float64{2, 5},
	}

	data, err := encodeProblem(problem)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := decodeProblem(data)
	require.NoError(t, err)
	require.Equal(t, problem.NumVars, got.NumVars)
	require.Equal(t, problem.NumConstraints, got.NumConstraints)
	require.Equal(t, problem.Objective, got.Objective)
	require.Equal(t, problem.ConstraintRows, got.ConstraintRows)
	require.Equal(t, problem.ConstraintCols, got.ConstraintCols)
	require.Equal(t, problem.ConstraintVals, got.ConstraintVals)
	require.Equal(t, problem.VarLower, got.VarLower)
	require.Equal(t, problem.VarUpper, got.VarUpper)
	require.Nil(t, got.VarType)
}

func TestEncodeDecodeProblemCarriesVarType(t *testing.T) {
	problem := ProblemBatch{
		NumVars:         2,
		Objective:       []float64{1, 1},
		VarLower:        []float64{0, 0},
		VarUpper:        []float64{1, 1},
		ConstraintLower: []float64{},
		ConstraintUpper: []float64{},
		VarType:         []int8{0, 1},
	}
	data, err := encodeProblem(problem)
	require.NoError(t, err)
	got, err := decodeProblem(data)
	require.NoError(t, err)
	require.Equal(t, []int8{0, 1}, got.VarType)
}

func TestEncodeDecodeSolutionRoundTrips(t *testing.T) {
	sol := SolutionBatch{
		Status:      StatusOptimal,
		Objective:   42.5,
		Primal:      []float64{1, 2, 3},
		Dual:        []float64{0.5, 0.25},
		Iterations:  7,
		SolveTimeMS: 123,
	}
	data, err := encodeSolution(sol)
	require.NoError(t, err)
	got, err := decodeSolution(data)
	require.NoError(t, err)
	require.Equal(t, sol, got)
}
