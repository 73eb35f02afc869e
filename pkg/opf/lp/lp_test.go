package lp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// TestSolveMinimizesSimpleTransportProblem solves min x+2y s.t. x+y=10,
// x,y>=0 — the optimum drives y to 0 and x to 10, objective 10.
func TestSolveMinimizesSimpleTransportProblem(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{1, 1})
	result, err := Solve(Problem{A: a, B: []float64{10}, C: []float64{1, 2}}, DefaultOptions())
	require.NoError(t, err)
	require.True(t, result.Converged)
	require.InDelta(t, 10, result.X[0], 1e-3)
	require.InDelta(t, 0, result.X[1], 1e-3)
	require.InDelta(t, 10, result.Objective, 1e-3)
}

func TestSolveBoundedSplitsFreeAndBoxedVariables(t *testing.T) {
	// minimize -2x + y subject to x - y = 0, -5 <= x <= 5 (free-ish via a
	// box), y unrestricted in sign (free variable split into xp-xm). On
	// x = y the objective is -x, so x and y go to the box's upper bound 5.
	aEq := mat.NewDense(1, 2, []float64{1, -1})
	p := BoundedProblem{
		C:      []float64{-2, 1},
		Bounds: []Bound{{Lo: -5, Hi: 5}, {Lo: math.Inf(-1), Hi: math.Inf(1)}},
		AEq:    aEq,
		BEq:    []float64{0},
	}
	result, err := SolveBounded(p, DefaultOptions())
	require.NoError(t, err)
	require.True(t, result.Converged)
	require.InDelta(t, result.X[0], result.X[1], 1e-3)
	require.InDelta(t, 5, result.X[0], 1e-2)
}

func TestSolveBoundedTracksInequalityDuals(t *testing.T) {
	// minimize -x subject to x <= 7, 0 <= x <= 100: the inequality binds
	// at x=7 and should carry a nonzero dual.
	aIneq := mat.NewDense(1, 1, []float64{1})
	p := BoundedProblem{
		C:      []float64{-1},
		Bounds: []Bound{{Lo: 0, Hi: 100}},
		AIneq:  aIneq,
		BIneq:  []float64{7},
	}
	result, err := SolveBounded(p, DefaultOptions())
	require.NoError(t, err)
	require.True(t, result.Converged)
	require.InDelta(t, 7, result.X[0], 1e-2)
	require.Len(t, result.IneqDuals, 1)
	require.NotZero(t, result.IneqDuals[0])
}
