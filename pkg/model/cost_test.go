package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolynomialCost(t *testing.T) {
	c := NewPolynomialCost(10, 20) // 10 + 20P
	assert.Equal(t, 10.0, c.Eval(0))
	assert.Equal(t, 1610.0, c.Eval(80))
	assert.Equal(t, 20.0, c.Marginal(80))
}

func TestPiecewiseLinearCostClampsOutsideSupport(t *testing.T) {
	c := NewPiecewiseLinearCost(
		CostPoint{P: 0, Cost: 0},
		CostPoint{P: 50, Cost: 500},
		CostPoint{P: 100, Cost: 1200},
	)
	require.Equal(t, 0.0, c.Eval(-10))   // clamp below
	require.Equal(t, 1200.0, c.Eval(150)) // clamp above
	assert.InDelta(t, 250.0, c.Eval(25), 1e-9)
	assert.InDelta(t, 10.0, c.Marginal(25), 1e-9)
}

func TestSegmentsFromPolynomialDegreeOne(t *testing.T) {
	c := NewPolynomialCost(50, 30)
	segs := c.Segments(0, 80)
	require.Len(t, segs, 1)
	assert.Equal(t, 30.0, segs[0].Slope)
}
