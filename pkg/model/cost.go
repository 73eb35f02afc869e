package model

import "sort"

// CostModel is the tagged variant named in spec §9: either a polynomial
// (degree ≤ 3) or a piecewise-linear curve. Exactly one of Coeffs or
// Pieces is meaningful, selected by Variant.
type CostVariant int

const (
	Polynomial CostVariant = iota
	PiecewiseLinear
)

// CostPoint is one (power, cost) breakpoint of a piecewise-linear cost
// curve.
type CostPoint struct {
	P    float64 // MW
	Cost float64 // $/hr
}

// CostModel evaluates generator cost and marginal cost. A
// PiecewiseLinear model clamps to its first and last breakpoints
// outside their range; a Polynomial model carries no support bounds and
// is evaluated at any p as given, without clamping.
type CostModel struct {
	Variant CostVariant
	Coeffs  []float64   // Polynomial: cost = sum(Coeffs[i] * P^i), i=0..len-1
	Pieces  []CostPoint // PiecewiseLinear: contiguous, monotone in P
}

// NewPolynomialCost builds a Polynomial cost model. coeffs[0] is the
// fixed cost, coeffs[1] the linear term, etc.
func NewPolynomialCost(coeffs ...float64) CostModel {
	return CostModel{Variant: Polynomial, Coeffs: append([]float64(nil), coeffs...)}
}

// NewPiecewiseLinearCost builds a PiecewiseLinear cost model from
// breakpoints sorted by P.
func NewPiecewiseLinearCost(points ...CostPoint) CostModel {
	pts := append([]CostPoint(nil), points...)
	sort.Slice(pts, func(i, j int) bool { return pts[i].P < pts[j].P })
	return CostModel{Variant: PiecewiseLinear, Pieces: pts}
}

// Eval returns cost($/hr) at dispatch p(MW). PiecewiseLinear clamps p
// to its breakpoint range; Polynomial does not clamp.
func (c CostModel) Eval(p float64) float64 {
	switch c.Variant {
	case PiecewiseLinear:
		return c.evalPiecewise(p)
	default:
		return c.evalPoly(p)
	}
}

// Marginal returns d(cost)/dP at dispatch p(MW). PiecewiseLinear returns
// its first or last segment's slope outside its breakpoint range;
// Polynomial does not clamp.
func (c CostModel) Marginal(p float64) float64 {
	switch c.Variant {
	case PiecewiseLinear:
		return c.marginalPiecewise(p)
	default:
		return c.marginalPoly(p)
	}
}

func (c CostModel) evalPoly(p float64) float64 {
	cost := 0.0
	pk := 1.0
	for _, coeff := range c.Coeffs {
		cost += coeff * pk
		pk *= p
	}
	return cost
}

func (c CostModel) marginalPoly(p float64) float64 {
	deriv := 0.0
	pk := 1.0
	for i := 1; i < len(c.Coeffs); i++ {
		deriv += float64(i) * c.Coeffs[i] * pk
		pk *= p
	}
	return deriv
}

func (c CostModel) evalPiecewise(p float64) float64 {
	n := len(c.Pieces)
	if n == 0 {
		return 0
	}
	if p <= c.Pieces[0].P {
		return c.Pieces[0].Cost
	}
	if p >= c.Pieces[n-1].P {
		return c.Pieces[n-1].Cost
	}
	for i := 1; i < n; i++ {
		if p <= c.Pieces[i].P {
			p0, p1 := c.Pieces[i-1], c.Pieces[i]
			frac := (p - p0.P) / (p1.P - p0.P)
			return p0.Cost + frac*(p1.Cost-p0.Cost)
		}
	}
	return c.Pieces[n-1].Cost
}

func (c CostModel) marginalPiecewise(p float64) float64 {
	n := len(c.Pieces)
	if n < 2 {
		return 0
	}
	if p <= c.Pieces[0].P {
		p0, p1 := c.Pieces[0], c.Pieces[1]
		return (p1.Cost - p0.Cost) / (p1.P - p0.P)
	}
	if p >= c.Pieces[n-1].P {
		p0, p1 := c.Pieces[n-2], c.Pieces[n-1]
		return (p1.Cost - p0.Cost) / (p1.P - p0.P)
	}
	for i := 1; i < n; i++ {
		if p <= c.Pieces[i].P {
			p0, p1 := c.Pieces[i-1], c.Pieces[i]
			return (p1.Cost - p0.Cost) / (p1.P - p0.P)
		}
	}
	return 0
}

// Segments returns the piecewise segments as (Slope, PStart, PEnd,
// CostAtP0) values, CostAtP0 being the cost at PStart, usable as LP columns by pkg/opf's DC-OPF formulation.
// For a Polynomial model of degree <= 1 it returns a single segment
// covering [pmin, pmax]; higher-degree polynomials must be converted to
// PiecewiseLinear by the caller per spec §4.4.2.
type Segment struct {
	Slope    float64
	PStart   float64
	PEnd     float64
	CostAtP0 float64
}

func (c CostModel) Segments(pmin, pmax float64) []Segment {
	if c.Variant == Polynomial {
		slope := 0.0
		if len(c.Coeffs) > 1 {
			slope = c.Coeffs[1]
		}
		return []Segment{{Slope: slope, PStart: pmin, PEnd: pmax, CostAtP0: c.Eval(pmin)}}
	}
	segs := make([]Segment, 0, len(c.Pieces)-1)
	for i := 1; i < len(c.Pieces); i++ {
		p0, p1 := c.Pieces[i-1], c.Pieces[i]
		slope := (p1.Cost - p0.Cost) / (p1.P - p0.P)
		segs = append(segs, Segment{Slope: slope, PStart: p0.P, PEnd: p1.P, CostAtP0: p0.Cost})
	}
	return segs
}
