package lp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Bound is a variable's [Lo, Hi] range. Use math.Inf(-1)/math.Inf(1)
// for an unbounded side.
type Bound struct {
	Lo, Hi float64
}

// BoundedProblem is a linear program over variables with individual
// bounds, expressed with the original (unshifted, unsplit) variables:
// minimize C'x subject to AEq·x = BEq, AIneq·x <= BIneq, Bounds[i].Lo
// <= x[i] <= Bounds[i].Hi.
type BoundedProblem struct {
	C      []float64
	Bounds []Bound
	AEq    *mat.Dense // may be nil if no equality rows
	BEq    []float64
	AIneq  *mat.Dense // may be nil if no inequality rows
	BIneq  []float64
}

// BoundedResult reports the solution in terms of the original
// variables plus the duals needed for LMPs and binding-constraint
// reports.
type BoundedResult struct {
	X          []float64
	EqDuals    []float64 // one per AEq row
	IneqDuals  []float64 // one per AIneq row, nonpositive (dual of a <= row in a minimization)
	Objective  float64
	Iterations int
	Converged  bool
}

// SolveBounded converts a bounded-variable LP to standard form —
// splitting free variables into nonnegative positive/negative parts
// and shifting box-bounded variables to start at zero with an explicit
// upper-bound slack row — solves it with Solve, and maps the result
// back onto the original variables.
func SolveBounded(p BoundedProblem, opts Options) (BoundedResult, error) {
	n := len(p.C)

	// column layout for each original variable:
	//  free (Lo=-Inf, Hi=+Inf): two standard columns (xp, xm)
	//  box  (both finite):      one standard column (shifted z=x-Lo) + one slack column
	//  one-sided:                one standard column (shifted)
	type colInfo struct {
		kind     int // 0 free, 1 box, 2 lower-only, 3 upper-only
		startCol int
		lo, hi   float64
	}
	cols := make([]colInfo, n)
	numStdCols := 0
	for i, b := range p.Bounds {
		lo, hi := b.Lo, b.Hi
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			cols[i] = colInfo{kind: 0, startCol: numStdCols, lo: lo, hi: hi}
			numStdCols += 2
		case !math.IsInf(lo, 0) && !math.IsInf(hi, 0):
			cols[i] = colInfo{kind: 1, startCol: numStdCols, lo: lo, hi: hi}
			numStdCols += 2 // shifted var + slack
		case !math.IsInf(lo, 0):
			cols[i] = colInfo{kind: 2, startCol: numStdCols, lo: lo, hi: hi}
			numStdCols++
		default:
			cols[i] = colInfo{kind: 3, startCol: numStdCols, lo: lo, hi: hi}
			numStdCols++
		}
	}

	numEq := 0
	if p.AEq != nil {
		numEq, _ = p.AEq.Dims()
	}
	numIneq := 0
	if p.AIneq != nil {
		numIneq, _ = p.AIneq.Dims()
	}
	// box variables each need one extra equality row for their slack;
	// each inequality row needs one extra slack column and contributes
	// no extra row (it becomes an equality with a slack column).
	numBoxRows := 0
	for _, c := range cols {
		if c.kind == 1 {
			numBoxRows++
		}
	}
	totalCols := numStdCols + numIneq // +1 slack column per inequality row
	totalRows := numEq + numIneq + numBoxRows

	A := mat.NewDense(totalRows, totalCols, nil)
	b := make([]float64, totalRows)
	c := make([]float64, totalCols)

	for i := range cols {
		switch cols[i].kind {
		case 0:
			c[cols[i].startCol] += p.C[i]
			c[cols[i].startCol+1] -= p.C[i]
		case 1, 2:
			c[cols[i].startCol] += p.C[i]
		case 3:
			c[cols[i].startCol] -= p.C[i]
		}
	}

	row := 0
	fillRow := func(a *mat.Dense, r int, constOffset *float64) {
		for i := range cols {
			coeff := a.At(r, i)
			if coeff == 0 {
				continue
			}
			switch cols[i].kind {
			case 0:
				A.Set(row, cols[i].startCol, A.At(row, cols[i].startCol)+coeff)
				A.Set(row, cols[i].startCol+1, A.At(row, cols[i].startCol+1)-coeff)
			case 1, 2:
				A.Set(row, cols[i].startCol, A.At(row, cols[i].startCol)+coeff)
				*constOffset += coeff * cols[i].lo
			case 3:
				A.Set(row, cols[i].startCol, A.At(row, cols[i].startCol)-coeff)
				*constOffset += coeff * cols[i].hi
			}
		}
	}

	for r := 0; r < numEq; r++ {
		offset := 0.0
		fillRow(p.AEq, r, &offset)
		b[row] = p.BEq[r] - offset
		row++
	}
	ineqSlackStart := numStdCols
	for r := 0; r < numIneq; r++ {
		offset := 0.0
		fillRow(p.AIneq, r, &offset)
		A.Set(row, ineqSlackStart+r, 1)
		b[row] = p.BIneq[r] - offset
		row++
	}
	for i := range cols {
		if cols[i].kind != 1 {
			continue
		}
		A.Set(row, cols[i].startCol, 1)
		A.Set(row, cols[i].startCol+1, 1)
		b[row] = cols[i].hi - cols[i].lo
		row++
	}

	std, err := Solve(Problem{A: A, B: b, C: c}, opts)
	if err != nil {
		return BoundedResult{}, err
	}

	x := make([]float64, n)
	for i := range cols {
		switch cols[i].kind {
		case 0:
			x[i] = std.X[cols[i].startCol] - std.X[cols[i].startCol+1]
		case 1, 2:
			x[i] = std.X[cols[i].startCol] + cols[i].lo
		case 3:
			x[i] = cols[i].hi - std.X[cols[i].startCol]
		}
	}

	obj := 0.0
	for i := range x {
		obj += p.C[i] * x[i]
	}
	res := BoundedResult{
		X:          x,
		Objective:  obj,
		Iterations: std.Iterations,
		Converged:  std.Converged,
	}
	if numEq > 0 {
		res.EqDuals = append([]float64(nil), std.Y[:numEq]...)
	}
	if numIneq > 0 {
		res.IneqDuals = append([]float64(nil), std.Y[numEq:numEq+numIneq]...)
	}
	return res, nil
}
