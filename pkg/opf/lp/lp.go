// Package lp hand-rolls a primal-dual interior-point LP solver on top
// of gonum.org/v1/gonum/mat. No LP or conic solver library exists
// anywhere in the reference corpus (see the repository's DESIGN.md),
// so DC-OPF's linear program is solved here the way the teacher solves
// its own dense linear systems: assemble, factor/solve, iterate,
// check convergence, generalized from a single linear solve to a
// path-following sequence of them.
package lp

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gatproject/gat/pkg/gaterrors"
)

// Options configures the interior-point path-following loop.
type Options struct {
	Tolerance     float64
	MaxIterations int
}

// DefaultOptions returns conservative defaults suitable for the small
// to medium dense LPs this package is built for (network sizes of a
// few hundred buses, not tens of thousands).
func DefaultOptions() Options {
	return Options{Tolerance: 1e-8, MaxIterations: 100}
}

// Problem is a standard-form linear program: minimize c'x subject to
// Ax = b, x >= 0.
type Problem struct {
	A *mat.Dense
	B []float64
	C []float64
}

// Result is the outcome of solving a standard-form Problem.
type Result struct {
	X          []float64
	Y          []float64 // duals of Ax=b
	S          []float64 // reduced costs (dual slacks)
	Objective  float64
	Iterations int
	Converged  bool
}

// Solve runs a long-step primal-dual interior-point path-following
// method: at each iteration it assembles the full Newton KKT system
//
//	[ 0   A'  I ] [Δx]   [-rc ]
//	[ A   0   0 ] [Δy] = [-rb ]
//	[ S   0   X ] [Δs]   [-rxs]
//
// and solves it as one dense linear system via gonum/mat, rather than
// the classical normal-equations elimination, since the problem sizes
// this package targets (power-system LPs with hundreds, not millions,
// of variables) make a single dense solve per iteration cheap and the
// code far simpler to get right.
func Solve(p Problem, opts Options) (Result, error) {
	m, n := p.A.Dims()
	if len(p.B) != m || len(p.C) != n {
		return Result{}, gaterrors.New(gaterrors.KindInvariantViolated, "lp: dimension mismatch", nil)
	}

	x := make([]float64, n)
	s := make([]float64, n)
	y := make([]float64, m)
	for i := range x {
		x[i] = 1
		s[i] = 1
	}

	dim := n + m + n
	res := Result{}
	for iter := 0; iter < opts.MaxIterations; iter++ {
		ax := matVec(p.A, x)
		rb := subVec(ax, p.B)

		aty := matTVec(p.A, y)
		rc := addVec(aty, s)
		rc = subVec(rc, p.C)

		mu := dot(x, s) / float64(n)
		sigma := 0.1

		rxs := make([]float64, n)
		for i := range rxs {
			rxs[i] = x[i]*s[i] - sigma*mu
		}

		normRb, normRc := norm(rb), norm(rc)
		if normRb < opts.Tolerance && normRc < opts.Tolerance && mu < opts.Tolerance {
			res.Converged = true
			res.Iterations = iter
			break
		}

		kkt := mat.NewDense(dim, dim, nil)
		rhs := mat.NewVecDense(dim, nil)

		// Row block ordering: [Δx (n) | Δy (m) | Δs (n)]
		for i := 0; i < n; i++ {
			kkt.Set(i, n+m+i, 1)
			rhs.SetVec(i, -rc[i])
		}
		// dP/dy block: A' in rows [0,n), cols [n, n+m)
		for i := 0; i < n; i++ {
			for k := 0; k < m; k++ {
				kkt.Set(i, n+k, p.A.At(k, i))
			}
		}
		// A block: rows [n, n+m), cols [0, n)
		for k := 0; k < m; k++ {
			for i := 0; i < n; i++ {
				kkt.Set(n+k, i, p.A.At(k, i))
			}
			rhs.SetVec(n+k, -rb[k])
		}
		// S/X block: rows [n+m, n+m+n)
		for i := 0; i < n; i++ {
			kkt.Set(n+m+i, i, s[i])
			kkt.Set(n+m+i, n+m+i, x[i])
			rhs.SetVec(n+m+i, -rxs[i])
		}

		var step mat.VecDense
		if err := step.SolveVec(kkt, rhs); err != nil {
			return Result{}, gaterrors.Wrap(gaterrors.KindIllConditioned, "lp: Newton system is singular", err, map[string]any{"iteration": iter})
		}

		dx := step.RawVector().Data[0:n]
		dy := step.RawVector().Data[n : n+m]
		ds := step.RawVector().Data[n+m : n+m+n]

		alpha := maxStep(x, dx)
		alphaS := maxStep(s, ds)
		if alphaS < alpha {
			alpha = alphaS
		}
		alpha *= 0.99
		if alpha > 1 {
			alpha = 1
		}
		if alpha <= 0 {
			return Result{}, gaterrors.New(gaterrors.KindUnbounded, "lp: no feasible step direction", map[string]any{"iteration": iter})
		}

		for i := 0; i < n; i++ {
			x[i] += alpha * dx[i]
			s[i] += alpha * ds[i]
		}
		for i := 0; i < m; i++ {
			y[i] += alpha * dy[i]
		}
		res.Iterations = iter + 1
	}

	if !res.Converged {
		return Result{}, gaterrors.DidNotConverge(dot(x, s)/float64(n), res.Iterations)
	}

	res.X, res.Y, res.S = x, y, s
	res.Objective = dot(p.C, x)
	return res, nil
}

// maxStep returns the largest α in (0,1] such that v+α·d stays
// nonnegative, scanning only the coordinates where d is decreasing v.
func maxStep(v, d []float64) float64 {
	alpha := 1.0
	for i := range v {
		if d[i] < 0 {
			if r := -v[i] / d[i]; r < alpha {
				alpha = r
			}
		}
	}
	return alpha
}

func matVec(a *mat.Dense, x []float64) []float64 {
	m, _ := a.Dims()
	out := make([]float64, m)
	v := mat.NewVecDense(len(x), x)
	var r mat.VecDense
	r.MulVec(a, v)
	for i := 0; i < m; i++ {
		out[i] = r.AtVec(i)
	}
	return out
}

func matTVec(a *mat.Dense, y []float64) []float64 {
	_, n := a.Dims()
	v := mat.NewVecDense(len(y), y)
	var r mat.VecDense
	r.MulVec(a.T(), v)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = r.AtVec(i)
	}
	return out
}

func subVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func addVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 {
	s := 0.0
	for _, v := range a {
		s += v * v
	}
	return math.Sqrt(s)
}
