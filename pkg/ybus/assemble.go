// Package ybus assembles the nodal admittance matrix Y = G + jB and the
// DC susceptance matrix B' from a model.Grid, per spec §4.1. Bus ids are
// mapped to 1-based matrix rows/columns, matching the 1-based indexing
// convention of pkg/sparsekit (inherited from github.com/edp1096/sparse,
// which reserves row/column 0).
package ybus

import (
	"math"

	"github.com/gatproject/gat/internal/consts"
	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/sparsekit"
)

// Row returns the 1-based matrix row for a bus id.
func Row(id model.BusID) int { return int(id) + 1 }

// SeriesAdmittance returns the series admittance y=1/(r+jx) of a
// branch, substituting the epsilon reactance for tie transformers with
// r=x=0 exactly as spec §4.1 requires.
func SeriesAdmittance(r, x float64) (g, b float64) {
	return seriesAdmittance(r, x)
}

func seriesAdmittance(r, x float64) (g, b float64) {
	if r == 0 && x == 0 {
		x = consts.BranchImpedanceEpsilon
	}
	denom := r*r + x*x
	if denom == 0 {
		denom = consts.BranchImpedanceEpsilon * consts.BranchImpedanceEpsilon
	}
	return r / denom, -x / denom
}

// AssembleAC stamps the full AC Y-bus (spec §4.1 "Y-bus assembly") into
// mat, which must be a complex sparsekit.Matrix of size >= net.NumBuses().
func AssembleAC(net model.Grid, mat sparsekit.Matrix) {
	net.EachBranch(func(_ model.BranchID, br model.Branch) {
		if br.Status != model.Closed {
			return
		}
		stampACBranch(mat, br)
	})
	net.EachShunt(func(_ model.ShuntID, sh model.Shunt) {
		if sh.Status != model.InService {
			return
		}
		i := Row(sh.Bus)
		mat.AddComplexElement(i, i, sh.G, sh.B)
	})
}

func stampACBranch(mat sparsekit.Matrix, br model.Branch) {
	gy, by := seriesAdmittance(br.R, br.X)
	tau := br.TapRatio
	if tau == 0 {
		tau = 1
	}
	phi := br.PhaseShift
	bc := br.BTotal / 2

	i := Row(br.From)
	j := Row(br.To)

	// Y[i,i] += (y + j*bc/2) / tau^2
	mat.AddComplexElement(i, i, (gy)/(tau*tau), (by+bc)/(tau*tau))
	// Y[j,j] += y + j*bc/2
	mat.AddComplexElement(j, j, gy, by+bc)

	// Y[i,j] -= y / (tau * e^{-j phi}) = -(y * e^{j phi}) / tau
	cosP, sinP := math.Cos(phi), math.Sin(phi)
	yijRe := -(gy*cosP - by*sinP) / tau
	yijIm := -(gy*sinP + by*cosP) / tau
	mat.AddComplexElement(i, j, yijRe, yijIm)

	// Y[j,i] -= y / (tau * e^{j phi})
	yjiRe := -(gy*cosP + by*sinP) / tau
	yjiIm := -(-gy*sinP + by*cosP) / tau
	mat.AddComplexElement(j, i, yjiRe, yjiIm)
}

// DenseYBus assembles the full AC admittance matrix as dense G/B
// arrays, 0-indexed by bus id. pkg/powerflow's Newton-Raphson loop and
// pkg/opf's AC-OPF penalty objective both need direct G[i][j]/B[i][j]
// lookups at every iteration, so this dense form is built once up
// front rather than re-derived from sparsekit's stamp-only interface.
func DenseYBus(net model.Grid) (G, B [][]float64) {
	n := net.NumBuses()
	G = make([][]float64, n)
	B = make([][]float64, n)
	for i := range G {
		G[i] = make([]float64, n)
		B[i] = make([]float64, n)
	}

	net.EachBranch(func(_ model.BranchID, br model.Branch) {
		if br.Status != model.Closed {
			return
		}
		gy, by := seriesAdmittance(br.R, br.X)
		tau := br.TapRatio
		if tau == 0 {
			tau = 1
		}
		phi := br.PhaseShift
		bc := br.BTotal / 2

		i, j := int(br.From), int(br.To)

		G[i][i] += gy / (tau * tau)
		B[i][i] += (by + bc) / (tau * tau)
		G[j][j] += gy
		B[j][j] += by + bc

		cosP, sinP := math.Cos(phi), math.Sin(phi)
		G[i][j] += -(gy*cosP - by*sinP) / tau
		B[i][j] += -(gy*sinP + by*cosP) / tau
		G[j][i] += -(gy*cosP + by*sinP) / tau
		B[j][i] += -(-gy*sinP + by*cosP) / tau
	})

	net.EachShunt(func(_ model.ShuntID, sh model.Shunt) {
		if sh.Status != model.InService {
			return
		}
		i := int(sh.Bus)
		G[i][i] += sh.G
		B[i][i] += sh.B
	})

	return G, B
}

// SeriesSusceptance returns 1/x for the DC approximation, substituting
// the epsilon reactance for an exactly-zero x (spec §4.1).
func SeriesSusceptance(x float64) float64 {
	if x == 0 {
		x = consts.BranchImpedanceEpsilon
	}
	return 1.0 / x
}

// AssembleDC stamps the DC susceptance matrix B' (spec §4.1 "For the DC
// approximation B′ is assembled from 1/x only, ignoring r, b, and tap
// magnitude; phase shifts become constant injections") into mat, a real
// sparsekit.Matrix, and returns the constant phase-shift injection
// vector indexed the same way as mat rows (index 0 unused).
//
// slackRow, if nonzero, names the reference bus's 1-based row: its
// diagonal and its appearance in every other row's off-diagonal are
// left unstamped, exactly as SolveDC needs so that adding a single
// identity equation at that row is enough to pin θ_slack=0 without the
// rest of the system still carrying a live coupling term into a bus
// that is no longer a free unknown. Pass 0 to stamp every bus as a free
// unknown (a caller doing its own reference-bus reduction downstream).
func AssembleDC(net model.Grid, mat sparsekit.Matrix, slackRow int) (phaseInjection []float64) {
	phaseInjection = make([]float64, net.NumBuses()+1)

	net.EachBranch(func(_ model.BranchID, br model.Branch) {
		if br.Status != model.Closed {
			return
		}
		x := br.X
		if x == 0 {
			x = consts.BranchImpedanceEpsilon
		}
		bSeries := 1.0 / x

		i := Row(br.From)
		j := Row(br.To)

		if i != slackRow {
			mat.AddElement(i, i, bSeries)
			if j != slackRow {
				mat.AddElement(i, j, -bSeries)
			}
			if br.PhaseShift != 0 {
				// Flow leaving the from-end is (θ_i-θ_j-φ)/x, so moving
				// the constant term to the RHS of B'θ=P adds +bSeries*φ
				// at the from bus and subtracts it at the to bus.
				phaseInjection[i] += bSeries * br.PhaseShift
			}
		}
		if j != slackRow {
			mat.AddElement(j, j, bSeries)
			if i != slackRow {
				mat.AddElement(j, i, -bSeries)
			}
			if br.PhaseShift != 0 {
				phaseInjection[j] -= bSeries * br.PhaseShift
			}
		}
	})

	return phaseInjection
}
