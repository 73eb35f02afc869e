package contingency

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gatproject/gat/pkg/gaterrors"
	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/powerflow"
	"github.com/gatproject/gat/pkg/ybus"
)

// MeasurementKind names what a Measurement reports (spec §4.5 "voltage
// magnitudes, real/reactive injections, branch real/reactive flows").
type MeasurementKind int

const (
	VmMeasurement MeasurementKind = iota
	PInjMeasurement
	QInjMeasurement
	PFlowMeasurement
	QFlowMeasurement
)

// Measurement is one noisy reading fed to EstimateState. Bus is used by
// Vm/PInj/QInj measurements; Branch (read from its From end) is used by
// PFlow/QFlow measurements. Sigma is the reported standard deviation in
// the measurement's own units (p.u. for Vm, MW/MVar for injections and
// flows).
type Measurement struct {
	Kind   MeasurementKind
	Bus    model.BusID
	Branch model.BranchID
	Value  float64
	Sigma  float64
}

// EstimateOptions configures EstimateState's Newton iteration.
type EstimateOptions struct {
	Tolerance     float64
	MaxIterations int
}

func DefaultEstimateOptions() EstimateOptions {
	return EstimateOptions{Tolerance: 1e-5, MaxIterations: 20}
}

// StateEstimate is the outcome of EstimateState (spec §4.5 "Report
// estimated state, residual, and χ² statistic for bad-data detection").
type StateEstimate struct {
	Converged        bool
	Iterations       int
	BusVm            map[model.BusID]float64
	BusVa            map[model.BusID]float64
	Residuals        []float64 // z_i - h_i(x̂), in measurement order
	ChiSquare        float64
	DegreesOfFreedom int
}

// EstimateState solves the WLS normal equations (HᵀWH)Δx = HᵀW(z−h(x))
// by Newton iteration from a flat start (spec §4.5 "WLS state
// estimation"), structurally the same mismatch/Jacobian/solve/check-
// convergence loop as pkg/powerflow's AC Newton-Raphson, generalized
// from power mismatches to arbitrary weighted measurement residuals.
// The Jacobian is built by forward finite differences, the same
// approach pkg/opf's penalty-based solvers use, rather than by deriving
// analytical partials per measurement kind.
func EstimateState(net model.Grid, measurements []Measurement, opts EstimateOptions) (StateEstimate, error) {
	if opts.Tolerance <= 0 || opts.MaxIterations <= 0 {
		opts = DefaultEstimateOptions()
	}
	slack, ok := net.SlackBus()
	if !ok {
		return StateEstimate{}, gaterrors.New(gaterrors.KindIslanded, "no reference bus for state estimation", nil)
	}
	n := net.NumBuses()
	baseMVA := net.BaseMVA()
	G, B := ybus.DenseYBus(net)

	thetaCol := make([]int, n)
	nTheta := 0
	for i := 0; i < n; i++ {
		if model.BusID(i) == slack {
			thetaCol[i] = -1
			continue
		}
		thetaCol[i] = nTheta
		nTheta++
	}
	vmCol := func(i int) int { return nTheta + i }
	nStates := nTheta + n

	branches := map[model.BranchID]model.Branch{}
	net.EachBranch(func(id model.BranchID, br model.Branch) { branches[id] = br })

	injPQ := func(i int, vm, va []float64) (p, q float64) {
		for k := 0; k < n; k++ {
			theta := va[i] - va[k]
			cosT, sinT := math.Cos(theta), math.Sin(theta)
			p += vm[i] * vm[k] * (G[i][k]*cosT + B[i][k]*sinT)
			q += vm[i] * vm[k] * (G[i][k]*sinT - B[i][k]*cosT)
		}
		return p, q
	}

	unpack := func(x []float64) (vm, va []float64) {
		vm, va = make([]float64, n), make([]float64, n)
		for i := 0; i < n; i++ {
			if thetaCol[i] >= 0 {
				va[i] = x[thetaCol[i]]
			}
			vm[i] = x[vmCol(i)]
		}
		return
	}

	h := func(x []float64) []float64 {
		vm, va := unpack(x)
		out := make([]float64, len(measurements))
		for k, m := range measurements {
			switch m.Kind {
			case VmMeasurement:
				out[k] = vm[m.Bus]
			case PInjMeasurement:
				p, _ := injPQ(int(m.Bus), vm, va)
				out[k] = p * baseMVA
			case QInjMeasurement:
				_, q := injPQ(int(m.Bus), vm, va)
				out[k] = q * baseMVA
			case PFlowMeasurement:
				out[k] = powerflow.BranchFlow(branches[m.Branch], vm, va, baseMVA).P
			case QFlowMeasurement:
				out[k] = powerflow.BranchFlow(branches[m.Branch], vm, va, baseMVA).Q
			}
		}
		return out
	}

	z := make([]float64, len(measurements))
	w := make([]float64, len(measurements))
	for k, m := range measurements {
		z[k] = m.Value
		sigma := m.Sigma
		if sigma <= 0 {
			sigma = 1
		}
		w[k] = 1.0 / (sigma * sigma)
	}

	x := make([]float64, nStates)
	for i := 0; i < n; i++ {
		x[vmCol(i)] = 1.0
	}

	const fdStep = 1e-6
	est := StateEstimate{}
	for iter := 0; iter < opts.MaxIterations; iter++ {
		h0 := h(x)
		r := make([]float64, len(z))
		for k := range z {
			r[k] = z[k] - h0[k]
		}

		jac := mat.NewDense(len(measurements), nStates, nil)
		for j := 0; j < nStates; j++ {
			saved := x[j]
			x[j] = saved + fdStep
			h1 := h(x)
			x[j] = saved
			for k := range measurements {
				jac.Set(k, j, (h1[k]-h0[k])/fdStep)
			}
		}

		// Normal equations (HᵀWH)Δx = HᵀW r.
		var wh mat.Dense
		wMat := mat.NewDiagDense(len(measurements), w)
		wh.Mul(wMat, jac)
		var hTWh mat.Dense
		hTWh.Mul(jac.T(), &wh)

		rVec := mat.NewVecDense(len(r), r)
		var whr mat.VecDense
		whr.MulVec(wMat, rVec)
		var rhs mat.VecDense
		rhs.MulVec(jac.T(), &whr)

		var dx mat.VecDense
		if err := dx.SolveVec(&hTWh, &rhs); err != nil {
			return StateEstimate{}, gaterrors.Wrap(gaterrors.KindIllConditioned, "state estimation normal equations are singular", err, map[string]any{"iteration": iter})
		}

		maxDelta := 0.0
		for j := 0; j < nStates; j++ {
			d := dx.AtVec(j)
			x[j] += d
			if math.Abs(d) > maxDelta {
				maxDelta = math.Abs(d)
			}
		}
		est.Iterations = iter + 1
		if maxDelta < opts.Tolerance {
			est.Converged = true
			break
		}
	}

	finalH := h(x)
	est.Residuals = make([]float64, len(z))
	for k := range z {
		est.Residuals[k] = z[k] - finalH[k]
		est.ChiSquare += est.Residuals[k] * est.Residuals[k] * w[k]
	}
	est.DegreesOfFreedom = len(measurements) - nStates

	vm, va := unpack(x)
	est.BusVm = make(map[model.BusID]float64, n)
	est.BusVa = make(map[model.BusID]float64, n)
	net.EachBus(func(id model.BusID, _ model.Bus) {
		est.BusVm[id] = vm[id]
		est.BusVa[id] = va[id]
	})

	if !est.Converged {
		return est, gaterrors.DidNotConverge(0, est.Iterations)
	}
	return est, nil
}
