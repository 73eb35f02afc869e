package powerflow

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gatproject/gat/pkg/gaterrors"
	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/ybus"
)

// SolveAC runs Newton-Raphson AC power flow (spec §4.3), generalizing
// the teacher's doNRiter escalation ladder (clear, stamp, factor+solve,
// check convergence, repeat) from circuit-element stamping to bus
// power-mismatch stamping. Unknowns are the voltage angle at every
// non-slack bus and the voltage magnitude at every PQ bus; PV buses
// hold Vm fixed at their setpoint until a Q-limit violation reclassifies
// them to PQ (bounded by ACOptions.MaxTypeSwitches per bus, breaking the
// switching oscillation named in spec §9).
func SolveAC(net model.Grid, opts ...ACOption) (ACResult, error) {
	cfg := newACOptions(opts...)

	slack, ok := net.SlackBus()
	if !ok {
		return ACResult{}, gaterrors.New(gaterrors.KindIslanded, "no reference bus for AC power flow", nil)
	}

	n := net.NumBuses()
	y := buildDenseYBus(net)
	baseMVA := net.BaseMVA()

	vm := make([]float64, n)
	va := make([]float64, n)
	busType := make([]model.BusType, n)
	qmin := make([]float64, n)
	qmax := make([]float64, n)
	hasQLimit := make([]bool, n)
	switches := make([]int, n)

	pSpec := make([]float64, n)
	qSpec := make([]float64, n)

	net.EachBus(func(id model.BusID, b model.Bus) {
		i := int(id)
		busType[i] = b.Type
		if b.Vm > 0 {
			vm[i] = b.Vm
		} else {
			vm[i] = 1.0
		}
		va[i] = b.Va
	})

	net.EachGenerator(func(_ model.GenID, g model.Generator) {
		if g.Status != model.InService {
			return
		}
		i := int(g.Bus)
		pSpec[i] += g.P / baseMVA
		qSpec[i] += g.Q / baseMVA
		if busType[i] != model.PQ {
			if g.VmSetpoint > 0 {
				vm[i] = g.VmSetpoint
			}
			if g.Qmax != 0 || g.Qmin != 0 {
				qmax[i] += g.Qmax / baseMVA
				qmin[i] += g.Qmin / baseMVA
				hasQLimit[i] = true
			}
		}
	})
	net.EachLoad(func(_ model.LoadID, l model.Load) {
		if l.Status != model.InService {
			return
		}
		i := int(l.Bus)
		pSpec[i] -= l.P / baseMVA
		qSpec[i] -= l.Q / baseMVA
	})

	slackIdx := int(slack)

	acYBusWarmStart(net, vm, va, busType, pSpec, qSpec, qmin, qmax, hasQLimit, slackIdx, cfg.WarmStartSweeps, y)

	res := ACResult{}
	iter := 0
	for ; iter < cfg.MaxIterations; iter++ {
		pCalc := make([]float64, n)
		qCalc := make([]float64, n)
		for i := 0; i < n; i++ {
			pCalc[i], qCalc[i] = y.injectedPQ(i, vm, va)
		}

		// PQ buses needing a mismatch row/column in the unknown set, in
		// bus-id order (stable, deterministic).
		var pIdx, qIdx []int
		for i := 0; i < n; i++ {
			if i != slackIdx {
				pIdx = append(pIdx, i)
			}
			if busType[i] == model.PQ {
				qIdx = append(qIdx, i)
			}
		}

		maxDP, maxDQ := 0.0, 0.0
		dP := make([]float64, len(pIdx))
		for k, i := range pIdx {
			dP[k] = pSpec[i] - pCalc[i]
			if math.Abs(dP[k]) > maxDP {
				maxDP = math.Abs(dP[k])
			}
		}
		dQ := make([]float64, len(qIdx))
		for k, i := range qIdx {
			dQ[k] = qSpec[i] - qCalc[i]
			if math.Abs(dQ[k]) > maxDQ {
				maxDQ = math.Abs(dQ[k])
			}
		}

		res.MaxDP, res.MaxDQ = maxDP, maxDQ
		if maxDP < cfg.Tolerance && maxDQ < cfg.Tolerance {
			res.Converged = true
			res.Iterations = iter
			break
		}

		dim := len(pIdx) + len(qIdx)
		jac := mat.NewDense(dim, dim, nil)
		mismatch := mat.NewVecDense(dim, append(append([]float64{}, dP...), dQ...))

		pRowOf := make(map[int]int, len(pIdx))
		for k, i := range pIdx {
			pRowOf[i] = k
		}
		qRowOf := make(map[int]int, len(qIdx))
		for k, i := range qIdx {
			qRowOf[i] = k + len(pIdx)
		}

		fillJacobian(jac, y, vm, va, pIdx, qIdx, pRowOf, qRowOf)

		var dx mat.VecDense
		if err := dx.SolveVec(jac, mismatch); err != nil {
			return ACResult{}, gaterrors.Wrap(gaterrors.KindDidNotConverge, "AC Jacobian is singular", err, map[string]any{"iteration": iter})
		}

		for k, i := range pIdx {
			va[i] += dx.AtVec(k)
		}
		for k, i := range qIdx {
			vm[i] += dx.AtVec(len(pIdx) + k)
		}

		enforceQLimits(busType, vm, qmin, qmax, hasQLimit, switches, cfg.MaxTypeSwitches, y, va)
	}

	if !res.Converged {
		return ACResult{}, gaterrors.DidNotConverge(math.Max(res.MaxDP, res.MaxDQ), iter)
	}

	res.Bus = make(map[model.BusID]BusResult, n)
	net.EachBus(func(id model.BusID, _ model.Bus) {
		i := int(id)
		res.Bus[id] = BusResult{Vm: vm[i], Va: va[i]}
	})

	res.Branch = make(map[model.BranchID]BranchResult, net.NumBranches())
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		res.Branch[id] = BranchFlow(br, vm, va, baseMVA)
	})

	return res, nil
}

// fillJacobian stamps the Newton-Raphson Jacobian blocks
// [[dP/dθ, dP/dV],[dQ/dθ, dQ/dV]] for the current active unknown sets,
// using the standard power-flow partial derivatives.
func fillJacobian(jac *mat.Dense, y *denseYBus, vm, va []float64, pIdx, qIdx []int, pRowOf, qRowOf map[int]int) {
	n := y.n
	for _, i := range pIdx {
		row := pRowOf[i]
		for _, j := range pIdx {
			jac.Set(row, pRowOf[j], dPdTheta(y, vm, va, i, j, n))
		}
		for _, j := range qIdx {
			jac.Set(row, qRowOf[j], dPdV(y, vm, va, i, j, n))
		}
	}
	for _, i := range qIdx {
		row := qRowOf[i]
		for _, j := range pIdx {
			jac.Set(row, pRowOf[j], dQdTheta(y, vm, va, i, j, n))
		}
		for _, j := range qIdx {
			jac.Set(row, qRowOf[j], dQdV(y, vm, va, i, j, n))
		}
	}
}

func dPdTheta(y *denseYBus, vm, va []float64, i, j, n int) float64 {
	if i == j {
		sum := 0.0
		for k := 0; k < n; k++ {
			if k == i {
				continue
			}
			theta := va[i] - va[k]
			sum += vm[i] * vm[k] * (-y.G[i][k]*math.Sin(theta) + y.B[i][k]*math.Cos(theta))
		}
		return sum
	}
	theta := va[i] - va[j]
	return vm[i] * vm[j] * (y.G[i][j]*math.Sin(theta) - y.B[i][j]*math.Cos(theta))
}

func dPdV(y *denseYBus, vm, va []float64, i, j, n int) float64 {
	if i == j {
		sum := 2 * vm[i] * y.G[i][i]
		for k := 0; k < n; k++ {
			if k == i {
				continue
			}
			theta := va[i] - va[k]
			sum += vm[k] * (y.G[i][k]*math.Cos(theta) + y.B[i][k]*math.Sin(theta))
		}
		return sum
	}
	theta := va[i] - va[j]
	return vm[i] * (y.G[i][j]*math.Cos(theta) + y.B[i][j]*math.Sin(theta))
}

func dQdTheta(y *denseYBus, vm, va []float64, i, j, n int) float64 {
	if i == j {
		sum := 0.0
		for k := 0; k < n; k++ {
			if k == i {
				continue
			}
			theta := va[i] - va[k]
			sum += vm[i] * vm[k] * (y.G[i][k]*math.Cos(theta) + y.B[i][k]*math.Sin(theta))
		}
		return sum
	}
	theta := va[i] - va[j]
	return -vm[i] * vm[j] * (y.G[i][j]*math.Cos(theta) + y.B[i][j]*math.Sin(theta))
}

func dQdV(y *denseYBus, vm, va []float64, i, j, n int) float64 {
	if i == j {
		sum := -2 * vm[i] * y.B[i][i]
		for k := 0; k < n; k++ {
			if k == i {
				continue
			}
			theta := va[i] - va[k]
			sum += vm[k] * (y.G[i][k]*math.Sin(theta) - y.B[i][k]*math.Cos(theta))
		}
		return sum
	}
	theta := va[i] - va[j]
	return vm[i] * (y.G[i][j]*math.Sin(theta) - y.B[i][j]*math.Cos(theta))
}

// enforceQLimits reclassifies a PV bus to PQ, pinned at the limit it
// exceeded, the first MaxTypeSwitches times it happens; beyond that the
// bus is left at its last classification to break oscillation (spec §9).
func enforceQLimits(busType []model.BusType, vm, qmin, qmax []float64, hasQLimit []bool, switches []int, maxSwitches int, y *denseYBus, va []float64) {
	for i, limited := range hasQLimit {
		if !limited || busType[i] == model.Slack {
			continue
		}
		if busType[i] != model.PV {
			continue
		}
		if switches[i] >= maxSwitches {
			continue
		}
		_, q := y.injectedPQ(i, vm, va)
		switch {
		case q > qmax[i]:
			busType[i] = model.PQ
			switches[i]++
		case q < qmin[i]:
			busType[i] = model.PQ
			switches[i]++
		}
	}
}

// BranchFlow computes the from-end complex power flow through a
// branch's π-model (tap + phase shift) from the converged bus state
// (spec §4.3 "branch flows are recovered from the converged voltages").
func BranchFlow(br model.Branch, vm, va []float64, baseMVA float64) BranchResult {
	if br.Status != model.Closed {
		return BranchResult{}
	}
	i, j := int(br.From), int(br.To)
	gy, by := ybus.SeriesAdmittance(br.R, br.X)
	tau := br.TapRatio
	if tau == 0 {
		tau = 1
	}
	phi := br.PhaseShift
	bc := br.BTotal / 2

	vi, vj := vm[i], vm[j]
	thetaIJ := va[i] - va[j] - phi

	// P_ij = Vi^2*(g/tau^2) - Vi*Vj/tau*(g*cos(θij)+b*sin(θij))
	// Q_ij = -Vi^2*((b+bc)/tau^2) - Vi*Vj/tau*(g*sin(θij)-b*cos(θij))
	p := vi*vi*(gy/(tau*tau)) - vi*vj/tau*(gy*math.Cos(thetaIJ)+by*math.Sin(thetaIJ))
	q := -vi*vi*((by+bc)/(tau*tau)) - vi*vj/tau*(gy*math.Sin(thetaIJ)-by*math.Cos(thetaIJ))

	return BranchResult{P: p * baseMVA, Q: q * baseMVA}
}
