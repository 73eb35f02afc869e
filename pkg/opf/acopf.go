package opf

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/gatproject/gat/pkg/gaterrors"
	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/powerflow"
	"github.com/gatproject/gat/pkg/ybus"
)

const fdStep = 1e-6

// solveAcOpf implements the in-process strategy of spec §4.4.4: convert
// the exact AC-OPF to an unconstrained penalty objective and minimize
// it with gonum.org/v1/gonum/optimize's limited-memory quasi-Newton
// method (&optimize.LBFGS{}), the one true optimization library
// reachable from the reference corpus. The penalty weight starts at 100
// and is multiplied by Options.PenaltyGrowth after each of a fixed five
// outer rounds; the loop does not stop early once residuals fall below
// tolerance, and Converged is judged from the residuals after the last
// round. The out-of-process interior-point path is pkg/solverx's
// concern; AcOpf always uses this in-process path directly.
func solveAcOpf(net model.Grid, opts Options) (Solution, error) {
	slack, ok := net.SlackBus()
	if !ok {
		return Solution{}, gaterrors.New(gaterrors.KindIslanded, "no reference bus for AC-OPF", nil)
	}
	n := net.NumBuses()
	G, B := ybus.DenseYBus(net)
	baseMVA := net.BaseMVA()

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
	vmCol := make([]int, n)
	for i := 0; i < n; i++ {
		vmCol[i] = nTheta + i
	}
	base := nTheta + n

	var genIDs []model.GenID
	genCol := map[model.GenID]int{}
	genQCol := map[model.GenID]int{}
	costOf := map[model.GenID]model.CostModel{}
	pBounds := map[model.GenID][2]float64{}
	qBounds := map[model.GenID][2]float64{}
	busOf := map[model.GenID]int{}
	net.EachGenerator(func(id model.GenID, g model.Generator) {
		if g.Status != model.InService {
			return
		}
		genCol[id] = base + len(genIDs)
		genQCol[id] = -1 // filled below after P columns assigned
		costOf[id] = g.Cost
		pBounds[id] = [2]float64{g.Pmin, g.Pmax}
		qBounds[id] = [2]float64{g.Qmin, g.Qmax}
		busOf[id] = int(g.Bus)
		genIDs = append(genIDs, id)
	})
	for k, id := range genIDs {
		genQCol[id] = base + len(genIDs) + k
	}
	nVars := base + 2*len(genIDs)

	vBounds := make([][2]float64, n)
	net.EachBus(func(id model.BusID, b model.Bus) {
		lo, hi := b.Vmin, b.Vmax
		if lo <= 0 {
			lo = 0.9
		}
		if hi <= 0 {
			hi = 1.1
		}
		vBounds[id] = [2]float64{lo, hi}
	})

	loadP := make([]float64, n)
	loadQ := make([]float64, n)
	net.EachLoad(func(_ model.LoadID, l model.Load) {
		if l.Status == model.InService {
			loadP[l.Bus] += l.P
			loadQ[l.Bus] += l.Q
		}
	})

	branchLimits := map[model.BranchID]float64{}
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		if br.RateA > 0 {
			branchLimits[id] = br.RateA
		}
	})

	x0 := make([]float64, nVars)
	for i := 0; i < n; i++ {
		x0[vmCol[i]] = 1.0
	}
	if opts.WarmStart != nil {
		ws := opts.WarmStart
		net.EachBus(func(id model.BusID, _ model.Bus) {
			if v, ok := ws.BusVm[id]; ok {
				x0[vmCol[id]] = v
			}
			if thetaCol[id] >= 0 {
				if v, ok := ws.BusVa[id]; ok {
					x0[thetaCol[id]] = v
				}
			}
		})
		for id, col := range genCol {
			if v, ok := ws.GenP[id]; ok {
				x0[col] = v / baseMVA
			}
		}
	} else {
		for id, col := range genCol {
			b := pBounds[id]
			x0[col] = (b[0] + b[1]) / 2 / baseMVA
		}
	}

	injPQ := func(i int, vm, va []float64) (p, q float64) {
		for k := 0; k < n; k++ {
			theta := va[i] - va[k]
			cosT, sinT := math.Cos(theta), math.Sin(theta)
			p += vm[i] * vm[k] * (G[i][k]*cosT + B[i][k]*sinT)
			q += vm[i] * vm[k] * (G[i][k]*sinT - B[i][k]*cosT)
		}
		return p, q
	}

	penaltyTerm := func(v, lo, hi float64) float64 {
		pen := 0.0
		if v < lo {
			pen += (lo - v) * (lo - v)
		}
		if v > hi {
			pen += (v - hi) * (v - hi)
		}
		return pen
	}

	objective := func(x []float64, mu float64) float64 {
		va := make([]float64, n)
		vm := make([]float64, n)
		for i := 0; i < n; i++ {
			if thetaCol[i] >= 0 {
				va[i] = x[thetaCol[i]]
			}
			vm[i] = x[vmCol[i]]
		}

		cost := 0.0
		genPAtBus := make([]float64, n)
		genQAtBus := make([]float64, n)
		for _, id := range genIDs {
			p := x[genCol[id]] * baseMVA
			q := x[genQCol[id]] * baseMVA
			cost += costOf[id].Eval(p)
			genPAtBus[busOf[id]] += p
			genQAtBus[busOf[id]] += q

			pb, qb := pBounds[id], qBounds[id]
			cost += mu * penaltyTerm(p, pb[0], pb[1])
			cost += mu * penaltyTerm(q, qb[0], qb[1])
		}

		penalty := 0.0
		for i := 0; i < n; i++ {
			pCalc, qCalc := injPQ(i, vm, va)
			pSpec := (genPAtBus[i] - loadP[i]) / baseMVA
			qSpec := (genQAtBus[i] - loadQ[i]) / baseMVA
			dp := pSpec - pCalc
			dq := qSpec - qCalc
			penalty += dp*dp + dq*dq

			penalty += penaltyTerm(vm[i], vBounds[i][0], vBounds[i][1])
		}

		net.EachBranch(func(id model.BranchID, br model.Branch) {
			limit, ok := branchLimits[id]
			if !ok || br.Status != model.Closed {
				return
			}
			res := powerflow.BranchFlow(br, vm, va, baseMVA)
			s2 := res.P*res.P + res.Q*res.Q
			if excess := s2 - limit*limit; excess > 0 {
				penalty += excess * excess / (limit * limit * limit * limit)
			}
		})

		return cost + mu*penalty
	}

	gradient := func(grad, x []float64, mu float64) {
		f0 := objective(x, mu)
		for i := range x {
			saved := x[i]
			x[i] = saved + fdStep
			fPlus := objective(x, mu)
			x[i] = saved
			grad[i] = (fPlus - f0) / fdStep
		}
	}

	mu := 100.0
	outerIters := 5
	if opts.PenaltyGrowth <= 1 {
		opts.PenaltyGrowth = 10
	}
	x := append([]float64(nil), x0...)
	settings := &optimize.Settings{}
	if opts.MaxIterations > 0 {
		settings.MajorIterations = opts.MaxIterations
	}

	totalIters := 0
	for outer := 0; outer < outerIters; outer++ {
		muLocal := mu
		problem := optimize.Problem{
			Func: func(x []float64) float64 { return objective(x, muLocal) },
			Grad: func(grad, x []float64) { gradient(grad, x, muLocal) },
		}
		result, err := optimize.Minimize(problem, x, settings, &optimize.LBFGS{})
		if err != nil && result == nil {
			return Solution{}, gaterrors.Wrap(gaterrors.KindDidNotConverge, "AC-OPF quasi-Newton solve failed", err, nil)
		}
		if result != nil {
			x = result.X
			totalIters += result.Stats.MajorIterations
		}
		mu *= opts.PenaltyGrowth
	}

	sol := Solution{
		Method:     AcOpf,
		Iterations: totalIters,
		GenP:       map[model.GenID]float64{},
		GenQ:       map[model.GenID]float64{},
		BusVm:      map[model.BusID]float64{},
		BusVa:      map[model.BusID]float64{},
		BranchP:    map[model.BranchID]float64{},
		BranchQ:    map[model.BranchID]float64{},
		LMP:        map[model.BusID]float64{},
	}
	vaOut := make([]float64, n)
	vmOut := make([]float64, n)
	net.EachBus(func(id model.BusID, _ model.Bus) {
		if thetaCol[id] >= 0 {
			vaOut[id] = x[thetaCol[id]]
		}
		vmOut[id] = x[vmCol[id]]
		sol.BusVm[id] = vmOut[id]
		sol.BusVa[id] = vaOut[id]
	})
	for _, id := range genIDs {
		p := x[genCol[id]] * baseMVA
		sol.GenP[id] = p
		sol.GenQ[id] = x[genQCol[id]] * baseMVA
		sol.Objective += costOf[id].Eval(p)
	}
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		res := powerflow.BranchFlow(br, vmOut, vaOut, baseMVA)
		sol.BranchP[id] = res.P
		sol.BranchQ[id] = res.Q
	})

	maxResidual := 0.0
	for i := 0; i < n; i++ {
		pCalc, qCalc := injPQ(i, vmOut, vaOut)
		genP, genQ := 0.0, 0.0
		for _, id := range genIDs {
			if busOf[id] == i {
				genP += sol.GenP[id]
				genQ += sol.GenQ[id]
			}
		}
		dp := math.Abs((genP-loadP[i])/baseMVA - pCalc)
		dq := math.Abs((genQ-loadQ[i])/baseMVA - qCalc)
		if dp > maxResidual {
			maxResidual = dp
		}
		if dq > maxResidual {
			maxResidual = dq
		}
	}
	sol.Converged = maxResidual < math.Max(opts.Tolerance, 1e-4)

	return sol, nil
}
