package opf

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gatproject/gat/pkg/gaterrors"
	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/opf/lp"
	"github.com/gatproject/gat/pkg/ybus"
)

// solveDcOpf implements spec §4.4.2: an LP over (P_g, θ) with the DC
// nodal-balance rows, generator bounds, and branch-limit inequalities,
// solved by pkg/opf/lp's primal-dual interior-point method. The
// constraint matrix is handed to the solver unscaled: no row
// equilibration is applied, and the duals are read back as the solver
// returns them.
func solveDcOpf(net model.Grid, opts Options) (Solution, error) {
	slack, ok := net.SlackBus()
	if !ok {
		return Solution{}, gaterrors.New(gaterrors.KindIslanded, "no reference bus for DC-OPF", nil)
	}
	n := net.NumBuses()
	baseMVA := net.BaseMVA()

	// variable layout: [theta_0..theta_{n-1} except slack] then [P_g for each gen]
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

	var genIDs []model.GenID
	genCol := map[model.GenID]int{}
	genByBus := map[int][]model.GenID{}
	net.EachGenerator(func(id model.GenID, g model.Generator) {
		if g.Status != model.InService {
			return
		}
		genCol[id] = nTheta + len(genIDs)
		genByBus[int(g.Bus)] = append(genByBus[int(g.Bus)], id)
		genIDs = append(genIDs, id)
	})
	nVars := nTheta + len(genIDs)

	loadByBus := make([]float64, n)
	net.EachLoad(func(_ model.LoadID, l model.Load) {
		if l.Status == model.InService {
			loadByBus[int(l.Bus)] += l.P
		}
	})

	// B' assembled the same way as pkg/powerflow/dc.go, but kept dense
	// here since the LP's constraint matrix is dense anyway.
	bPrime := make([][]float64, n)
	for i := range bPrime {
		bPrime[i] = make([]float64, n)
	}
	phaseInjection := make([]float64, n)
	net.EachBranch(func(_ model.BranchID, br model.Branch) {
		if br.Status != model.Closed {
			return
		}
		i, j := int(br.From), int(br.To)
		bs := ybus.SeriesSusceptance(br.X)
		bPrime[i][i] += bs
		bPrime[j][j] += bs
		bPrime[i][j] -= bs
		bPrime[j][i] -= bs
		if br.PhaseShift != 0 {
			phaseInjection[i] += bs * br.PhaseShift
			phaseInjection[j] -= bs * br.PhaseShift
		}
	})

	eqRows := n
	AEq := mat.NewDense(eqRows, nVars, nil)
	bEq := make([]float64, eqRows)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j == int(slack) || bPrime[i][j] == 0 {
				continue
			}
			AEq.Set(i, thetaCol[j], bPrime[i][j])
		}
		for _, gid := range genByBus[i] {
			AEq.Set(i, genCol[gid], -1.0/baseMVA)
		}
		bEq[i] = -loadByBus[i]/baseMVA - phaseInjection[i]
	}

	var ineqRows [][]float64
	var ineqB []float64
	var ineqName []string
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		if br.Status != model.Closed || br.RateA <= 0 {
			return
		}
		i, j := int(br.From), int(br.To)
		x := br.X
		if x == 0 {
			x = 1e-6
		}
		row := make([]float64, nVars)
		if j != int(slack) {
			row[thetaCol[j]] = -1.0 / x
		}
		if i != int(slack) {
			row[thetaCol[i]] = 1.0 / x
		}
		limit := br.RateA / baseMVA
		ineqRows = append(ineqRows, row)
		ineqB = append(ineqB, limit+br.PhaseShift/x)
		ineqName = append(ineqName, br.Name+"+")

		neg := make([]float64, nVars)
		for k := range row {
			neg[k] = -row[k]
		}
		ineqRows = append(ineqRows, neg)
		ineqB = append(ineqB, limit-br.PhaseShift/x)
		ineqName = append(ineqName, br.Name+"-")
	})

	var AIneq *mat.Dense
	if len(ineqRows) > 0 {
		AIneq = mat.NewDense(len(ineqRows), nVars, nil)
		for r, row := range ineqRows {
			for c, v := range row {
				if v != 0 {
					AIneq.Set(r, c, v)
				}
			}
		}
	}

	c := make([]float64, nVars)
	bounds := make([]lp.Bound, nVars)
	for i := 0; i < nTheta; i++ {
		bounds[i] = lp.Bound{Lo: math.Inf(-1), Hi: math.Inf(1)}
	}
	costs := map[model.GenID]model.CostModel{}
	net.EachGenerator(func(id model.GenID, g model.Generator) {
		col, ok := genCol[id]
		if !ok {
			return
		}
		costs[id] = g.Cost
		bounds[col] = lp.Bound{Lo: g.Pmin, Hi: g.Pmax}
		segs := g.Cost.Segments(g.Pmin, g.Pmax)
		if len(segs) > 0 {
			c[col] = segs[0].Slope
		}
	})

	problem := lp.BoundedProblem{
		C:      c,
		Bounds: bounds,
		AEq:    AEq,
		BEq:    bEq,
		AIneq:  AIneq,
		BIneq:  ineqB,
	}
	lpOpts := lp.Options{Tolerance: opts.Tolerance, MaxIterations: opts.MaxIterations}
	if lpOpts.Tolerance == 0 {
		lpOpts = lp.DefaultOptions()
	}

	result, err := lp.SolveBounded(problem, lpOpts)
	if err != nil {
		return Solution{}, err
	}

	sol := Solution{
		Method:     DcOpf,
		Converged:  result.Converged,
		Iterations: result.Iterations,
		GenP:       map[model.GenID]float64{},
		BusVa:      map[model.BusID]float64{},
		BranchP:    map[model.BranchID]float64{},
		LMP:        map[model.BusID]float64{},
	}
	for id, col := range genCol {
		sol.GenP[id] = result.X[col]
		sol.Objective += costs[id].Eval(result.X[col])
	}

	theta := make([]float64, n)
	for i := 0; i < n; i++ {
		if thetaCol[i] >= 0 {
			theta[i] = result.X[thetaCol[i]]
		}
	}
	net.EachBus(func(id model.BusID, _ model.Bus) {
		// bEq[i] carries -load_i/baseMVA, so d(objective)/d(load_i) =
		// EqDuals[i] * d(bEq_i)/d(load_i) = -EqDuals[i]/baseMVA.
		sol.LMP[id] = -result.EqDuals[int(id)] / baseMVA
		sol.BusVa[id] = theta[int(id)]
	})
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		if br.Status != model.Closed {
			sol.BranchP[id] = 0
			return
		}
		x := br.X
		if x == 0 {
			x = 1e-6
		}
		flow := (theta[br.From] - theta[br.To] - br.PhaseShift) / x
		sol.BranchP[id] = flow * baseMVA
	})

	for idx, dual := range result.IneqDuals {
		if math.Abs(dual) > 1e-6 {
			sol.BindingConstraints = append(sol.BindingConstraints, ineqName[idx])
		}
	}

	return sol, nil
}
