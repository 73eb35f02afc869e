package opf

import (
	"math"

	"github.com/gatproject/gat/internal/consts"
	"github.com/gatproject/gat/pkg/gaterrors"
	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/opf/socp"
)

// solveSocpRelaxation implements the Baran-Wu/Farivar-Low branch-flow
// relaxation of spec §4.4.3: per branch P_ij, Q_ij, ℓ_ij = |I_ij|² and
// per bus v_i = |V_i|², with the nonconvex equality P²+Q²=v·ℓ relaxed
// to the convex cone P²+Q² <= v·ℓ, solved by pkg/opf/socp's barrier
// continuation method.
func solveSocpRelaxation(net model.Grid, opts Options) (Solution, error) {
	slack, ok := net.SlackBus()
	if !ok {
		return Solution{}, gaterrors.New(gaterrors.KindIslanded, "no reference bus for SOCP relaxation", nil)
	}
	n := net.NumBuses()
	baseMVA := net.BaseMVA()

	type branchInfo struct {
		id             model.BranchID
		from, to       int
		r, x           float64
		pIdx, qIdx, lIdx int
	}
	var branches []branchInfo
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		if br.Status != model.Closed {
			return
		}
		branches = append(branches, branchInfo{id: id, from: int(br.From), to: int(br.To), r: br.R, x: br.X})
	})

	vIdx := make([]int, n)
	for i := range vIdx {
		vIdx[i] = i
	}
	next := n
	for i := range branches {
		branches[i].pIdx = next
		branches[i].qIdx = next + 1
		branches[i].lIdx = next + 2
		next += 3
	}

	var genIDs []model.GenID
	genPIdx := map[model.GenID]int{}
	genQIdx := map[model.GenID]int{}
	costOf := map[model.GenID]model.CostModel{}
	busOf := map[model.GenID]int{}
	pBounds := map[model.GenID][2]float64{}
	qBounds := map[model.GenID][2]float64{}
	net.EachGenerator(func(id model.GenID, g model.Generator) {
		if g.Status != model.InService {
			return
		}
		genPIdx[id] = next
		genQIdx[id] = next + 1
		next += 2
		costOf[id] = g.Cost
		busOf[id] = int(g.Bus)
		pBounds[id] = [2]float64{g.Pmin, g.Pmax}
		qBounds[id] = [2]float64{g.Qmin, g.Qmax}
		genIDs = append(genIDs, id)
	})
	numVars := next

	loadP := make([]float64, n)
	loadQ := make([]float64, n)
	net.EachLoad(func(_ model.LoadID, l model.Load) {
		if l.Status == model.InService {
			loadP[l.Bus] += l.P
			loadQ[l.Bus] += l.Q
		}
	})

	bounds := make([][2]float64, numVars)
	for i := range bounds {
		bounds[i] = [2]float64{math.Inf(-1), math.Inf(1)}
	}
	net.EachBus(func(id model.BusID, b model.Bus) {
		lo, hi := b.Vmin, b.Vmax
		if lo <= 0 {
			lo = 0.9
		}
		if hi <= 0 {
			hi = 1.1
		}
		bounds[vIdx[id]] = [2]float64{lo * lo, hi * hi}
	})
	for _, br := range branches {
		bounds[br.lIdx] = [2]float64{0, math.Inf(1)}
	}
	for _, id := range genIDs {
		pb, qb := pBounds[id], qBounds[id]
		bounds[genPIdx[id]] = pb
		bounds[genQIdx[id]] = qb
	}

	cost := func(x []float64) float64 {
		total := 0.0
		for _, id := range genIDs {
			total += costOf[id].Eval(x[genPIdx[id]])
		}
		return total
	}

	eqResidual := func(x []float64) []float64 {
		res := make([]float64, 0, n*2+len(branches)+1)
		genPAtBus := make([]float64, n)
		genQAtBus := make([]float64, n)
		for _, id := range genIDs {
			genPAtBus[busOf[id]] += x[genPIdx[id]]
			genQAtBus[busOf[id]] += x[genQIdx[id]]
		}
		for i := 0; i < n; i++ {
			pOut, pIn, qOut, qIn := 0.0, 0.0, 0.0, 0.0
			for _, br := range branches {
				if br.from == i {
					pOut += x[br.pIdx]
					qOut += x[br.qIdx]
				}
				if br.to == i {
					pIn += x[br.pIdx] - br.r*x[br.lIdx]
					qIn += x[br.qIdx] - br.x*x[br.lIdx]
				}
			}
			res = append(res, pOut-pIn-(genPAtBus[i]-loadP[i])/baseMVA)
			res = append(res, qOut-qIn-(genQAtBus[i]-loadQ[i])/baseMVA)
		}
		for _, br := range branches {
			rhs := x[vIdx[br.from]] - 2*(br.r*x[br.pIdx]+br.x*x[br.qIdx]) + (br.r*br.r+br.x*br.x)*x[br.lIdx]
			res = append(res, x[vIdx[br.to]]-rhs)
		}
		res = append(res, x[vIdx[slack]]-1.0)
		return res
	}

	cones := make([]socp.ConeConstraint, len(branches))
	for i, br := range branches {
		cones[i] = socp.ConeConstraint{PIdx: br.pIdx, QIdx: br.qIdx, VIdx: vIdx[br.from], LIdx: br.lIdx}
	}

	x0 := make([]float64, numVars)
	for i := 0; i < n; i++ {
		x0[vIdx[i]] = 1.0
	}
	for _, br := range branches {
		x0[br.lIdx] = 1.0
	}
	for _, id := range genIDs {
		pb := pBounds[id]
		x0[genPIdx[id]] = (pb[0] + pb[1]) / 2
		qb := qBounds[id]
		x0[genQIdx[id]] = (qb[0] + qb[1]) / 2
	}

	socpOpts := socp.DefaultOptions()
	if opts.Tolerance > 0 {
		socpOpts.Tolerance = opts.Tolerance
	}
	result, err := socp.Solve(socp.Problem{
		NumVars:    numVars,
		Cost:       cost,
		EqResidual: eqResidual,
		Cones:      cones,
		VarBounds:  bounds,
	}, x0, socpOpts)
	if err != nil {
		return Solution{}, err
	}

	tightTol := opts.SocpTightnessTol
	if tightTol <= 0 {
		tightTol = consts.DefaultSocpTightnessTol
	}
	// The relaxation is tight when ℓ − (P²+Q²)/v is within tightTol on
	// every branch.
	worstGap := 0.0
	for _, br := range branches {
		v := result.X[vIdx[br.from]]
		p, q := result.X[br.pIdx], result.X[br.qIdx]
		if v > 0 {
			worstGap = math.Max(worstGap, result.X[br.lIdx]-(p*p+q*q)/v)
		}
	}

	sol := Solution{
		Method:     SocpRelaxation,
		Converged:  result.Converged,
		Iterations: result.OuterIterations,
		GenP:       map[model.GenID]float64{},
		GenQ:       map[model.GenID]float64{},
		BusVm:      map[model.BusID]float64{},
		BranchP:    map[model.BranchID]float64{},
		BranchQ:    map[model.BranchID]float64{},
		LMP:        map[model.BusID]float64{},
		Tight:      worstGap <= tightTol,
	}
	net.EachBus(func(id model.BusID, _ model.Bus) {
		v := result.X[vIdx[id]]
		if v < 0 {
			v = 0
		}
		sol.BusVm[id] = math.Sqrt(v)
	})
	for _, id := range genIDs {
		p := result.X[genPIdx[id]]
		sol.GenP[id] = p
		sol.GenQ[id] = result.X[genQIdx[id]]
		sol.Objective += costOf[id].Eval(p)
	}
	for _, br := range branches {
		sol.BranchP[br.id] = result.X[br.pIdx] * baseMVA
		sol.BranchQ[br.id] = result.X[br.qIdx] * baseMVA
	}

	return sol, nil
}
