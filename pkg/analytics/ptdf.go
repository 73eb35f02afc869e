// Package analytics implements the cross-cutting linear-sensitivity and
// graph-decomposition utilities spec.md's glossary names but pkg/powerflow
// and pkg/opf don't themselves need: PTDF/LODF (§4.4's OPF engines only
// need a single DC solve, not the full sensitivity matrix) and the graph
// partitioning an ADMM-style multi-area OPF decomposition would consume.
//
// The linear algebra is grounded on pkg/opf's dense B' assembly
// (pkg/opf/dcopf.go) and gonum/mat's Dense/Inverse, already used there
// and in pkg/powerflow/ac.go and pkg/contingency/stateest.go.
package analytics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/gatproject/gat/pkg/gaterrors"
	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/ybus"
)

// PTDFResult is the power-transfer distribution factor matrix: row
// Branch, column Bus, value is the fraction of a 1pu injection at that
// bus (withdrawn at the slack) that flows on that branch (spec
// glossary "PTDF / LODF").
type PTDFResult struct {
	Branches []model.BranchID
	Buses    []model.BusID
	// Factor[b][n] is indexed by position in Branches/Buses, not id.
	Factor [][]float64

	branchRow map[model.BranchID]int
	busCol    map[model.BusID]int
}

// At returns the PTDF entry for a branch/bus pair, or 0 if either id is
// unknown to this result (e.g. an out-of-service branch/bus that was
// excluded at assembly time).
func (r *PTDFResult) At(branch model.BranchID, bus model.BusID) float64 {
	i, ok := r.branchRow[branch]
	if !ok {
		return 0
	}
	j, ok := r.busCol[bus]
	if !ok {
		return 0
	}
	return r.Factor[i][j]
}

// ComputePTDF assembles the DC B' matrix exactly as pkg/opf/dcopf.go
// does, inverts the slack-reduced system once, and reads off
// PTDF_{l,n} = (X_{i,n} - X_{j,n}) / x_l for every in-service branch l
// with endpoints i,j, where X is the inverse of the reduced B' (spec
// glossary: "linear sensitivities of branch flow to injections").
func ComputePTDF(net model.Grid) (*PTDFResult, error) {
	slack, ok := net.SlackBus()
	if !ok {
		return nil, gaterrors.New(gaterrors.KindIslanded, "no reference bus for PTDF assembly", nil)
	}
	n := net.NumBuses()

	reducedCol := make([]int, n)
	nReduced := 0
	for i := 0; i < n; i++ {
		if model.BusID(i) == slack {
			reducedCol[i] = -1
			continue
		}
		reducedCol[i] = nReduced
		nReduced++
	}
	if nReduced == 0 {
		return nil, gaterrors.New(gaterrors.KindInvariantViolated, "network has no non-slack buses to compute PTDF for", nil)
	}

	bPrime := mat.NewDense(nReduced, nReduced, nil)
	net.EachBranch(func(_ model.BranchID, br model.Branch) {
		if br.Status != model.Closed {
			return
		}
		bs := ybus.SeriesSusceptance(br.X)
		i, j := reducedCol[br.From], reducedCol[br.To]
		if i >= 0 {
			bPrime.Set(i, i, bPrime.At(i, i)+bs)
		}
		if j >= 0 {
			bPrime.Set(j, j, bPrime.At(j, j)+bs)
		}
		if i >= 0 && j >= 0 {
			bPrime.Set(i, j, bPrime.At(i, j)-bs)
			bPrime.Set(j, i, bPrime.At(j, i)-bs)
		}
	})

	var inv mat.Dense
	if err := inv.Inverse(bPrime); err != nil {
		return nil, gaterrors.Wrap(gaterrors.KindSingular, "inverting reduced B' for PTDF", err, nil)
	}

	var buses []model.BusID
	net.EachBus(func(id model.BusID, _ model.Bus) { buses = append(buses, id) })
	busCol := make(map[model.BusID]int, len(buses))
	for col, id := range buses {
		busCol[id] = col
	}

	var branches []model.BranchID
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		if br.Status == model.Closed {
			branches = append(branches, id)
		}
	})
	branchRow := make(map[model.BranchID]int, len(branches))
	for row, id := range branches {
		branchRow[id] = row
	}

	factor := make([][]float64, len(branches))
	for row, bid := range branches {
		br := net.Branch(bid)
		x := br.X
		if x == 0 {
			x = 1e-6
		}
		ri, rj := reducedCol[int(br.From)], reducedCol[int(br.To)]
		vals := make([]float64, len(buses))
		for col, bus := range buses {
			c := reducedCol[int(bus)]
			var xi, xj float64
			if ri >= 0 && c >= 0 {
				xi = inv.At(ri, c)
			}
			if rj >= 0 && c >= 0 {
				xj = inv.At(rj, c)
			}
			vals[col] = (xi - xj) / x
		}
		factor[row] = vals
	}

	return &PTDFResult{
		Branches:  branches,
		Buses:     buses,
		Factor:    factor,
		branchRow: branchRow,
		busCol:    busCol,
	}, nil
}
