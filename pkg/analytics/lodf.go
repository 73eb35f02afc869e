package analytics

import "github.com/gatproject/gat/pkg/model"

// LODFResult is the line-outage distribution factor matrix (spec
// glossary "PTDF / LODF"): LODF[monitored][outaged] is the fraction of
// the outaged branch's pre-outage flow that redistributes onto the
// monitored branch. The diagonal (a branch's LODF with respect to its
// own outage) is undefined and left at 0; callers that monitor a branch
// for its own outage already know its post-outage flow is 0.
type LODFResult struct {
	Branches []model.BranchID
	Factor   [][]float64

	row map[model.BranchID]int
}

// At returns LODF[monitored][outaged], or 0 if either branch is unknown
// to this result or the pair is the (undefined) diagonal.
func (r *LODFResult) At(monitored, outaged model.BranchID) float64 {
	i, ok := r.row[monitored]
	if !ok {
		return 0
	}
	k, ok := r.row[outaged]
	if !ok {
		return 0
	}
	return r.Factor[i][k]
}

// ComputeLODF derives line-outage distribution factors from an
// already-computed PTDF matrix: LODF_{l,k} = (PTDF_{l,i_k} -
// PTDF_{l,j_k}) / (1 - (PTDF_{k,i_k} - PTDF_{k,j_k})), the standard
// single-outage linearization (the denominator is the outaged branch's
// own PTDF with respect to a transfer between its own endpoints, i.e.
// how much of its own flow it "sees" of itself). A denominator within
// 1e-9 of zero means the outaged branch is radial to one side of the
// network and is skipped (its column stays all zero): the outage
// islands that side rather than redistributing flow onto survivors,
// which is pkg/contingency's job, not this matrix's.
func ComputeLODF(net model.Grid, ptdf *PTDFResult) *LODFResult {
	n := len(ptdf.Branches)
	factor := make([][]float64, n)
	for i := range factor {
		factor[i] = make([]float64, n)
	}

	for k, outaged := range ptdf.Branches {
		br := net.Branch(outaged)
		from, to := br.From, br.To
		denom := 1 - (ptdf.At(outaged, from) - ptdf.At(outaged, to))
		if denom < 1e-9 && denom > -1e-9 {
			continue
		}
		for l, monitored := range ptdf.Branches {
			if l == k {
				continue
			}
			factor[l][k] = (ptdf.At(monitored, from) - ptdf.At(monitored, to)) / denom
		}
	}

	return &LODFResult{Branches: ptdf.Branches, Factor: factor, row: ptdf.branchRow}
}
