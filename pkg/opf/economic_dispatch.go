package opf

import (
	"sort"

	"github.com/gatproject/gat/pkg/gaterrors"
	"github.com/gatproject/gat/pkg/model"
)

// meritBlock is one constant-marginal-cost slice of a generator's
// capacity, the common unit economic dispatch fills by ascending
// slope regardless of whether the generator's cost is linear,
// piecewise-linear, or quadratic (spec §4.4.1).
type meritBlock struct {
	gen   model.GenID
	slope float64
	cap   float64 // MW width of this block
}

const quadraticFillBlocks = 64

// meritBlocksFor returns cost's marginal-cost blocks over [pmin,pmax].
// Polynomial degree<=1 and PiecewiseLinear reduce directly to
// model.CostModel.Segments; a true quadratic (degree 2) is discretized
// into quadraticFillBlocks equal-width slices, each priced at its
// midpoint marginal cost — the "quadratic fill" named in spec §4.4.1,
// which converges to the exact equal-marginal-cost dispatch as the
// block count grows, since a convex marginal cost is monotonically
// increasing in P and so sorts its own blocks in P order automatically.
func meritBlocksFor(id model.GenID, cost model.CostModel, pmin, pmax float64) []meritBlock {
	if cost.Variant == model.Polynomial && len(cost.Coeffs) >= 3 && cost.Coeffs[2] != 0 {
		width := (pmax - pmin) / float64(quadraticFillBlocks)
		if width <= 0 {
			return nil
		}
		blocks := make([]meritBlock, 0, quadraticFillBlocks)
		for k := 0; k < quadraticFillBlocks; k++ {
			mid := pmin + width*(float64(k)+0.5)
			blocks = append(blocks, meritBlock{gen: id, slope: cost.Marginal(mid), cap: width})
		}
		return blocks
	}

	segs := cost.Segments(pmin, pmax)
	blocks := make([]meritBlock, 0, len(segs))
	for _, s := range segs {
		if s.PEnd <= s.PStart {
			continue
		}
		blocks = append(blocks, meritBlock{gen: id, slope: s.Slope, cap: s.PEnd - s.PStart})
	}
	return blocks
}

// solveEconomicDispatch implements spec §4.4.1: merit-order dispatch
// ignoring the network entirely. LMP is uniform across the system and
// equals the marginal cost of the last (partially filled) block.
func solveEconomicDispatch(net model.Grid, opts Options) (Solution, error) {
	totalLoad := 0.0
	net.EachLoad(func(_ model.LoadID, l model.Load) {
		if l.Status == model.InService {
			totalLoad += l.P
		}
	})

	var blocks []meritBlock
	pmin := map[model.GenID]float64{}
	dispatch := map[model.GenID]float64{}
	costs := map[model.GenID]model.CostModel{}
	net.EachGenerator(func(id model.GenID, g model.Generator) {
		if g.Status != model.InService {
			return
		}
		pmin[id] = g.Pmin
		dispatch[id] = g.Pmin
		costs[id] = g.Cost
		blocks = append(blocks, meritBlocksFor(id, g.Cost, g.Pmin, g.Pmax)...)
	})

	// Pmin is always committed first (spec's bound pmin_g <= P_g).
	committed := 0.0
	for _, p := range pmin {
		committed += p
	}

	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].slope < blocks[j].slope })

	remaining := totalLoad - committed
	if remaining < -1e-9 {
		return Solution{}, gaterrors.New(gaterrors.KindInfeasible, "total Pmin exceeds load", nil)
	}

	lmp := 0.0
	for _, blk := range blocks {
		if remaining <= 1e-12 {
			break
		}
		take := blk.cap
		if take > remaining {
			take = remaining
		}
		dispatch[blk.gen] += take
		remaining -= take
		lmp = blk.slope
	}
	if remaining > 1e-6 {
		return Solution{}, gaterrors.New(gaterrors.KindInfeasible, "insufficient generation capacity to serve load", map[string]any{"shortfall_mw": remaining})
	}

	sol := Solution{
		Method:     EconomicDispatch,
		Converged:  true,
		Iterations: 1,
		GenP:       dispatch,
		LMP:        map[model.BusID]float64{},
	}
	net.EachBus(func(id model.BusID, _ model.Bus) {
		sol.LMP[id] = lmp
	})
	for id, p := range dispatch {
		sol.Objective += costs[id].Eval(p)
	}
	return sol, nil
}
