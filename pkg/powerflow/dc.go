package powerflow

import (
	"github.com/gatproject/gat/pkg/gaterrors"
	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/sparsekit"
	"github.com/gatproject/gat/pkg/ybus"
)

// SolveDC solves B'θ = P for bus angles (spec §4.2), pinning the Slack
// bus at θ=0 by replacing its row with an identity equation and never
// populating its column, which is algebraically equivalent to removing
// the reference row/column since θ_slack is then the literal constant
// 0 rather than a free unknown. Convergence is unconditional: this is a
// single linear solve.
func SolveDC(net model.Grid) (DCResult, error) {
	slack, ok := net.SlackBus()
	if !ok {
		return DCResult{}, gaterrors.New(gaterrors.KindIslanded, "no reference bus for DC power flow", nil)
	}

	n := net.NumBuses()
	mat := sparsekit.NewMatrix(n, false, sparsekit.AutoBackend)
	slackRow := ybus.Row(slack)

	phaseInjection := ybus.AssembleDC(net, mat, slackRow)
	mat.AddElement(slackRow, slackRow, 1)

	baseMVA := net.BaseMVA()
	net.EachGenerator(func(_ model.GenID, g model.Generator) {
		if g.Status != model.InService {
			return
		}
		row := ybus.Row(g.Bus)
		if row == slackRow {
			return
		}
		mat.AddRHS(row, g.P/baseMVA)
	})
	net.EachLoad(func(_ model.LoadID, l model.Load) {
		if l.Status != model.InService {
			return
		}
		row := ybus.Row(l.Bus)
		if row == slackRow {
			return
		}
		mat.AddRHS(row, -l.P/baseMVA)
	})
	for i := 1; i <= n; i++ {
		if i != slackRow && phaseInjection[i] != 0 {
			mat.AddRHS(i, phaseInjection[i])
		}
	}

	if err := mat.Solve(); err != nil {
		return DCResult{}, err
	}

	sol := mat.Solution()
	res := DCResult{
		Bus:    make(map[model.BusID]BusResult, n),
		Branch: make(map[model.BranchID]BranchResult, net.NumBranches()),
	}
	net.EachBus(func(id model.BusID, _ model.Bus) {
		res.Bus[id] = BusResult{Vm: 1.0, Va: sol[ybus.Row(id)]}
	})
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		if br.Status != model.Closed {
			res.Branch[id] = BranchResult{}
			return
		}
		thetaI := sol[ybus.Row(br.From)]
		thetaJ := sol[ybus.Row(br.To)]
		x := br.X
		if x == 0 {
			x = 1e-6
		}
		flowPU := (thetaI - thetaJ - br.PhaseShift) / x
		res.Branch[id] = BranchResult{P: flowPU * baseMVA}
	})

	return res, nil
}
