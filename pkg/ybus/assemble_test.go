package ybus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/sparsekit"
)

// TestAssembleACNoInjectionHoldsVoltage checks that, with AssembleAC's
// stamped complex Y-bus and no current injected at the far bus, the far
// bus's solved voltage equals the pinned slack voltage: a single lossy
// series branch carrying zero current has zero voltage drop across it,
// independent of its R/X. The slack is pinned with the same big-weight
// trick pkg/powerflow's Gauss-Seidel warm start uses, since the
// sparsekit.Matrix interface only ever adds to a row, never replaces it.
func TestAssembleACNoInjectionHoldsVoltage(t *testing.T) {
	b := model.NewBuilder("two-bus-ac", 100)
	b.AddBus(model.Bus{Name: "bus0", Type: model.Slack, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus1", Type: model.PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	require.NoError(t, b.AddBranch(model.Branch{Name: "l01", R: 0.02, X: 0.15, Status: model.Closed}, "bus0", "bus1"))
	net, err := b.Build()
	require.NoError(t, err)

	mat := sparsekit.NewMatrix(net.NumBuses(), true, sparsekit.SparseBackend)
	AssembleAC(net, mat)

	const pin = 1e8
	mat.AddComplexElement(Row(0), Row(0), pin, 0)
	mat.AddComplexRHS(Row(0), pin, 0)

	require.NoError(t, mat.Solve())

	re0, im0 := mat.GetComplexSolution(Row(0))
	re1, im1 := mat.GetComplexSolution(Row(1))
	require.InDelta(t, 1, re0, 1e-4)
	require.InDelta(t, 0, im0, 1e-4)
	require.InDelta(t, re0, re1, 1e-4)
	require.InDelta(t, im0, im1, 1e-4)
}

// TestAssembleACShuntAddsSusceptance checks that a shunt's B is added to
// the diagonal so a non-slack bus with a shunt and no other injection
// does not simply mirror the slack voltage, unlike the no-shunt case
// above.
func TestAssembleACShuntAddsSusceptance(t *testing.T) {
	b := model.NewBuilder("two-bus-shunt", 100)
	b.AddBus(model.Bus{Name: "bus0", Type: model.Slack, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus1", Type: model.PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	require.NoError(t, b.AddBranch(model.Branch{Name: "l01", R: 0.02, X: 0.15, Status: model.Closed}, "bus0", "bus1"))
	require.NoError(t, b.AddShunt(model.Shunt{Name: "cap1", B: 0.5, Status: model.InService}, "bus1"))
	net, err := b.Build()
	require.NoError(t, err)

	mat := sparsekit.NewMatrix(net.NumBuses(), true, sparsekit.SparseBackend)
	AssembleAC(net, mat)

	const pin = 1e8
	mat.AddComplexElement(Row(0), Row(0), pin, 0)
	mat.AddComplexRHS(Row(0), pin, 0)

	require.NoError(t, mat.Solve())

	re0, im0 := mat.GetComplexSolution(Row(0))
	re1, im1 := mat.GetComplexSolution(Row(1))
	require.False(t, re0 == re1 && im0 == im1, "shunt susceptance should perturb bus1's voltage away from bus0's")
}

// TestAssembleDCSkipsSlackRowAndColumn checks that passing a nonzero
// slackRow leaves that row's diagonal unstamped and never adds an
// off-diagonal term into any other row's slack column, exactly the
// shape SolveDC needs to pin θ_slack=0 with a single identity equation.
func TestAssembleDCSkipsSlackRowAndColumn(t *testing.T) {
	b := model.NewBuilder("two-bus-dc", 100)
	b.AddBus(model.Bus{Name: "bus0", Type: model.Slack, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus1", Type: model.PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	require.NoError(t, b.AddBranch(model.Branch{Name: "l01", X: 0.1, Status: model.Closed}, "bus0", "bus1"))
	require.NoError(t, b.AddLoad(model.Load{Name: "load1", P: 50, Status: model.InService}, "bus1"))
	net, err := b.Build()
	require.NoError(t, err)

	slackRow := Row(0)
	mat := sparsekit.NewMatrix(net.NumBuses(), false, sparsekit.SparseBackend)
	AssembleDC(net, mat, slackRow)
	mat.AddElement(slackRow, slackRow, 1)
	mat.AddRHS(Row(1), -50.0/net.BaseMVA())

	require.NoError(t, mat.Solve())
	sol := mat.Solution()
	require.InDelta(t, 0, sol[slackRow], 1e-9)
	require.InDelta(t, -0.05, sol[Row(1)], 1e-9)
}
