package contingency

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/powerflow"
)

func acTwoBusNetwork(t *testing.T) *model.Network {
	t.Helper()
	b := model.NewBuilder("acpair", 100)
	b.AddBus(model.Bus{Name: "bus0", Type: model.Slack, Vm: 1.02, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus1", Type: model.PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	require.NoError(t, b.AddGenerator(model.Generator{Name: "gen0", Pmin: 0, Pmax: 200, VmSetpoint: 1.02, Status: model.InService, Cost: model.NewPolynomialCost(0, 20)}, "bus0"))
	require.NoError(t, b.AddBranch(model.Branch{Name: "tie", R: 0.01, X: 0.08, RateA: 200, Status: model.Closed}, "bus0", "bus1"))
	require.NoError(t, b.AddLoad(model.Load{Name: "load1", P: 50, Q: 15, Status: model.InService}, "bus1"))
	net, err := b.Build()
	require.NoError(t, err)
	return net
}

// TestEstimateStateRecoversNoiseFreeTruth feeds EstimateState with
// measurements synthesized exactly from a converged AC power-flow
// solve (zero noise, Sigma=1 weights), so the WLS estimate should
// reproduce the true state to numeric-solver tolerance and leave
// near-zero residuals.
func TestEstimateStateRecoversNoiseFreeTruth(t *testing.T) {
	net := acTwoBusNetwork(t)
	truth, err := powerflow.SolveAC(net)
	require.NoError(t, err)
	require.True(t, truth.Converged)

	var tie model.BranchID
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		if br.Name == "tie" {
			tie = id
		}
	})

	measurements := []Measurement{
		{Kind: VmMeasurement, Bus: 0, Value: truth.Bus[0].Vm, Sigma: 0.001},
		{Kind: VmMeasurement, Bus: 1, Value: truth.Bus[1].Vm, Sigma: 0.001},
		{Kind: PFlowMeasurement, Branch: tie, Value: truth.Branch[tie].P, Sigma: 0.1},
		{Kind: QFlowMeasurement, Branch: tie, Value: truth.Branch[tie].Q, Sigma: 0.1},
		{Kind: PInjMeasurement, Bus: 1, Value: -50, Sigma: 0.1},
		{Kind: QInjMeasurement, Bus: 1, Value: -15, Sigma: 0.1},
	}

	est, err := EstimateState(net, measurements, DefaultEstimateOptions())
	require.NoError(t, err)
	require.True(t, est.Converged)

	for id, br := range truth.Bus {
		require.InDelta(t, br.Vm, est.BusVm[id], 1e-3)
		require.InDelta(t, br.Va, est.BusVa[id], 1e-3)
	}
	for _, r := range est.Residuals {
		require.True(t, math.Abs(r) < 1, "noise-free measurements should leave small residuals")
	}
}
