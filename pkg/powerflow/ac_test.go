package powerflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatproject/gat/pkg/model"
)

// TestSolveACConvergesOnTwoBus checks that AC and DC power flow agree to
// first order on a lossless, lightly-loaded case (spec §8 testable
// property: "DC and AC power flow agree within O(x) on lossless,
// lightly loaded networks").
func TestSolveACConvergesOnTwoBus(t *testing.T) {
	net := twoBusNetwork(t)

	dc, err := SolveDC(net)
	require.NoError(t, err)

	ac, err := SolveAC(net)
	require.NoError(t, err)
	require.True(t, ac.Converged)
	require.Less(t, ac.Iterations, 10)

	require.InDelta(t, dc.Bus[1].Va, ac.Bus[1].Va, 0.02)
	require.InDelta(t, 1.0, ac.Bus[1].Vm, 0.05)
	require.InDelta(t, dc.Branch[0].P, ac.Branch[0].P, 2.0)
}

// TestSolveACRequiresReferenceBus checks the guarantee SolveAC relies on:
// Build rejects a network with no Slack bus, so none reaches SolveAC.
func TestSolveACRequiresReferenceBus(t *testing.T) {
	b := model.NewBuilder("no-slack", 100)
	b.AddBus(model.Bus{Name: "bus0", Type: model.PQ, Vmin: 0.9, Vmax: 1.1})
	net, err := b.Build()
	require.Error(t, err)
	require.Nil(t, net)
}

// TestSolveACPVBusHoldsVoltage checks that a PV bus without a binding Q
// limit holds its voltage setpoint at convergence (spec §4.3).
func TestSolveACPVBusHoldsVoltage(t *testing.T) {
	b := model.NewBuilder("pv-case", 100)
	b.AddBus(model.Bus{Name: "slack", Type: model.Slack, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "pv", Type: model.PV, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "load", Type: model.PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	require.NoError(t, b.AddBranch(model.Branch{Name: "l01", X: 0.1, Status: model.Closed}, "slack", "pv"))
	require.NoError(t, b.AddBranch(model.Branch{Name: "l12", X: 0.1, Status: model.Closed}, "pv", "load"))
	require.NoError(t, b.AddGenerator(model.Generator{Name: "g1", P: 50, VmSetpoint: 1.02, Qmin: -100, Qmax: 100, Status: model.InService}, "pv"))
	require.NoError(t, b.AddLoad(model.Load{Name: "ld", P: 80, Q: 20, Status: model.InService}, "load"))
	net, err := b.Build()
	require.NoError(t, err)

	res, err := SolveAC(net)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.InDelta(t, 1.02, res.Bus[1].Vm, 1e-4)
}
