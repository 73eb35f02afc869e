package powerflow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatproject/gat/pkg/model"
)

func twoBusNetwork(t *testing.T) *model.Network {
	t.Helper()
	b := model.NewBuilder("two-bus", 100)
	b.AddBus(model.Bus{Name: "bus0", Type: model.Slack, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus1", Type: model.PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	require.NoError(t, b.AddBranch(model.Branch{Name: "line01", X: 0.1, RateA: 200, Status: model.Closed}, "bus0", "bus1"))
	require.NoError(t, b.AddLoad(model.Load{Name: "load1", P: 100, Status: model.InService}, "bus1"))
	net, err := b.Build()
	require.NoError(t, err)
	return net
}

// TestSolveDCTwoBus exercises E1: a two-bus case with x=0.1 and a 100MW
// load at the non-slack bus must produce θ_1 = -0.1 rad and a from-end
// branch flow of +100MW.
func TestSolveDCTwoBus(t *testing.T) {
	net := twoBusNetwork(t)

	res, err := SolveDC(net)
	require.NoError(t, err)

	require.InDelta(t, 0, res.Bus[0].Va, 1e-9)
	require.InDelta(t, -0.1, res.Bus[1].Va, 1e-9)
	require.InDelta(t, 100, res.Branch[0].P, 1e-6)
}

// TestSolveDCRequiresReferenceBus checks the guarantee SolveDC relies on:
// Build rejects a network with no Slack bus, so none reaches SolveDC.
func TestSolveDCRequiresReferenceBus(t *testing.T) {
	b := model.NewBuilder("no-slack", 100)
	b.AddBus(model.Bus{Name: "bus0", Type: model.PQ, Vmin: 0.9, Vmax: 1.1})
	net, err := b.Build()
	require.Error(t, err)
	require.Nil(t, net)
}

func TestSolveDCPhaseShiftInjection(t *testing.T) {
	b := model.NewBuilder("phase-shift", 100)
	b.AddBus(model.Bus{Name: "bus0", Type: model.Slack, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus1", Type: model.PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	require.NoError(t, b.AddBranch(model.Branch{Name: "line01", X: 0.1, PhaseShift: 0.05, Status: model.Closed}, "bus0", "bus1"))
	net, err := b.Build()
	require.NoError(t, err)

	res, err := SolveDC(net)
	require.NoError(t, err)
	// With no load, θ_1 must settle so that the flow (θ0-θ1-φ)/x equals
	// zero, i.e. θ_1 = θ0 - φ = -0.05.
	require.InDelta(t, -0.05, res.Bus[1].Va, 1e-9)
	require.InDelta(t, 0, math.Abs(res.Branch[0].P), 1e-6)
}
