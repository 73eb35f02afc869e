package analytics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatproject/gat/pkg/model"
)

// radialNetwork builds a slack-bus0 -- bus1 -- bus2 chain with two
// branches: every MW injected at bus2 must flow across both branches in
// full, since there is only one path to the slack, and it flows against
// each branch's from->to orientation, so both PTDFs are -1.
func radialNetwork(t *testing.T) (*model.Network, model.BranchID, model.BranchID) {
	t.Helper()
	b := model.NewBuilder("radial", 100)
	b.AddBus(model.Bus{Name: "bus0", Type: model.Slack, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus1", Type: model.PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus2", Type: model.PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	require.NoError(t, b.AddGenerator(model.Generator{Name: "slackgen", Pmin: 0, Pmax: 200, Status: model.InService, Cost: model.NewPolynomialCost(0, 20)}, "bus0"))
	require.NoError(t, b.AddBranch(model.Branch{Name: "b01", X: 0.1, RateA: 100, Status: model.Closed}, "bus0", "bus1"))
	require.NoError(t, b.AddBranch(model.Branch{Name: "b12", X: 0.2, RateA: 100, Status: model.Closed}, "bus1", "bus2"))
	require.NoError(t, b.AddLoad(model.Load{Name: "load2", P: 50, Status: model.InService}, "bus2"))
	net, err := b.Build()
	require.NoError(t, err)

	var b01, b12 model.BranchID
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		switch br.Name {
		case "b01":
			b01 = id
		case "b12":
			b12 = id
		}
	})
	return net, b01, b12
}

// triangleNetwork mirrors pkg/contingency's E4 fixture: a slack feeding
// a load through a direct branch and a two-hop alternate path, every
// branch the same reactance, so the direct branch carries two thirds of
// the transfer and the two-hop path one third, and an outage of either
// path drives the other to carry the full transfer.
func triangleNetwork(t *testing.T) (*model.Network, model.BranchID, model.BranchID, model.BranchID) {
	t.Helper()
	b := model.NewBuilder("triangle", 100)
	b.AddBus(model.Bus{Name: "bus0", Type: model.Slack, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus1", Type: model.PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus2", Type: model.PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	require.NoError(t, b.AddGenerator(model.Generator{Name: "slackgen", Pmin: 0, Pmax: 200, Status: model.InService, Cost: model.NewPolynomialCost(0, 20)}, "bus0"))
	require.NoError(t, b.AddBranch(model.Branch{Name: "b01", X: 0.1, RateA: 60, Status: model.Closed}, "bus0", "bus1"))
	require.NoError(t, b.AddBranch(model.Branch{Name: "b02", X: 0.1, RateA: 60, Status: model.Closed}, "bus0", "bus2"))
	require.NoError(t, b.AddBranch(model.Branch{Name: "b12", X: 0.1, RateA: 60, Status: model.Closed}, "bus1", "bus2"))
	require.NoError(t, b.AddLoad(model.Load{Name: "load1", P: 100, Status: model.InService}, "bus1"))
	net, err := b.Build()
	require.NoError(t, err)

	var b01, b02, b12 model.BranchID
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		switch br.Name {
		case "b01":
			b01 = id
		case "b02":
			b02 = id
		case "b12":
			b12 = id
		}
	})
	return net, b01, b02, b12
}

func TestComputePTDFRadialChainCarriesFullTransfer(t *testing.T) {
	net, b01, b12 := radialNetwork(t)
	ptdf, err := ComputePTDF(net)
	require.NoError(t, err)

	var bus2 model.BusID
	net.EachBus(func(id model.BusID, bus model.Bus) {
		if bus.Name == "bus2" {
			bus2 = id
		}
	})

	require.InDelta(t, -1.0, ptdf.At(b01, bus2), 1e-9, "both branches on the only path must carry the full injection, to->from")
	require.InDelta(t, -1.0, ptdf.At(b12, bus2), 1e-9)
}

func TestComputePTDFZeroAtSlackBus(t *testing.T) {
	net, b01, _ := radialNetwork(t)
	ptdf, err := ComputePTDF(net)
	require.NoError(t, err)

	var bus0 model.BusID
	net.EachBus(func(id model.BusID, bus model.Bus) {
		if bus.Name == "bus0" {
			bus0 = id
		}
	})
	require.InDelta(t, 0.0, ptdf.At(b01, bus0), 1e-9, "an injection withdrawn at the slack itself causes no flow")
}

func TestComputeLODFRedistributesFullyOntoTheOnlyAlternate(t *testing.T) {
	net, b01, b02, b12 := triangleNetwork(t)
	ptdf, err := ComputePTDF(net)
	require.NoError(t, err)
	lodf := ComputeLODF(net, ptdf)

	// b01 is outaged: every bit of its pre-outage flow that was headed
	// into bus1 must now arrive via b02 then b12. b02 (bus0->bus2)
	// carries it along its orientation and b12 (bus1->bus2) against it,
	// so LODF[b02, b01] and LODF[b12, b01] are nonzero, equal in size and
	// opposite in sign, and the diagonal entry for b01 itself stays the
	// zero-value default (undefined).
	require.NotZero(t, lodf.At(b02, b01))
	require.InDelta(t, lodf.At(b02, b01), -lodf.At(b12, b01), 1e-9)
	require.Zero(t, lodf.At(b01, b01))
}
