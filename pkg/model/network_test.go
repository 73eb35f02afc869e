package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func twoBusNetwork(t *testing.T) *Network {
	t.Helper()
	b := NewBuilder("two-bus", 100)
	b.AddBus(Bus{Name: "bus0", Type: Slack, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(Bus{Name: "bus1", Type: PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	require.NoError(t, b.AddBranch(Branch{Name: "line01", X: 0.1, RateA: 200}, "bus0", "bus1"))
	require.NoError(t, b.AddLoad(Load{Name: "load1", P: 100}, "bus1"))
	net, err := b.Build()
	require.NoError(t, err)
	return net
}

func TestNetworkConstructionAndAdjacency(t *testing.T) {
	net := twoBusNetwork(t)
	require.Equal(t, 2, net.NumBuses())
	require.Equal(t, 1, net.NumBranches())
	id, ok := net.BusByName("bus1")
	require.True(t, ok)
	require.Len(t, net.BranchesAt(id), 1)
	slack, ok := net.SlackBus()
	require.True(t, ok)
	require.Equal(t, BusID(0), slack)
}

func TestNetworkRejectsMissingSlack(t *testing.T) {
	b := NewBuilder("no-slack", 100)
	b.AddBus(Bus{Name: "bus0", Type: PQ, Vmin: 0.9, Vmax: 1.1})
	_, err := b.Build()
	require.Error(t, err)
}

func TestNetworkRejectsVminGreaterThanVmax(t *testing.T) {
	b := NewBuilder("bad-vlimits", 100)
	b.AddBus(Bus{Name: "bus0", Type: Slack, Vmin: 1.1, Vmax: 0.9})
	_, err := b.Build()
	require.Error(t, err)
}

func TestViewMasksBranchWithoutMutatingParent(t *testing.T) {
	net := twoBusNetwork(t)
	view := NewView(net).WithBranchOut(0)

	require.Equal(t, Open, view.Branch(0).Status)
	require.Equal(t, Closed, net.Branch(0).Status)
}
