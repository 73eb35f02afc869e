package analytics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatproject/gat/pkg/model"
)

// twoCliqueNetwork builds two tightly-meshed 3-bus clusters joined by a
// single tie branch, the textbook case a balanced 2-way partition
// should cut exactly once: any reasonable spectral bisection puts each
// clique in its own area and the tie on the boundary.
func twoCliqueNetwork(t *testing.T) *model.Network {
	t.Helper()
	b := model.NewBuilder("two-clique", 100)
	names := []string{"a0", "a1", "a2", "b0", "b1", "b2"}
	for i, n := range names {
		typ := model.PQ
		if i == 0 {
			typ = model.Slack
		}
		b.AddBus(model.Bus{Name: n, Type: typ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	}
	clique := func(prefix string) {
		pairs := [][2]string{{"0", "1"}, {"1", "2"}, {"0", "2"}}
		for _, p := range pairs {
			require.NoError(t, b.AddBranch(model.Branch{Name: prefix + p[0] + p[1], X: 0.05, RateA: 100, Status: model.Closed}, prefix+p[0], prefix+p[1]))
		}
	}
	clique("a")
	clique("b")
	require.NoError(t, b.AddBranch(model.Branch{Name: "tie", X: 0.5, RateA: 100, Status: model.Closed}, "a0", "b0"))
	require.NoError(t, b.AddGenerator(model.Generator{Name: "slackgen", Pmin: 0, Pmax: 200, Status: model.InService, Cost: model.NewPolynomialCost(0, 20)}, "a0"))
	require.NoError(t, b.AddLoad(model.Load{Name: "load", P: 10, Status: model.InService}, "b0"))

	net, err := b.Build()
	require.NoError(t, err)
	return net
}

func TestPartitionSeparatesTwoCliquesAcrossTheTie(t *testing.T) {
	net := twoCliqueNetwork(t)
	result, err := Partition(net, 2)
	require.NoError(t, err)
	require.Equal(t, 2, result.NumPartitions)
	require.Len(t, result.Area, 6)

	var aIDs, bIDs []model.BusID
	net.EachBus(func(id model.BusID, bus model.Bus) {
		if bus.Name[0] == 'a' {
			aIDs = append(aIDs, id)
		} else {
			bIDs = append(bIDs, id)
		}
	})
	for _, id := range aIDs[1:] {
		require.Equal(t, result.Area[aIDs[0]], result.Area[id], "clique a must stay in one area")
	}
	for _, id := range bIDs[1:] {
		require.Equal(t, result.Area[bIDs[0]], result.Area[id], "clique b must stay in one area")
	}
	require.NotEqual(t, result.Area[aIDs[0]], result.Area[bIDs[0]], "the two cliques must land in different areas")

	require.Len(t, result.Boundary, 1, "only the tie branch should cross areas")
}

func TestPartitionSinglePartitionHasNoBoundary(t *testing.T) {
	net := twoCliqueNetwork(t)
	result, err := Partition(net, 1)
	require.NoError(t, err)
	require.Equal(t, 1, result.NumPartitions)
	require.Empty(t, result.Boundary)
}

func TestPartitionRejectsInvalidCount(t *testing.T) {
	net := twoCliqueNetwork(t)
	_, err := Partition(net, 0)
	require.Error(t, err)
}
