package contingency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatproject/gat/pkg/model"
)

// triangleNetwork builds the E4-style three-bus triangle: a slack bus
// feeding a load through two parallel paths (a direct branch and a
// two-hop path through the third bus), every branch rated 60MW.
func triangleNetwork(t *testing.T) *model.Network {
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
	return net
}

func TestEnumerateNKRunsEveryScenario(t *testing.T) {
	net := triangleNetwork(t)
	var b01, b02 model.BranchID
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		switch br.Name {
		case "b01":
			b01 = id
		case "b02":
			b02 = id
		}
	})

	scenarios := []Scenario{
		{ID: 0, Outages: nil},
		{ID: 1, Outages: []Outage{BranchOutage(b01)}},
		{ID: 2, Outages: []Outage{BranchOutage(b02)}},
	}

	results, err := EnumerateNK(context.Background(), net, scenarios, ModeDC, EnumerateOptions{Threads: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		require.Equal(t, i, r.ScenarioID, "results must come back sorted by scenario id")
		require.NoError(t, r.Err)
		require.True(t, r.Converged)
	}
}

func TestEnumerateNKOutageStillConnected(t *testing.T) {
	net := triangleNetwork(t)
	var b01 model.BranchID
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		if br.Name == "b01" {
			b01 = id
		}
	})

	results, err := EnumerateNK(context.Background(), net, []Scenario{{ID: 0, Outages: []Outage{BranchOutage(b01)}}}, ModeDC, EnumerateOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.True(t, results[0].Converged)
	require.False(t, results[0].Islanded, "a triangle loses redundancy but stays connected after a single branch outage")
}

func TestIslandsOfDetectsSplitNetwork(t *testing.T) {
	b := model.NewBuilder("split", 100)
	b.AddBus(model.Bus{Name: "bus0", Type: model.Slack, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus1", Type: model.PQ, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus2", Type: model.PQ, Vmin: 0.9, Vmax: 1.1})
	require.NoError(t, b.AddBranch(model.Branch{Name: "b01", X: 0.1, Status: model.Closed}, "bus0", "bus1"))
	require.NoError(t, b.AddBranch(model.Branch{Name: "b12", X: 0.1, Status: model.Open}, "bus1", "bus2"))
	net, err := b.Build()
	require.NoError(t, err)

	islands := islandsOf(net)
	require.Len(t, islands, 2)
}
