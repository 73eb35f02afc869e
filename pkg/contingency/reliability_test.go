package contingency

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatproject/gat/pkg/model"
)

// reliabilityFixture builds a two-bus network with a baseload generator
// at the slack and a second generator at the load bus; only the second
// generator is ever made to fail, so the network stays a single
// connected component throughout (the per-sample load-shedding DC-OPF
// never hits the "outage splits the network" fallback path).
func reliabilityFixture(t *testing.T, slackCapacity float64) (*model.Network, model.GenID) {
	t.Helper()
	b := model.NewBuilder("reliability", 100)
	b.AddBus(model.Bus{Name: "bus0", Type: model.Slack, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	b.AddBus(model.Bus{Name: "bus1", Type: model.PQ, Vm: 1, Vmin: 0.9, Vmax: 1.1})
	require.NoError(t, b.AddGenerator(model.Generator{Name: "slackgen", Pmin: 0, Pmax: slackCapacity, Status: model.InService, Cost: model.NewPolynomialCost(0, 20)}, "bus0"))
	require.NoError(t, b.AddGenerator(model.Generator{Name: "peaker", Pmin: 0, Pmax: 60, Status: model.InService, Cost: model.NewPolynomialCost(0, 40)}, "bus1"))
	require.NoError(t, b.AddBranch(model.Branch{Name: "tie", X: 0.1, RateA: 500, Status: model.Closed}, "bus0", "bus1"))
	require.NoError(t, b.AddLoad(model.Load{Name: "load1", P: 100, Status: model.InService}, "bus1"))
	net, err := b.Build()
	require.NoError(t, err)

	var peaker model.GenID
	net.EachGenerator(func(id model.GenID, g model.Generator) {
		if g.Name == "peaker" {
			peaker = id
		}
	})
	return net, peaker
}

func TestMonteCarloReliabilityZeroWhenSlackAloneCoversLoad(t *testing.T) {
	net, peaker := reliabilityFixture(t, 150) // slack alone (150MW) exceeds the 100MW load
	cfg := ReliabilityConfig{
		Elements:     []ElementFailure{{Gen: peaker, HasGen: true, LambdaPerYr: 5, MTTRHours: 20}},
		HorizonHours: 8760,
		Samples:      300,
		Seed:         42,
	}
	report, err := MonteCarloReliability(net, cfg)
	require.NoError(t, err)
	require.Equal(t, 300, report.Samples)
	require.Zero(t, report.LOLEHoursPerYear)
	require.Zero(t, report.EUEMWhPerYear)
}

func TestMonteCarloReliabilityPositiveWhenSlackAloneIsShort(t *testing.T) {
	net, peaker := reliabilityFixture(t, 50) // slack alone (50MW) cannot cover the 100MW load
	cfg := ReliabilityConfig{
		Elements:     []ElementFailure{{Gen: peaker, HasGen: true, LambdaPerYr: 5, MTTRHours: 20}},
		HorizonHours: 8760,
		Samples:      300,
		Seed:         42,
	}
	report, err := MonteCarloReliability(net, cfg)
	require.NoError(t, err)
	require.Equal(t, 300, report.Samples)
	require.Greater(t, report.LOLEHoursPerYear, 0.0)
	require.Greater(t, report.EUEMWhPerYear, 0.0)
}

func TestMonteCarloReliabilityIsReproducibleForFixedSeed(t *testing.T) {
	net, peaker := reliabilityFixture(t, 50)
	cfg := ReliabilityConfig{
		Elements:     []ElementFailure{{Gen: peaker, HasGen: true, LambdaPerYr: 2, MTTRHours: 4}},
		HorizonHours: 8760,
		Samples:      100,
		Seed:         123,
	}
	r1, err := MonteCarloReliability(net, cfg)
	require.NoError(t, err)
	r2, err := MonteCarloReliability(net, cfg)
	require.NoError(t, err)
	require.Equal(t, r1, r2, "identical seed and config must reproduce identical results")
}
