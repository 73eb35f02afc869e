// Package fixture builds small in-memory example networks for tests
// and cmd/gat (spec §6: "the teacher's pkg/netlist SPICE-deck parser is
// adapted instead into internal/fixture, an in-memory example network
// builder... not a format importer"). There is no textual format here,
// on purpose: unlike the teacher's netlist.Parse, which turns a .cir
// deck into a Circuit, these functions construct a model.Network
// directly through model.Builder, the same construction path any real
// importer would use.
package fixture

import "github.com/gatproject/gat/pkg/model"

// SixBus returns a textbook six-bus, three-generator, seven-branch
// system: a slack plant at bus1, a mid-merit plant at bus2, a peaker at
// bus3, and load concentrated at buses 4-6, wired as a loop (1-2-4-6-
// 5-3-1 plus a 2-5 tie) so every branch outage has an alternate path.
// Reactances and ratings are round numbers chosen to keep the network
// well within thermal and voltage limits at the given loads, not
// reverse-engineered from a published case.
func SixBus() (*model.Network, error) {
	b := model.NewBuilder("sixbus", 100)

	b.AddBus(model.Bus{Name: "bus1", Type: model.Slack, NominalKV: 230, Vm: 1.03, Vmin: 0.94, Vmax: 1.06})
	b.AddBus(model.Bus{Name: "bus2", Type: model.PV, NominalKV: 230, Vm: 1.02, Vmin: 0.94, Vmax: 1.06})
	b.AddBus(model.Bus{Name: "bus3", Type: model.PV, NominalKV: 230, Vm: 1.01, Vmin: 0.94, Vmax: 1.06})
	b.AddBus(model.Bus{Name: "bus4", Type: model.PQ, NominalKV: 230, Vm: 1.0, Vmin: 0.94, Vmax: 1.06})
	b.AddBus(model.Bus{Name: "bus5", Type: model.PQ, NominalKV: 230, Vm: 1.0, Vmin: 0.94, Vmax: 1.06})
	b.AddBus(model.Bus{Name: "bus6", Type: model.PQ, NominalKV: 230, Vm: 1.0, Vmin: 0.94, Vmax: 1.06})

	branches := []struct {
		name     string
		from, to string
		r, x, b  float64
		rateA    float64
	}{
		{"L12", "bus1", "bus2", 0.010, 0.085, 0.02, 180},
		{"L24", "bus2", "bus4", 0.015, 0.100, 0.02, 140},
		{"L46", "bus4", "bus6", 0.012, 0.090, 0.02, 140},
		{"L65", "bus6", "bus5", 0.014, 0.095, 0.02, 140},
		{"L53", "bus5", "bus3", 0.011, 0.088, 0.02, 160},
		{"L31", "bus3", "bus1", 0.013, 0.092, 0.02, 160},
		{"L25", "bus2", "bus5", 0.020, 0.150, 0.01, 100}, // tie brace across the loop
	}
	for _, br := range branches {
		if err := b.AddBranch(model.Branch{
			Name: br.name, R: br.r, X: br.x, BTotal: br.b, TapRatio: 1,
			RateA: br.rateA, RateB: br.rateA, RateC: br.rateA * 1.1, Status: model.Closed,
		}, br.from, br.to); err != nil {
			return nil, err
		}
	}

	generators := []struct {
		name       string
		bus        string
		pmin, pmax float64
		qmin, qmax float64
		vset       float64
		ramp       float64
		cost       model.CostModel
	}{
		{"G1-base", "bus1", 20, 220, -100, 150, 1.03, 40, model.NewPolynomialCost(180, 14.0, 0.011)},
		{"G2-mid", "bus2", 10, 140, -60, 90, 1.02, 60, model.NewPolynomialCost(90, 18.5, 0.018)},
		{"G3-peak", "bus3", 0, 90, -40, 60, 1.01, 120, model.NewPolynomialCost(40, 27.0, 0.030)},
	}
	for _, g := range generators {
		if err := b.AddGenerator(model.Generator{
			Name: g.name, Pmin: g.pmin, Pmax: g.pmax, Qmin: g.qmin, Qmax: g.qmax,
			VmSetpoint: g.vset, MBase: 100, Status: model.InService,
			Cost: g.cost, RampMWPerHr: g.ramp,
		}, g.bus); err != nil {
			return nil, err
		}
	}

	loads := []struct {
		name string
		bus  string
		p, q float64
	}{
		{"load4", "bus4", 110, 35},
		{"load5", "bus5", 90, 30},
		{"load6", "bus6", 70, 20},
	}
	for _, l := range loads {
		if err := b.AddLoad(model.Load{Name: l.name, P: l.p, Q: l.q, Status: model.InService}, l.bus); err != nil {
			return nil, err
		}
	}

	if err := b.AddShunt(model.Shunt{Name: "cap6", B: 0.03, Status: model.InService}, "bus6"); err != nil {
		return nil, err
	}

	return b.Build()
}
