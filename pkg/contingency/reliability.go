package contingency

import (
	"gonum.org/v1/gonum/stat/distuv"

	xrand "golang.org/x/exp/rand"

	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/opf"
)

// ElementFailure describes one outage-prone element's compound-Poisson
// failure process (spec §4.5 "per-element failure rates λ and mean
// time to repair μ").
type ElementFailure struct {
	Branch      model.BranchID
	HasBranch   bool
	Gen         model.GenID
	HasGen      bool
	LambdaPerYr float64 // failures/year
	MTTRHours   float64 // mean time to repair, hours
}

// ReliabilityConfig configures MonteCarloReliability.
type ReliabilityConfig struct {
	Elements       []ElementFailure
	HorizonHours   float64 // typically 8760 for one year
	Samples        int
	Seed           uint64
	ShedCostPerMWh float64 // virtual curtailment generator cost, must exceed every real marginal cost
}

// ReliabilityReport is the outcome of MonteCarloReliability (spec §4.5
// "accumulate LOLE ... and EUE").
type ReliabilityReport struct {
	LOLEHoursPerYear float64
	EUEMWhPerYear    float64
	Samples          int
}

// MonteCarloReliability samples outage sets from each element's
// compound-Poisson failure process (distuv.Poisson for the event count,
// distuv.Exponential for each event's duration, both seeded explicitly
// per spec §4.5 "seeds are explicit so runs are reproducible"), solves
// a load-shedding DC-OPF for every sample that produces a nonempty
// outage set, and accumulates LOLE/EUE from the virtual shedding
// generators' dispatch.
func MonteCarloReliability(net *model.Network, cfg ReliabilityConfig) (ReliabilityReport, error) {
	if cfg.Samples <= 0 {
		cfg.Samples = 1000
	}
	if cfg.HorizonHours <= 0 {
		cfg.HorizonHours = 8760
	}
	if cfg.ShedCostPerMWh <= 0 {
		cfg.ShedCostPerMWh = 10000
	}

	src := xrand.NewSource(cfg.Seed)
	annualize := 8760.0 / cfg.HorizonHours

	var loleHours, eueMWh float64
	for s := 0; s < cfg.Samples; s++ {
		var outages []Outage
		var durations []float64
		for _, el := range cfg.Elements {
			poisson := distuv.Poisson{Lambda: el.LambdaPerYr * (cfg.HorizonHours / 8760), Src: src}
			events := int(poisson.Rand())
			if events <= 0 {
				continue
			}
			exp := distuv.Exponential{Rate: 1.0 / el.MTTRHours, Src: src}
			down := 0.0
			for e := 0; e < events; e++ {
				down += exp.Rand()
			}
			if down > cfg.HorizonHours {
				down = cfg.HorizonHours
			}
			if down <= 0 {
				continue
			}
			if el.HasBranch {
				outages = append(outages, BranchOutage(el.Branch))
			}
			if el.HasGen {
				outages = append(outages, GeneratorOutage(el.Gen))
			}
			durations = append(durations, down)
		}
		if len(outages) == 0 {
			continue
		}

		duration := durations[0]
		for _, d := range durations[1:] {
			if d < duration {
				duration = d // scenario lasts only as long as the overlap
			}
		}

		view := applyOutages(net, outages)
		shedMW, err := solveSheddingDcOpf(view, cfg.ShedCostPerMWh)
		if err != nil {
			// DC-OPF has only one global reference angle; an outage set
			// that splits the network loses the LP's rank for any island
			// without the original slack and the solve fails
			// structurally rather than returning a partial dispatch. The
			// conservative fallback charges the whole view's load as
			// unserved for this sample rather than attempting to isolate
			// which island actually lost service.
			shedMW = totalLoad(view)
		}
		if shedMW > 1e-6 {
			loleHours += duration
			eueMWh += shedMW * duration
		}
	}

	return ReliabilityReport{
		LOLEHoursPerYear: loleHours / float64(cfg.Samples) * annualize,
		EUEMWhPerYear:    eueMWh / float64(cfg.Samples) * annualize,
		Samples:          cfg.Samples,
	}, nil
}

func totalLoad(net model.Grid) float64 {
	total := 0.0
	net.EachLoad(func(_ model.LoadID, l model.Load) {
		if l.Status == model.InService {
			total += l.P
		}
	})
	return total
}

// sheddingGrid overlays a virtual curtailment generator at every load
// bus so DC-OPF can shed load instead of returning Infeasible, the
// standard "slack generator" trick for load-shedding LPs. Every OPF
// solve function reads generators exclusively through EachGenerator
// (see rampBoundedGrid in pkg/opf for the same constraint), so the
// virtual generators only need to be visible there and through the
// single-id Generator accessor.
type sheddingGrid struct {
	model.Grid
	virtual []model.Generator
}

func buildSheddingGrid(net model.Grid, costPerMWh float64) *sheddingGrid {
	var virtual []model.Generator
	net.EachLoad(func(_ model.LoadID, l model.Load) {
		if l.Status != model.InService || l.P <= 0 {
			return
		}
		virtual = append(virtual, model.Generator{
			Name:   "shed",
			Bus:    l.Bus,
			Pmin:   0,
			Pmax:   l.P,
			Status: model.InService,
			Cost:   model.NewPolynomialCost(0, costPerMWh),
		})
	})
	return &sheddingGrid{Grid: net, virtual: virtual}
}

func (g *sheddingGrid) NumGenerators() int { return g.Grid.NumGenerators() + len(g.virtual) }

func (g *sheddingGrid) Generator(id model.GenID) model.Generator {
	base := model.GenID(g.Grid.NumGenerators())
	if id >= base {
		return g.virtual[int(id-base)]
	}
	return g.Grid.Generator(id)
}

func (g *sheddingGrid) EachGenerator(fn func(model.GenID, model.Generator)) {
	g.Grid.EachGenerator(fn)
	base := g.Grid.NumGenerators()
	for i, vg := range g.virtual {
		fn(model.GenID(base+i), vg)
	}
}

// solveSheddingDcOpf runs DC-OPF over a sheddingGrid wrapping net and
// returns the total MW dispatched by the virtual curtailment
// generators, i.e. the unserved load for this scenario.
func solveSheddingDcOpf(net model.Grid, costPerMWh float64) (float64, error) {
	grid := buildSheddingGrid(net, costPerMWh)
	sol, err := opf.Solve(grid, opf.DcOpf, opf.DefaultOptions())
	if err != nil {
		return 0, err
	}
	shed := 0.0
	base := net.NumGenerators()
	for id, p := range sol.GenP {
		if int(id) >= base {
			shed += p
		}
	}
	return shed, nil
}
