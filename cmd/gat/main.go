// Command gat is a small demonstration driver, the spec §6-scoped
// analog of the teacher's cmd/spice: it builds a fixture network
// in-memory (there is no file-format importer, per spec §6's Non-goal)
// and runs power flow, every OPF method, an N-1 contingency sweep, and
// a reliability sample against it, printing results the way the
// teacher's cmd/main.go walks an analyzer's results map and prints it
// section by section.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/gatproject/gat/internal/fixture"
	"github.com/gatproject/gat/pkg/contingency"
	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/opf"
	"github.com/gatproject/gat/pkg/powerflow"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug-level structured logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if *debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	net, err := fixture.SixBus()
	if err != nil {
		logger.Fatal().Err(err).Msg("building fixture network")
	}

	fmt.Println("=== DC power flow ===")
	dc, err := powerflow.SolveDC(net)
	if err != nil {
		logger.Fatal().Err(err).Msg("DC power flow")
	}
	printBuses(net, dc.Bus)

	fmt.Println("\n=== AC power flow ===")
	ac, err := powerflow.SolveAC(net)
	if err != nil {
		logger.Fatal().Err(err).Msg("AC power flow")
	}
	fmt.Printf("converged=%v iterations=%d maxDP=%.6g maxDQ=%.6g\n", ac.Converged, ac.Iterations, ac.MaxDP, ac.MaxDQ)
	printBuses(net, ac.Bus)

	fmt.Println("\n=== Optimal power flow ===")
	for _, method := range []opf.Method{opf.EconomicDispatch, opf.DcOpf, opf.SocpRelaxation, opf.AcOpf} {
		sol, err := opf.Solve(net, method, opf.DefaultOptions())
		if err != nil {
			logger.Error().Err(err).Str("method", method.String()).Msg("OPF method failed")
			continue
		}
		fmt.Printf("%-16s converged=%v objective=$%.2f/hr iterations=%d\n", method, sol.Converged, sol.Objective, sol.Iterations)
	}

	fmt.Println("\n=== N-1 contingency sweep ===")
	scenarios := []contingency.Scenario{{ID: 0}}
	id := 1
	net.EachBranch(func(bid model.BranchID, br model.Branch) {
		if br.Status == model.Closed {
			scenarios = append(scenarios, contingency.Scenario{ID: id, Outages: []contingency.Outage{contingency.BranchOutage(bid)}})
			id++
		}
	})
	results, err := contingency.EnumerateNK(context.Background(), net, scenarios, contingency.ModeDC, contingency.EnumerateOptions{Log: &logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("contingency sweep")
	}
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		} else if r.Islanded {
			status = "islanded"
		} else if len(r.Violations) > 0 {
			status = fmt.Sprintf("%d violation(s)", len(r.Violations))
		}
		fmt.Printf("scenario %2d: %s\n", r.ScenarioID, status)
	}

	fmt.Println("\n=== Reliability sample ===")
	var elements []contingency.ElementFailure
	net.EachBranch(func(bid model.BranchID, br model.Branch) {
		elements = append(elements, contingency.ElementFailure{Branch: bid, HasBranch: true, LambdaPerYr: 0.5, MTTRHours: 10})
	})
	report, err := contingency.MonteCarloReliability(net, contingency.ReliabilityConfig{
		Elements:       elements,
		HorizonHours:   8760,
		Samples:        2000,
		Seed:           1,
		ShedCostPerMWh: 10000,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("reliability sample")
	}
	fmt.Printf("LOLE=%.4f h/yr  EUE=%.4f MWh/yr  samples=%d\n", report.LOLEHoursPerYear, report.EUEMWhPerYear, report.Samples)
}

func printBuses(net *model.Network, bus map[model.BusID]powerflow.BusResult) {
	names := make(map[model.BusID]string)
	net.EachBus(func(id model.BusID, b model.Bus) { names[id] = b.Name })

	ids := make([]model.BusID, 0, len(bus))
	for id := range bus {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		r := bus[id]
		fmt.Printf("  %-8s Vm=%.4f Va=%+.4frad\n", names[id], r.Vm, r.Va)
	}
}
