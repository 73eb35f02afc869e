package contingency

import (
	"context"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/powerflow"
)

// EnumerateOptions configures EnumerateNK (spec §4.5 "Parallelism").
type EnumerateOptions struct {
	// Threads bounds worker concurrency; 0 means runtime.NumCPU().
	Threads int
	// QueueMultiple sizes the semaphore's back-pressure window as a
	// multiple of Threads, per §5's "bounded by a multiple of the
	// worker count" back-pressure rule. 0 defaults to 4.
	QueueMultiple int
	// Log receives one Debug event per completed scenario and a Warn
	// event per scenario error; nil disables logging.
	Log *zerolog.Logger
}

func (o EnumerateOptions) logger() zerolog.Logger {
	if o.Log != nil {
		return *o.Log
	}
	return zerolog.Nop()
}

// EnumerateNK runs every scenario against net, fanning out over a
// worker pool bounded by opts.Threads (spec §4.5 "Parallelism": "a
// scenario's failure does not affect others"). Results are returned
// sorted by ScenarioID (spec §5 "results are keyed by scenario id and
// sorted at emit time") regardless of completion order.
func EnumerateNK(ctx context.Context, net *model.Network, scenarios []Scenario, mode Mode, opts EnumerateOptions) ([]Result, error) {
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	queueMultiple := opts.QueueMultiple
	if queueMultiple <= 0 {
		queueMultiple = 4
	}

	sem := semaphore.NewWeighted(int64(threads * queueMultiple))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(threads)
	log := opts.logger()

	results := make([]Result, len(scenarios))
	for i, sc := range scenarios {
		i, sc := i, sc
		if err := sem.Acquire(gctx, 1); err != nil {
			// Context was cancelled while waiting for a queue slot; mark
			// every not-yet-dispatched scenario cancelled and stop
			// fanning out more work. Already-dispatched goroutines still
			// report their own results (spec §5 "partial results already
			// computed are reported").
			for k := i; k < len(scenarios); k++ {
				results[k] = Result{ScenarioID: scenarios[k].ID, Err: gctx.Err()}
			}
			break
		}
		group.Go(func() error {
			defer sem.Release(1)
			select {
			case <-gctx.Done():
				results[i] = Result{ScenarioID: sc.ID, Err: gctx.Err()}
				return nil
			default:
			}
			switch mode {
			case ModeDC:
				results[i] = solveScenarioDC(net, sc)
			default:
				results[i] = solveScenarioAC(net, sc)
			}
			if err := results[i].Err; err != nil {
				log.Warn().Int("scenario_id", sc.ID).Err(err).Msg("contingency scenario failed")
			} else {
				log.Debug().Int("scenario_id", sc.ID).Bool("converged", results[i].Converged).Msg("contingency scenario solved")
			}
			return nil
		})
	}
	_ = group.Wait() // per-scenario errors are captured in Result.Err, never propagated

	sort.Slice(results, func(i, j int) bool { return results[i].ScenarioID < results[j].ScenarioID })
	return results, nil
}

func solveScenarioDC(net *model.Network, sc Scenario) Result {
	view := applyOutages(net, sc.Outages)
	islands := islandsOf(view)

	if len(islands) <= 1 {
		res, err := powerflow.SolveDC(view)
		if err != nil {
			return Result{ScenarioID: sc.ID, Err: err}
		}
		return Result{
			ScenarioID: sc.ID,
			Converged:  true,
			Violations: checkViolations(view, flattenDC(res)),
		}
	}

	branchP := map[model.BranchID]float64{}
	for _, island := range islands {
		sub, _, branchToOrig, _, err := islandSubnetwork(view, island)
		if err != nil {
			return Result{ScenarioID: sc.ID, Err: err}
		}
		res, err := powerflow.SolveDC(sub)
		if err != nil {
			return Result{ScenarioID: sc.ID, Err: err}
		}
		for id, br := range res.Branch {
			branchP[branchToOrig[id]] = br.P
		}
	}
	return Result{
		ScenarioID: sc.ID,
		Converged:  true,
		Violations: checkViolations(view, branchP),
	}
}

func solveScenarioAC(net *model.Network, sc Scenario) Result {
	view := applyOutages(net, sc.Outages)
	islands := islandsOf(view)

	if len(islands) > 1 {
		var unserved float64
		for _, island := range islands {
			if !hasSlack(view, island) {
				unserved += unservedLoad(view, island)
			}
		}
		if unserved > 0 {
			return Result{ScenarioID: sc.ID, Islanded: true, UnservedLoad: unserved}
		}
	}

	res, err := powerflow.SolveAC(view)
	if err != nil {
		return Result{ScenarioID: sc.ID, Err: err}
	}
	branchP := make(map[model.BranchID]float64, len(res.Branch))
	for id, br := range res.Branch {
		branchP[id] = br.P
	}
	return Result{
		ScenarioID: sc.ID,
		Converged:  res.Converged,
		Violations: checkViolations(view, branchP),
	}
}

func flattenDC(res powerflow.DCResult) map[model.BranchID]float64 {
	out := make(map[model.BranchID]float64, len(res.Branch))
	for id, br := range res.Branch {
		out[id] = br.P
	}
	return out
}
