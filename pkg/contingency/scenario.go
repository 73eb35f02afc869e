package contingency

import "github.com/gatproject/gat/pkg/model"

// Outage names one element forced out of service by a scenario.
type Outage struct {
	Branch   model.BranchID
	HasGen   bool
	Gen      model.GenID
	IsBranch bool
}

// BranchOutage returns an Outage masking branch id.
func BranchOutage(id model.BranchID) Outage { return Outage{IsBranch: true, Branch: id} }

// GeneratorOutage returns an Outage masking generator id.
func GeneratorOutage(id model.GenID) Outage { return Outage{HasGen: true, Gen: id} }

// Scenario is one N-k case: a unique id plus the set of elements out of
// service together (spec §4.5 "outage list (branches and/or
// generators)").
type Scenario struct {
	ID      int
	Outages []Outage
}

// Mode selects which engine a scenario is run through.
type Mode int

const (
	// ModeDC runs each scenario (and each of its islands) through DC
	// power flow.
	ModeDC Mode = iota
	// ModeAC runs each scenario through AC power flow; islands without
	// a slack are reported Islanded rather than solved.
	ModeAC
)

// Result is the per-scenario record: convergence, islanding with the
// load left unserved, branch-limit violations, and any error. It carries
// no dispatch cost.
type Result struct {
	ScenarioID   int
	Converged    bool
	Islanded     bool
	UnservedLoad float64 // MW, nonzero only when Islanded
	Violations   []Violation
	Err          error
}

// Violation names one branch whose loading exceeds its rating in a
// scenario's post-contingency flow.
type Violation struct {
	Branch   model.BranchID
	LoadingP float64 // MW
	RateA    float64 // MVA
}

// applyOutages returns a model.View of net with every element named by
// outages masked out (spec §4.5's per-scenario view construction).
func applyOutages(net *model.Network, outages []Outage) *model.View {
	v := model.NewView(net)
	for _, o := range outages {
		if o.IsBranch {
			v = v.WithBranchOut(o.Branch)
		}
		if o.HasGen {
			v = v.WithGeneratorOut(o.Gen)
		}
	}
	return v
}

func checkViolations(net model.Grid, branchP map[model.BranchID]float64) []Violation {
	var out []Violation
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		if br.Status != model.Closed || br.RateA <= 0 {
			return
		}
		p := branchP[id]
		if p < 0 {
			p = -p
		}
		if p > br.RateA {
			out = append(out, Violation{Branch: id, LoadingP: p, RateA: br.RateA})
		}
	})
	return out
}
