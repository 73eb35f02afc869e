// Package opf implements the four Optimal Power Flow methods of spec
// §4.4 behind one dispatch point, mirroring the teacher's Analysis
// interface (Setup/Execute/GetResults) generalized to a single
// value-returning Solve call per spec §9's "polymorphism over methods"
// design note: a tagged Method variant instead of per-method types
// satisfying a shared interface, since the four methods share almost
// nothing beyond input/output shape.
package opf

import "github.com/gatproject/gat/pkg/model"

// Method selects the OPF formulation (spec §4.4).
type Method int

const (
	EconomicDispatch Method = iota
	DcOpf
	SocpRelaxation
	AcOpf
)

func (m Method) String() string {
	switch m {
	case EconomicDispatch:
		return "EconomicDispatch"
	case DcOpf:
		return "DcOpf"
	case SocpRelaxation:
		return "SocpRelaxation"
	case AcOpf:
		return "AcOpf"
	default:
		return "Unknown"
	}
}

// Options configures any of the four methods; fields unused by a given
// method are ignored.
type Options struct {
	Tolerance       float64
	MaxIterations   int
	SocpTightnessTol float64
	// PenaltyGrowth is the outer-loop multiplier applied to the AC-OPF
	// penalty weight μ between inner quasi-Newton solves.
	PenaltyGrowth float64
	// WarmStart seeds AcOpf from a prior Solution (e.g. a DcOpf or
	// SocpRelaxation dispatch); nil means start flat (V=1, θ=0), per
	// spec §4.4.4.
	WarmStart *Solution
}

// DefaultOptions returns spec §9-consistent defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance:        1e-6,
		MaxIterations:    200,
		SocpTightnessTol: 1e-4,
		PenaltyGrowth:    10,
	}
}

// Solution is the common record every method returns (spec §4.4);
// methods that do not compute a field leave it at its zero value,
// documented per method below.
type Solution struct {
	Converged          bool
	Method             Method
	Iterations         int
	Objective          float64 // $/hr
	GenP               map[model.GenID]float64
	GenQ               map[model.GenID]float64 // empty for EconomicDispatch, DcOpf
	BusVm              map[model.BusID]float64 // empty for EconomicDispatch, DcOpf
	BusVa              map[model.BusID]float64 // empty for EconomicDispatch, SocpRelaxation
	BranchP            map[model.BranchID]float64
	BranchQ            map[model.BranchID]float64 // empty for EconomicDispatch, DcOpf
	LMP                map[model.BusID]float64
	BindingConstraints []string
	Losses             float64 // MW; not set by any method, always 0
	Tight              bool    // SocpRelaxation only
}

// Solve dispatches on Method (spec §4.4).
func Solve(net model.Grid, method Method, opts Options) (Solution, error) {
	switch method {
	case EconomicDispatch:
		return solveEconomicDispatch(net, opts)
	case DcOpf:
		return solveDcOpf(net, opts)
	case SocpRelaxation:
		return solveSocpRelaxation(net, opts)
	case AcOpf:
		return solveAcOpf(net, opts)
	default:
		return Solution{}, notImplemented(method)
	}
}
