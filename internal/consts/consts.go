// Package consts holds the small set of physical and numerical constants
// shared across the solver packages.
package consts

const (
	// DefaultBaseMVA is the system power base used to normalize per-unit
	// quantities when a Network does not specify one explicitly.
	DefaultBaseMVA = 100.0

	// BranchImpedanceEpsilon substitutes for an exactly-zero branch
	// reactance (tie transformers) so that 1/x never divides by zero.
	BranchImpedanceEpsilon = 1e-6

	// DefaultACTolerance is the default max|mismatch| convergence
	// tolerance for Newton-Raphson AC power flow, in per-unit.
	DefaultACTolerance = 1e-6

	// DefaultMaxIterations bounds Newton-Raphson style iterative solves.
	DefaultMaxIterations = 20

	// DefaultMaxTypeSwitches bounds how many times a single bus may
	// change between PV and PQ within one AC power-flow solve, breaking
	// switching oscillation (spec §4.3 / §9 open question).
	DefaultMaxTypeSwitches = 3

	// DefaultSocpTightnessTol is the default slack tolerance for
	// declaring an SOCP relaxation "tight" (spec §4.4.3 / §9 open
	// question).
	DefaultSocpTightnessTol = 1e-4

	// DenseFallbackMaxUnknowns is the largest system size for which the
	// dense Gauss fallback backend is preferred over the sparse direct
	// backend (spec §4.1).
	DenseFallbackMaxUnknowns = 200

	// DefaultACWarmStartSweeps is the number of Gauss-Seidel Y-bus
	// sweeps SolveAC runs against the complex admittance matrix before
	// handing its voltage estimate to Newton-Raphson (spec §4.3).
	DefaultACWarmStartSweeps = 3

	// SlackVoltagePinWeight is the diagonal admittance added at the
	// slack row of the Gauss-Seidel warm-start matrix to pin its
	// voltage without needing to overwrite a row the sparse Matrix
	// interface can only ever add to.
	SlackVoltagePinWeight = 1e8

	// RoomTemperatureKelvin is a reference ambient temperature; no
	// package in this module reads it.
	RoomTemperatureKelvin = 300.15
)
