// Package gaterrors centralizes the discriminated error kinds used across
// the GAT numerical core (spec §7). Every engine returns errors built here
// instead of ad hoc strings, so callers can recover structured context with
// errors.As.
package gaterrors

import "fmt"

// Kind discriminates the class of failure. Numerical and optimization
// kinds are typically returned as part of a result value rather than
// propagated, per the propagation policy in spec §7; transport and
// validation kinds always propagate.
type Kind int

const (
	// Validation
	KindInvariantViolated Kind = iota

	// Numerical
	KindSingular
	KindNumericalBreakdown
	KindIllConditioned
	KindDidNotConverge

	// Optimization
	KindInfeasible
	KindUnbounded
	KindIterationLimit
	KindTimeLimit
	KindSuboptimal
	KindNotImplemented

	// Topology
	KindIslanded

	// Solver transport
	KindSolverNotFound
	KindSolverSpawnFailed
	KindSolverCrashed
	KindProtocolError
	KindProtocolVersionMismatch

	// Cancellation
	KindCancelled
	KindDeadline
)

func (k Kind) String() string {
	switch k {
	case KindInvariantViolated:
		return "InvariantViolated"
	case KindSingular:
		return "Singular"
	case KindNumericalBreakdown:
		return "NumericalBreakdown"
	case KindIllConditioned:
		return "IllConditioned"
	case KindDidNotConverge:
		return "DidNotConverge"
	case KindInfeasible:
		return "Infeasible"
	case KindUnbounded:
		return "Unbounded"
	case KindIterationLimit:
		return "IterationLimit"
	case KindTimeLimit:
		return "TimeLimit"
	case KindSuboptimal:
		return "Suboptimal"
	case KindNotImplemented:
		return "NotImplemented"
	case KindIslanded:
		return "Islanded"
	case KindSolverNotFound:
		return "SolverNotFound"
	case KindSolverSpawnFailed:
		return "SolverSpawnFailed"
	case KindSolverCrashed:
		return "SolverCrashed"
	case KindProtocolError:
		return "ProtocolError"
	case KindProtocolVersionMismatch:
		return "ProtocolVersionMismatch"
	case KindCancelled:
		return "Cancelled"
	case KindDeadline:
		return "Deadline"
	default:
		return "Unknown"
	}
}

// Error is the common error value every GAT package returns. Context
// carries kind-specific detail (entity name, mismatch, exit status, ...)
// for callers that want more than the message.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, gaterrors.Kind) style checks work by comparing
// kinds: it reports true for any *Error target of the same Kind,
// whatever its message or cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New constructs an *Error of the given kind with an optional context map.
func New(kind Kind, message string, ctx map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Context: ctx}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error, ctx map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Context: ctx, Cause: cause}
}

// Sentinel returns a comparable *Error usable with errors.Is as a bare
// kind marker, e.g. errors.Is(err, gaterrors.Sentinel(gaterrors.KindSingular)).
func Sentinel(kind Kind) *Error { return &Error{Kind: kind} }

// DidNotConverge carries the iteration count and final mismatch expected
// by spec §7's DidNotConverge{max_mismatch, iterations}.
func DidNotConverge(maxMismatch float64, iterations int) *Error {
	return New(KindDidNotConverge, "failed to converge", map[string]any{
		"max_mismatch": maxMismatch,
		"iterations":   iterations,
	})
}

// Islanded carries the island id and whether it lacks a reference bus,
// per spec §7's Islanded{island_id, missing_reference?}.
func Islanded(islandID int, missingReference bool) *Error {
	return New(KindIslanded, "network island detected", map[string]any{
		"island_id":         islandID,
		"missing_reference": missingReference,
	})
}

// SolverCrashed carries the child process exit status per spec §7.
func SolverCrashed(exitStatus int) *Error {
	return New(KindSolverCrashed, "solver child process crashed", map[string]any{
		"exit_status": exitStatus,
	})
}

// ProtocolError carries the byte offset of the offending frame per spec §4.6/§7.
func ProtocolError(frameOffset int64, reason string) *Error {
	return New(KindProtocolError, reason, map[string]any{
		"frame_offset": frameOffset,
	})
}

// Suboptimal carries the optimality gap per spec §7's Suboptimal{gap}.
func Suboptimal(gap float64) *Error {
	return New(KindSuboptimal, "solution suboptimal", map[string]any{"gap": gap})
}
