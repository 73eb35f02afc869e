package solverx

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatproject/gat/pkg/gaterrors"
)

// TestNativeBackendSurfacesSolverCrashed is the first half of spec
// §8's E6: a child that exits 139 must be reported as
// SolverCrashed{139}. "sh -c 'exit 139'" exits before doing any actual
// solving, which is enough to exercise the crash-detection and
// exit-status-mapping path without requiring a real external IPM
// binary in the test environment.
func TestNativeBackendSurfacesSolverCrashed(t *testing.T) {
	backend := &NativeBackend{Command: "sh", Args: []string{"-c", "exit 139"}}
	_, err := backend.Solve(context.Background(), ProblemBatch{NumVars: 1, Objective: []float64{1}, VarLower: []float64{0}, VarUpper: []float64{1}})
	require.Error(t, err)
	gerr, ok := err.(*gaterrors.Error)
	require.True(t, ok)
	require.Equal(t, gaterrors.KindSolverCrashed, gerr.Kind)
	require.Equal(t, 139, gerr.Context["exit_status"])
}

// newFakeChild is an in-process stand-in for an external solver
// process: a pair of pipes plus a goroutine playing the "child" role,
// used to exercise NativeBackend's retry-after-crash logic
// deterministically (spec §8 E6's second half: "a subsequent solve on
// a freshly spawned child succeeds") without shipping a real native
// IPM solver binary.
func newFakeChild(t *testing.T, crash bool, response SolutionBatch) *child {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	go func() {
		_, err := readFrame(reqR)
		if err != nil {
			return
		}
		if crash {
			_ = respW.CloseWithError(io.ErrClosedPipe)
			return
		}
		payload, err := encodeSolution(response)
		if err != nil {
			_ = respW.CloseWithError(err)
			return
		}
		if err := writeFrame(respW, payload); err != nil {
			return
		}
		_ = respW.Close()
	}()

	return &child{
		stdin:  reqW,
		stdout: respR,
		wait:   func() error { return nil },
		kill:   func() error { return nil },
	}
}

func TestNativeBackendRetriesOnFreshChildAfterCrash(t *testing.T) {
	calls := 0
	want := SolutionBatch{Status: StatusOptimal, Objective: 7, Primal: []float64{1, 2}}

	backend := &NativeBackend{
		MaxRetries: 1,
	}
	backend.spawn = func(ctx context.Context) (*child, error) {
		calls++
		crash := calls == 1
		return newFakeChild(t, crash, want), nil
	}

	sol, err := backend.Solve(context.Background(), ProblemBatch{NumVars: 2, Objective: []float64{1, 1}, VarLower: []float64{0, 0}, VarUpper: []float64{1, 1}})
	require.NoError(t, err)
	require.Equal(t, want, sol)
	require.Equal(t, 2, calls, "first child crashes, second is freshly spawned and succeeds")
}

func TestNativeBackendGivesUpAfterExhaustingRetries(t *testing.T) {
	backend := &NativeBackend{MaxRetries: 2}
	backend.spawn = func(ctx context.Context) (*child, error) {
		return newFakeChild(t, true, SolutionBatch{}), nil
	}
	_, err := backend.Solve(context.Background(), ProblemBatch{NumVars: 1, Objective: []float64{1}, VarLower: []float64{0}, VarUpper: []float64{1}})
	require.Error(t, err)
	gerr, ok := err.(*gaterrors.Error)
	require.True(t, ok)
	require.Equal(t, gaterrors.KindSolverCrashed, gerr.Kind)
}
