package solverx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatproject/gat/pkg/gaterrors"
)

type stubBackend struct{ name string }

func (s stubBackend) Solve(ctx context.Context, problem ProblemBatch) (SolutionBatch, error) {
	return SolutionBatch{Status: StatusOptimal}, nil
}

func TestDispatcherSelectsFirstMatchInPreferenceOrder(t *testing.T) {
	d := NewDispatcher()
	d.Register(LinearProgram, BackendPure, stubBackend{"pure"})
	d.Register(LinearProgram, BackendNative, stubBackend{"native"})

	b, err := d.Select(LinearProgram, []BackendKind{BackendNative, BackendPure})
	require.NoError(t, err)
	require.Equal(t, "native", b.(stubBackend).name)

	b, err = d.Select(LinearProgram, []BackendKind{BackendPure, BackendNative})
	require.NoError(t, err)
	require.Equal(t, "pure", b.(stubBackend).name)
}

func TestDispatcherSelectFallsBackWhenPreferredMissing(t *testing.T) {
	d := NewDispatcher()
	d.Register(LinearProgram, BackendPure, stubBackend{"pure"})

	b, err := d.Select(LinearProgram, []BackendKind{BackendNative, BackendPure})
	require.NoError(t, err)
	require.Equal(t, "pure", b.(stubBackend).name)
}

func TestDispatcherSelectReturnsSolverNotFound(t *testing.T) {
	d := NewDispatcher()
	_, err := d.Select(ConicProgram, []BackendKind{BackendPure, BackendNative})
	require.Error(t, err)
	gerr, ok := err.(*gaterrors.Error)
	require.True(t, ok)
	require.Equal(t, gaterrors.KindSolverNotFound, gerr.Kind)
}
