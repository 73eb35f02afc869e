package sparsekit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestComplexSolveDiagonalSystem solves the decoupled complex system
// (2+1j)x1 = (4+2j), (2+1j)x2 = (6+3j), whose solution is x1=2, x2=3
// regardless of backend, and checks GetComplexSolution reads back the
// real and imaginary parts it was handed by Solve — the path the AC
// Y-bus Gauss-Seidel warm start in pkg/powerflow exercises every run.
func TestComplexSolveDiagonalSystem(t *testing.T) {
	for _, backend := range []Backend{DenseBackend, SparseBackend} {
		m := NewMatrix(2, true, backend)
		m.AddComplexElement(1, 1, 2, 1)
		m.AddComplexElement(2, 2, 2, 1)
		m.AddComplexRHS(1, 4, 2)
		m.AddComplexRHS(2, 6, 3)

		require.NoError(t, m.Solve())

		re1, im1 := m.GetComplexSolution(1)
		require.InDelta(t, 2, re1, 1e-9)
		require.InDelta(t, 0, im1, 1e-9)

		re2, im2 := m.GetComplexSolution(2)
		require.InDelta(t, 3, re2, 1e-9)
		require.InDelta(t, 0, im2, 1e-9)
	}
}

// TestComplexSolveCoupledSystem cross-checks a coupled 2x2 complex
// system, where a solve must actually combine both rows rather than
// just dividing a diagonal, against A*x for a chosen x=[1, 2] computed
// by hand.
func TestComplexSolveCoupledSystem(t *testing.T) {
	// A = [[3+1j, 1], [1, 2+1j]], x = [1, 2] => b = [5+1j, 5+2j].
	for _, backend := range []Backend{DenseBackend, SparseBackend} {
		m := NewMatrix(2, true, backend)
		m.AddComplexElement(1, 1, 3, 1)
		m.AddComplexElement(1, 2, 1, 0)
		m.AddComplexElement(2, 1, 1, 0)
		m.AddComplexElement(2, 2, 2, 1)
		m.AddComplexRHS(1, 5, 1)
		m.AddComplexRHS(2, 5, 2)

		require.NoError(t, m.Solve())

		re1, im1 := m.GetComplexSolution(1)
		require.InDelta(t, 1, re1, 1e-9)
		require.InDelta(t, 0, im1, 1e-9)

		re2, im2 := m.GetComplexSolution(2)
		require.InDelta(t, 2, re2, 1e-9)
		require.InDelta(t, 0, im2, 1e-9)
	}
}

// TestRealSolveTwoByTwo exercises the non-complex path on both
// backends, matching the linear system pkg/powerflow's DC solve drives
// through the same Matrix interface.
func TestRealSolveTwoByTwo(t *testing.T) {
	for _, backend := range []Backend{DenseBackend, SparseBackend} {
		m := NewMatrix(2, false, backend)
		m.AddElement(1, 1, 10)
		m.AddElement(2, 2, 20)
		m.AddRHS(1, -1)
		m.AddRHS(2, -1)

		require.NoError(t, m.Solve())
		sol := m.Solution()
		require.InDelta(t, -0.1, sol[1], 1e-9)
		require.InDelta(t, -0.05, sol[2], 1e-9)
	}
}
