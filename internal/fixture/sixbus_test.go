package fixture

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatproject/gat/pkg/opf"
	"github.com/gatproject/gat/pkg/powerflow"
)

func TestSixBusBuildsAndSolvesDC(t *testing.T) {
	net, err := SixBus()
	require.NoError(t, err)
	require.Equal(t, 6, net.NumBuses())

	res, err := powerflow.SolveDC(net)
	require.NoError(t, err)
	require.Len(t, res.Bus, 6)
}

func TestSixBusSolvesAC(t *testing.T) {
	net, err := SixBus()
	require.NoError(t, err)

	res, err := powerflow.SolveAC(net)
	require.NoError(t, err)
	require.True(t, res.Converged)
}

func TestSixBusSolvesEveryOpfMethod(t *testing.T) {
	net, err := SixBus()
	require.NoError(t, err)

	for _, method := range []opf.Method{opf.EconomicDispatch, opf.DcOpf, opf.SocpRelaxation, opf.AcOpf} {
		sol, err := opf.Solve(net, method, opf.DefaultOptions())
		require.NoError(t, err, method)
		require.True(t, sol.Converged, method)
		require.Greater(t, sol.Objective, 0.0, method)
	}
}
