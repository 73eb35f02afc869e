package powerflow

import (
	"math"

	"github.com/gatproject/gat/internal/consts"
	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/sparsekit"
	"github.com/gatproject/gat/pkg/ybus"
)

// acYBusWarmStart runs a handful of Gauss-Seidel Y-bus sweeps against
// the complex admittance matrix assembled by ybus.AssembleAC, the same
// stamp/factor/solve/read-back cycle the teacher's analysis/ac.go runs
// once per frequency point, run here once per sweep against successive
// current-injection estimates instead. It mutates vm/va in place with a
// voltage profile closer to the power-flow solution than flat start, so
// the Newton-Raphson loop that follows needs fewer iterations to reach
// tolerance. PV buses are held at their scheduled |V| and only
// contribute an updated angle; Q-limit enforcement is left entirely to
// the Newton loop that follows, so a clamp here is only ever a rough
// estimate of the injected current, never authoritative.
func acYBusWarmStart(net model.Grid, vm, va []float64, busType []model.BusType, pSpec, qSpec, qmin, qmax []float64, hasQLimit []bool, slackIdx, sweeps int, y *denseYBus) {
	n := net.NumBuses()
	if sweeps <= 0 || n == 0 {
		return
	}

	slackRow := ybus.Row(model.BusID(slackIdx))
	vSlackRe := vm[slackIdx] * math.Cos(va[slackIdx])
	vSlackIm := vm[slackIdx] * math.Sin(va[slackIdx])

	ybusMat := sparsekit.NewMatrix(n, true, sparsekit.AutoBackend)

	for sweep := 0; sweep < sweeps; sweep++ {
		ybusMat.Clear()
		ybus.AssembleAC(net, ybusMat)

		// The slack row can only ever be added to, never overwritten, so
		// the reference voltage is pinned by dominating its diagonal
		// rather than replacing the row (consts.SlackVoltagePinWeight is
		// large enough relative to per-unit admittances that every other
		// term in the row becomes negligible by comparison).
		ybusMat.AddComplexElement(slackRow, slackRow, consts.SlackVoltagePinWeight, 0)
		ybusMat.AddComplexRHS(slackRow, consts.SlackVoltagePinWeight*vSlackRe, consts.SlackVoltagePinWeight*vSlackIm)

		for i := 0; i < n; i++ {
			if i == slackIdx {
				continue
			}
			vr := vm[i] * math.Cos(va[i])
			vi := vm[i] * math.Sin(va[i])
			vmag2 := vr*vr + vi*vi
			if vmag2 < 1e-12 {
				continue
			}

			q := qSpec[i]
			if busType[i] != model.PQ {
				_, qEst := y.injectedPQ(i, vm, va)
				if hasQLimit[i] {
					qEst = math.Min(math.Max(qEst, qmin[i]), qmax[i])
				}
				q = qEst
			}
			p := pSpec[i]

			// I_i = conj(S_i)/conj(V_i) = conj(S_i)*V_i/|V_i|^2, the
			// standard Y-bus Gauss-Seidel current-injection estimate.
			row := ybus.Row(model.BusID(i))
			ybusMat.AddComplexRHS(row, (p*vr+q*vi)/vmag2, (p*vi-q*vr)/vmag2)
		}

		if err := ybusMat.Solve(); err != nil {
			// The warm start is best-effort: Newton-Raphson still runs
			// from whatever vm/va this sweep last produced.
			return
		}

		for i := 0; i < n; i++ {
			if i == slackIdx {
				continue
			}
			re, im := ybusMat.GetComplexSolution(ybus.Row(model.BusID(i)))
			mag := math.Hypot(re, im)
			if mag < 1e-9 {
				continue
			}
			if busType[i] != model.PV {
				vm[i] = mag
			}
			va[i] = math.Atan2(im, re)
		}
	}
}
