package powerflow

import (
	"math"

	"github.com/gatproject/gat/pkg/model"
	"github.com/gatproject/gat/pkg/ybus"
)

// denseYBus wraps ybus.DenseYBus with the power-injection formula
// Newton-Raphson needs at every iteration (spec §4.3).
type denseYBus struct {
	n int
	G [][]float64
	B [][]float64
}

func buildDenseYBus(net model.Grid) *denseYBus {
	g, b := ybus.DenseYBus(net)
	return &denseYBus{n: net.NumBuses(), G: g, B: b}
}

// injectedPQ returns P,Q (p.u., generation minus load) at bus i using
// the current Vm/Va state and the dense Y-bus, per the standard power
// injection formula P_i = Vm_i * sum_k Vm_k (G_ik cosθ_ik + B_ik sinθ_ik).
func (y *denseYBus) injectedPQ(i int, vm, va []float64) (p, q float64) {
	for k := 0; k < y.n; k++ {
		theta := va[i] - va[k]
		cosT, sinT := math.Cos(theta), math.Sin(theta)
		p += vm[i] * vm[k] * (y.G[i][k]*cosT + y.B[i][k]*sinT)
		q += vm[i] * vm[k] * (y.G[i][k]*sinT - y.B[i][k]*cosT)
	}
	return p, q
}
