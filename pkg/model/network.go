package model

import (
	"fmt"
	"math"

	"github.com/gatproject/gat/pkg/gaterrors"
)

// Network owns all entity arrays and the adjacency derived from them
// (spec §3). It is built once by NewNetwork and is immutable from every
// engine's perspective afterward; concurrent readers are safe. This
// mirrors the teacher's Circuit, which builds its nodeMap/branchMap and
// *matrix.CircuitMatrix once in AssignNodeBranchMaps/CreateMatrix and
// never mutates device identity afterward.
type Network struct {
	Name    string
	baseMVA float64

	buses  []Bus
	branch []Branch
	gens   []Generator
	loads  []Load
	shunts []Shunt

	// adjacency: branch ids incident to each bus, built once at
	// construction (spec §3 "precomputed adjacency").
	busBranches [][]BranchID
	busGens     [][]GenID
	busLoads    [][]LoadID
	busShunts   [][]ShuntID

	nameToBus map[string]BusID
}

// NewNetwork validates and constructs a Network from entity tables.
// Bus ids are assigned by position in buses; Branch/Generator/Load/Shunt
// entities reference buses by BusID, which callers obtain from a
// pre-pass over bus names (see Builder in builder.go) or by index if
// they already have one.
func NewNetwork(name string, baseMVA float64, buses []Bus, branches []Branch, gens []Generator, loads []Load, shunts []Shunt) (*Network, error) {
	if baseMVA == 0 {
		baseMVA = 100
	}

	n := &Network{
		Name:      name,
		baseMVA:   baseMVA,
		buses:     append([]Bus(nil), buses...),
		branch:    append([]Branch(nil), branches...),
		gens:      append([]Generator(nil), gens...),
		loads:     append([]Load(nil), loads...),
		shunts:    append([]Shunt(nil), shunts...),
		nameToBus: make(map[string]BusID, len(buses)),
	}

	for i, b := range n.buses {
		if _, exists := n.nameToBus[b.Name]; exists {
			return nil, gaterrors.New(gaterrors.KindInvariantViolated, "duplicate bus name", map[string]any{"bus": b.Name})
		}
		n.nameToBus[b.Name] = BusID(i)
	}

	if err := n.validate(); err != nil {
		return nil, err
	}

	n.buildAdjacency()
	return n, nil
}

func (n *Network) validate() error {
	slackPerIsland := 0
	for i, b := range n.buses {
		if b.Vmin > b.Vmax {
			return gaterrors.New(gaterrors.KindInvariantViolated, "vmin > vmax", map[string]any{"bus": b.Name})
		}
		if b.Vmin <= 0 {
			return gaterrors.New(gaterrors.KindInvariantViolated, "vmin must be > 0", map[string]any{"bus": b.Name})
		}
		if b.Type == Slack {
			slackPerIsland++
		}
		_ = i
	}
	// A full island decomposition is performed by engines that need it
	// (contingency topology checks); at construction time we only
	// reject the degenerate "no slack at all" case for a single-island
	// network, matching spec §3's "exactly one Slack bus per connected
	// island" when the network has not yet been split by an outage.
	if len(n.buses) > 0 && slackPerIsland == 0 {
		return gaterrors.New(gaterrors.KindInvariantViolated, "no Slack bus defined", nil)
	}

	for i, br := range n.branch {
		if int(br.From) < 0 || int(br.From) >= len(n.buses) || int(br.To) < 0 || int(br.To) >= len(n.buses) {
			return gaterrors.New(gaterrors.KindInvariantViolated, "branch endpoint does not exist", map[string]any{"branch": br.Name})
		}
		if br.From == br.To {
			return gaterrors.New(gaterrors.KindInvariantViolated, "branch from == to", map[string]any{"branch": br.Name})
		}
		if math.Abs(br.R)+math.Abs(br.X) <= 1e-6 && br.X == 0 {
			// epsilon substitution happens in pkg/ybus's admittance
			// assembly, not here; construction only rejects branches
			// where BOTH r and x are exactly zero (truly degenerate).
			if br.R == 0 && br.X == 0 {
				return gaterrors.New(gaterrors.KindInvariantViolated, "branch has zero impedance", map[string]any{"branch": br.Name})
			}
		}
		if br.TapRatio == 0 {
			n.branch[i].TapRatio = 1
		}
	}

	for _, g := range n.gens {
		if g.Pmin > g.Pmax {
			return gaterrors.New(gaterrors.KindInvariantViolated, "pmin > pmax", map[string]any{"gen": g.Name})
		}
		if g.Qmin > g.Qmax {
			return gaterrors.New(gaterrors.KindInvariantViolated, "qmin > qmax", map[string]any{"gen": g.Name})
		}
		if int(g.Bus) < 0 || int(g.Bus) >= len(n.buses) {
			return gaterrors.New(gaterrors.KindInvariantViolated, "generator bus does not exist", map[string]any{"gen": g.Name})
		}
		if !costFiniteOnRange(g.Cost, g.Pmin, g.Pmax) {
			return gaterrors.New(gaterrors.KindInvariantViolated, "generator cost not finite on [pmin,pmax]", map[string]any{"gen": g.Name})
		}
	}

	for _, l := range n.loads {
		if int(l.Bus) < 0 || int(l.Bus) >= len(n.buses) {
			return gaterrors.New(gaterrors.KindInvariantViolated, "load bus does not exist", map[string]any{"load": l.Name})
		}
	}
	for _, s := range n.shunts {
		if int(s.Bus) < 0 || int(s.Bus) >= len(n.buses) {
			return gaterrors.New(gaterrors.KindInvariantViolated, "shunt bus does not exist", map[string]any{"shunt": s.Name})
		}
	}

	return nil
}

func costFiniteOnRange(c CostModel, pmin, pmax float64) bool {
	for _, p := range []float64{pmin, pmax, (pmin + pmax) / 2} {
		v := c.Eval(p)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (n *Network) buildAdjacency() {
	n.busBranches = make([][]BranchID, len(n.buses))
	n.busGens = make([][]GenID, len(n.buses))
	n.busLoads = make([][]LoadID, len(n.buses))
	n.busShunts = make([][]ShuntID, len(n.buses))

	for i, br := range n.branch {
		n.busBranches[br.From] = append(n.busBranches[br.From], BranchID(i))
		n.busBranches[br.To] = append(n.busBranches[br.To], BranchID(i))
	}
	for i, g := range n.gens {
		n.busGens[g.Bus] = append(n.busGens[g.Bus], GenID(i))
	}
	for i, l := range n.loads {
		n.busLoads[l.Bus] = append(n.busLoads[l.Bus], LoadID(i))
	}
	for i, s := range n.shunts {
		n.busShunts[s.Bus] = append(n.busShunts[s.Bus], ShuntID(i))
	}
}

// BaseMVA returns the system power base used to normalize per-unit
// quantities (spec §3 "Units").
func (n *Network) BaseMVA() float64 { return n.baseMVA }

// NumBuses, NumBranches, etc. give the O(1) extent of each id space.
func (n *Network) NumBuses() int      { return len(n.buses) }
func (n *Network) NumBranches() int   { return len(n.branch) }
func (n *Network) NumGenerators() int { return len(n.gens) }
func (n *Network) NumLoads() int      { return len(n.loads) }
func (n *Network) NumShunts() int     { return len(n.shunts) }

// Bus, Branch, Generator, Load and Shunt give O(1) id->value lookup.
func (n *Network) Bus(id BusID) Bus             { return n.buses[id] }
func (n *Network) Branch(id BranchID) Branch    { return n.branch[id] }
func (n *Network) Generator(id GenID) Generator { return n.gens[id] }
func (n *Network) Load(id LoadID) Load          { return n.loads[id] }
func (n *Network) Shunt(id ShuntID) Shunt       { return n.shunts[id] }

// BusByName looks up a bus id by name in O(1).
func (n *Network) BusByName(name string) (BusID, bool) {
	id, ok := n.nameToBus[name]
	return id, ok
}

// BranchesAt returns the branch ids incident to bus id.
func (n *Network) BranchesAt(id BusID) []BranchID { return n.busBranches[id] }

// GeneratorsAt, LoadsAt and ShuntsAt return the entity ids attached to bus id.
func (n *Network) GeneratorsAt(id BusID) []GenID  { return n.busGens[id] }
func (n *Network) LoadsAt(id BusID) []LoadID      { return n.busLoads[id] }
func (n *Network) ShuntsAt(id BusID) []ShuntID    { return n.busShunts[id] }

// EachBus, EachBranch, EachGenerator, EachLoad and EachShunt are the
// iterators named in spec §3.
func (n *Network) EachBus(fn func(BusID, Bus)) {
	for i, b := range n.buses {
		fn(BusID(i), b)
	}
}
func (n *Network) EachBranch(fn func(BranchID, Branch)) {
	for i, b := range n.branch {
		fn(BranchID(i), b)
	}
}
func (n *Network) EachGenerator(fn func(GenID, Generator)) {
	for i, g := range n.gens {
		fn(GenID(i), g)
	}
}
func (n *Network) EachLoad(fn func(LoadID, Load)) {
	for i, l := range n.loads {
		fn(LoadID(i), l)
	}
}
func (n *Network) EachShunt(fn func(ShuntID, Shunt)) {
	for i, s := range n.shunts {
		fn(ShuntID(i), s)
	}
}

// SlackBus returns the id of the first bus marked Slack. Contingency
// views that mask out the slack's only path to the rest of the network
// must re-derive per-island slack assignment themselves (spec §4.5
// "Islanding"); the base Network always has at least one by
// construction.
func (n *Network) SlackBus() (BusID, bool) {
	for i, b := range n.buses {
		if b.Type == Slack {
			return BusID(i), true
		}
	}
	return 0, false
}

func (n *Network) String() string {
	return fmt.Sprintf("Network(%s: %d buses, %d branches, %d gens, %d loads, %d shunts)",
		n.Name, len(n.buses), len(n.branch), len(n.gens), len(n.loads), len(n.shunts))
}
