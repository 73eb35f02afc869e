package model

import "github.com/gatproject/gat/pkg/gaterrors"

// Builder assembles a Network from bus names, generalizing the
// teacher's two-pass "map names to indices, then build devices against
// those indices" construction (Circuit.AssignNodeBranchMaps followed by
// Circuit.SetupDevices). It is the in-memory counterpart to the
// format-specific importers that spec §6 places outside the core;
// pkg/model.Builder is what those importers (and tests, and
// internal/fixture) are expected to drive.
type Builder struct {
	name    string
	baseMVA float64
	buses   []Bus
	busIdx  map[string]BusID
	branch  []Branch
	gens    []Generator
	loads   []Load
	shunts  []Shunt
}

// NewBuilder starts a Builder for a network named name with the given
// system power base in MVA.
func NewBuilder(name string, baseMVA float64) *Builder {
	return &Builder{name: name, baseMVA: baseMVA, busIdx: make(map[string]BusID)}
}

// AddBus registers a bus and returns its id.
func (b *Builder) AddBus(bus Bus) BusID {
	id := BusID(len(b.buses))
	b.buses = append(b.buses, bus)
	b.busIdx[bus.Name] = id
	return id
}

// BusID resolves a previously-added bus name to its id.
func (b *Builder) BusID(name string) (BusID, bool) {
	id, ok := b.busIdx[name]
	return id, ok
}

// AddBranch appends a branch between two previously-added bus names.
func (b *Builder) AddBranch(br Branch, fromName, toName string) error {
	from, ok := b.busIdx[fromName]
	if !ok {
		return gaterrors.New(gaterrors.KindInvariantViolated, "unknown bus in branch", map[string]any{"bus": fromName})
	}
	to, ok := b.busIdx[toName]
	if !ok {
		return gaterrors.New(gaterrors.KindInvariantViolated, "unknown bus in branch", map[string]any{"bus": toName})
	}
	br.From, br.To = from, to
	b.branch = append(b.branch, br)
	return nil
}

// AddGenerator appends a generator at a previously-added bus name.
func (b *Builder) AddGenerator(g Generator, busName string) error {
	id, ok := b.busIdx[busName]
	if !ok {
		return gaterrors.New(gaterrors.KindInvariantViolated, "unknown bus for generator", map[string]any{"bus": busName})
	}
	g.Bus = id
	b.gens = append(b.gens, g)
	return nil
}

// AddLoad appends a load at a previously-added bus name.
func (b *Builder) AddLoad(l Load, busName string) error {
	id, ok := b.busIdx[busName]
	if !ok {
		return gaterrors.New(gaterrors.KindInvariantViolated, "unknown bus for load", map[string]any{"bus": busName})
	}
	l.Bus = id
	b.loads = append(b.loads, l)
	return nil
}

// AddShunt appends a shunt at a previously-added bus name.
func (b *Builder) AddShunt(s Shunt, busName string) error {
	id, ok := b.busIdx[busName]
	if !ok {
		return gaterrors.New(gaterrors.KindInvariantViolated, "unknown bus for shunt", map[string]any{"bus": busName})
	}
	s.Bus = id
	b.shunts = append(b.shunts, s)
	return nil
}

// Build validates and constructs the Network.
func (b *Builder) Build() (*Network, error) {
	return NewNetwork(b.name, b.baseMVA, b.buses, b.branch, b.gens, b.loads, b.shunts)
}
