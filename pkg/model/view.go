package model

// View masks out specific branches and/or generators of a parent
// Network without copying its backing arrays (spec §3 "lightweight
// views", §5 "contingency views are per-task and not shared across
// threads"). A View must not outlive its parent Network.
//
// This generalizes the teacher's pattern of never mutating device
// identity once a Circuit is built: instead of rebuilding entity
// arrays per contingency scenario, a View carries a small overlay of
// which ids are forced out of service and defers everything else to
// the parent.
type View struct {
	parent        *Network
	outBranches   map[BranchID]bool
	outGenerators map[GenID]bool
}

// NewView returns a View of net with no elements masked.
func NewView(net *Network) *View {
	return &View{parent: net}
}

// WithBranchOut returns a new View with branch id additionally masked
// out. The receiver is not modified.
func (v *View) WithBranchOut(id BranchID) *View {
	nv := v.clone()
	nv.outBranches[id] = true
	return nv
}

// WithGeneratorOut returns a new View with generator id additionally
// masked out. The receiver is not modified.
func (v *View) WithGeneratorOut(id GenID) *View {
	nv := v.clone()
	nv.outGenerators[id] = true
	return nv
}

func (v *View) clone() *View {
	nv := &View{
		parent:        v.parent,
		outBranches:   make(map[BranchID]bool, len(v.outBranches)+1),
		outGenerators: make(map[GenID]bool, len(v.outGenerators)+1),
	}
	for id := range v.outBranches {
		nv.outBranches[id] = true
	}
	for id := range v.outGenerators {
		nv.outGenerators[id] = true
	}
	return nv
}

// Network returns the parent Network this view is derived from.
func (v *View) Network() *Network { return v.parent }

// BaseMVA passes through to the parent.
func (v *View) BaseMVA() float64 { return v.parent.BaseMVA() }

// Branch returns the branch, with Status forced to Open if it is
// masked out by this view.
func (v *View) Branch(id BranchID) Branch {
	b := v.parent.Branch(id)
	if v.outBranches[id] {
		b.Status = Open
	}
	return b
}

// Generator returns the generator, with Status forced to OutOfService
// if it is masked out by this view.
func (v *View) Generator(id GenID) Generator {
	g := v.parent.Generator(id)
	if v.outGenerators[id] {
		g.Status = OutOfService
	}
	return g
}

func (v *View) Bus(id BusID) Bus       { return v.parent.Bus(id) }
func (v *View) Load(id LoadID) Load    { return v.parent.Load(id) }
func (v *View) Shunt(id ShuntID) Shunt { return v.parent.Shunt(id) }

func (v *View) NumBuses() int      { return v.parent.NumBuses() }
func (v *View) NumBranches() int   { return v.parent.NumBranches() }
func (v *View) NumGenerators() int { return v.parent.NumGenerators() }
func (v *View) NumLoads() int      { return v.parent.NumLoads() }
func (v *View) NumShunts() int     { return v.parent.NumShunts() }

func (v *View) EachBranch(fn func(BranchID, Branch)) {
	v.parent.EachBranch(func(id BranchID, b Branch) {
		if v.outBranches[id] {
			b.Status = Open
		}
		fn(id, b)
	})
}

func (v *View) EachGenerator(fn func(GenID, Generator)) {
	v.parent.EachGenerator(func(id GenID, g Generator) {
		if v.outGenerators[id] {
			g.Status = OutOfService
		}
		fn(id, g)
	})
}

func (v *View) EachBus(fn func(BusID, Bus))    { v.parent.EachBus(fn) }
func (v *View) EachLoad(fn func(LoadID, Load)) { v.parent.EachLoad(fn) }
func (v *View) EachShunt(fn func(ShuntID, Shunt)) {
	v.parent.EachShunt(fn)
}

func (v *View) BranchesAt(id BusID) []BranchID { return v.parent.BranchesAt(id) }
func (v *View) GeneratorsAt(id BusID) []GenID  { return v.parent.GeneratorsAt(id) }
func (v *View) LoadsAt(id BusID) []LoadID      { return v.parent.LoadsAt(id) }
func (v *View) ShuntsAt(id BusID) []ShuntID    { return v.parent.ShuntsAt(id) }

func (v *View) SlackBus() (BusID, bool) { return v.parent.SlackBus() }

// Grid is the read interface shared by *Network and *View. Engines
// (pkg/ybus, pkg/powerflow, pkg/opf) accept a Grid so the same
// solve path runs unmodified whether it was handed the base network or
// a contingency-masked view of it (spec §4.5 "the engine constructs a
// view that masks the outaged elements, runs the requested power-flow
// or OPF method").
type Grid interface {
	BaseMVA() float64
	Bus(BusID) Bus
	Branch(BranchID) Branch
	Generator(GenID) Generator
	Load(LoadID) Load
	Shunt(ShuntID) Shunt

	NumBuses() int
	NumBranches() int
	NumGenerators() int
	NumLoads() int
	NumShunts() int

	EachBus(func(BusID, Bus))
	EachBranch(func(BranchID, Branch))
	EachGenerator(func(GenID, Generator))
	EachLoad(func(LoadID, Load))
	EachShunt(func(ShuntID, Shunt))

	BranchesAt(BusID) []BranchID
	GeneratorsAt(BusID) []GenID
	LoadsAt(BusID) []LoadID
	ShuntsAt(BusID) []ShuntID

	SlackBus() (BusID, bool)
}

var (
	_ Grid = (*Network)(nil)
	_ Grid = (*View)(nil)
)
