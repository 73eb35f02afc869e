// Package model defines the GAT network data model: typed entity ids,
// units-bearing attributes, the entity tables themselves, and the
// Network/View types engines consume (spec §3).
package model

// BusID, BranchID, GenID, LoadID and ShuntID are distinct integer-backed
// id types so the compiler rejects mixing ids across entity classes
// (spec §3 "Identifiers"). Each is 0-based and indexes directly into the
// corresponding Network slice; there is no sentinel "invalid" value
// other than the zero value of the Go type, which callers must not
// dereference without checking Network bounds.
type (
	BusID    int32
	BranchID int32
	GenID    int32
	LoadID   int32
	ShuntID  int32
)

// BusType enumerates the four bus roles of spec §3.
type BusType int

const (
	Slack BusType = iota
	PV
	PQ
	Isolated
)

func (t BusType) String() string {
	switch t {
	case Slack:
		return "Slack"
	case PV:
		return "PV"
	case PQ:
		return "PQ"
	case Isolated:
		return "Isolated"
	default:
		return "Unknown"
	}
}

// BranchStatus enumerates whether a branch is in service.
type BranchStatus int

const (
	Closed BranchStatus = iota
	Open
)

// Status enumerates generator/load/shunt in-service state, shared across
// entity classes that only have the two states.
type Status int

const (
	InService Status = iota
	OutOfService
)
