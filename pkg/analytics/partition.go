package analytics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/gatproject/gat/pkg/gaterrors"
	"github.com/gatproject/gat/pkg/model"
)

// PartitionResult assigns every in-service bus to one of NumPartitions
// areas, for an ADMM-style multi-area OPF decomposition to consume as
// each worker's bus set (spec.md's glossary "graph partitioning for
// ADMM").
type PartitionResult struct {
	NumPartitions int
	// Area[bus] is the partition index (0-based) the bus was assigned to.
	Area map[model.BusID]int
	// Boundary lists branches whose two endpoints fall in different
	// areas: an ADMM decomposition carries one consensus variable per
	// boundary branch.
	Boundary []model.BranchID
}

// Partition splits net's bus graph into numPartitions roughly balanced,
// low-cut areas via recursive spectral bisection on the unweighted
// adjacency Laplacian: at each split, the Fiedler vector (the
// eigenvector of the second-smallest Laplacian eigenvalue) is computed
// with gonum/mat's EigenSym, the same dense-eigendecomposition idiom
// pkg/opf and pkg/contingency use for their own dense linear algebra,
// and buses are split by the sign of their Fiedler entry (median-signed
// for an even split). This is the classical spectral partitioning
// algorithm, not a METIS port; it trades optimality for needing nothing
// beyond gonum/mat, which the rest of the module already depends on.
func Partition(net model.Grid, numPartitions int) (PartitionResult, error) {
	if numPartitions < 1 {
		return PartitionResult{}, gaterrors.New(gaterrors.KindInvariantViolated, "numPartitions must be >= 1", nil)
	}

	var buses []model.BusID
	net.EachBus(func(id model.BusID, _ model.Bus) { buses = append(buses, id) })
	if numPartitions > len(buses) {
		numPartitions = len(buses)
	}

	adjacency := make(map[model.BusID]map[model.BusID]bool, len(buses))
	for _, b := range buses {
		adjacency[b] = map[model.BusID]bool{}
	}
	net.EachBranch(func(_ model.BranchID, br model.Branch) {
		if br.Status != model.Closed {
			return
		}
		adjacency[br.From][br.To] = true
		adjacency[br.To][br.From] = true
	})

	groups := [][]model.BusID{buses}
	for len(groups) < numPartitions {
		// Split the largest group each round, so partitions stay
		// balanced in bus count rather than always bisecting group 0.
		largest := 0
		for i, g := range groups {
			if len(g) > len(groups[largest]) {
				largest = i
			}
		}
		if len(groups[largest]) < 2 {
			break
		}
		left, right := bisect(groups[largest], adjacency)
		if len(left) == 0 || len(right) == 0 {
			break
		}
		groups[largest] = left
		groups = append(groups, right)
	}

	area := make(map[model.BusID]int, len(buses))
	for idx, g := range groups {
		for _, b := range g {
			area[b] = idx
		}
	}

	var boundary []model.BranchID
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		if br.Status != model.Closed {
			return
		}
		if area[br.From] != area[br.To] {
			boundary = append(boundary, id)
		}
	})
	sort.Slice(boundary, func(i, j int) bool { return boundary[i] < boundary[j] })

	return PartitionResult{NumPartitions: len(groups), Area: area, Boundary: boundary}, nil
}

// bisect splits group into two halves by the sign of the Fiedler vector
// entry for each bus, using a median threshold rather than a raw
// zero-crossing so a disconnected or near-bipartite subgraph still
// yields a balanced (not all-or-nothing) split.
func bisect(group []model.BusID, adjacency map[model.BusID]map[model.BusID]bool) ([]model.BusID, []model.BusID) {
	n := len(group)
	index := make(map[model.BusID]int, n)
	for i, b := range group {
		index[b] = i
	}

	laplacian := mat.NewSymDense(n, nil)
	for i, b := range group {
		degree := 0.0
		for neigh := range adjacency[b] {
			j, ok := index[neigh]
			if !ok {
				continue
			}
			laplacian.SetSym(i, j, -1)
			degree++
		}
		laplacian.SetSym(i, i, degree)
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(laplacian, true); !ok {
		return group, nil
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// values is ascending; index 0 is the trivial all-ones eigenvector
	// (eigenvalue 0) for a connected graph, so the Fiedler vector is
	// column 1. A disconnected subgraph can have a second zero
	// eigenvalue, in which case column 1 already separates the
	// components, which is exactly the split we want.
	fiedlerCol := 0
	if len(values) > 1 {
		fiedlerCol = 1
	}

	type entry struct {
		bus model.BusID
		val float64
	}
	entries := make([]entry, n)
	for i, b := range group {
		entries[i] = entry{bus: b, val: vectors.At(i, fiedlerCol)}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].val < entries[j].val })

	mid := n / 2
	left := make([]model.BusID, 0, mid)
	right := make([]model.BusID, 0, n-mid)
	for i, e := range entries {
		if i < mid {
			left = append(left, e.bus)
		} else {
			right = append(right, e.bus)
		}
	}
	return left, right
}
