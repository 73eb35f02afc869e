// Package contingency implements spec §4.5: N-k enumeration over a
// bounded worker pool, Monte-Carlo LOLE/EUE reliability sampling, and
// WLS state estimation — the "many independent units of work, bounded
// concurrency, first-error-wins-but-partial-results-matter" shape that
// golang.org/x/sync/errgroup and golang.org/x/sync/semaphore exist for
// (grounded on their presence in the reference corpus's go.mod files).
package contingency

import (
	"strconv"

	"github.com/gatproject/gat/pkg/model"
)

// islandsOf partitions net's buses into connected components using only
// Closed branches, the same masking a model.View applies when an outage
// forces a branch's Status to Open (spec §4.5 "the engine constructs a
// view that masks the outaged elements").
func islandsOf(net model.Grid) [][]model.BusID {
	n := net.NumBuses()
	adj := make([][]int, n)
	net.EachBranch(func(_ model.BranchID, br model.Branch) {
		if br.Status != model.Closed {
			return
		}
		i, j := int(br.From), int(br.To)
		adj[i] = append(adj[i], j)
		adj[j] = append(adj[j], i)
	})

	visited := make([]bool, n)
	var islands [][]model.BusID
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		var island []model.BusID
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			island = append(island, model.BusID(u))
			for _, v := range adj[u] {
				if !visited[v] {
					visited[v] = true
					queue = append(queue, v)
				}
			}
		}
		islands = append(islands, island)
	}
	return islands
}

// hasSlack reports whether any bus in ids is the network's reference
// bus.
func hasSlack(net model.Grid, ids []model.BusID) bool {
	slack, ok := net.SlackBus()
	if !ok {
		return false
	}
	for _, id := range ids {
		if id == slack {
			return true
		}
	}
	return false
}

// unservedLoad sums the real-power load attached to buses in ids,
// the "unserved load" an islanded-without-slack component contributes
// to a reliability EUE accumulator (spec §4.5 "Islanding").
func unservedLoad(net model.Grid, ids []model.BusID) float64 {
	set := make(map[model.BusID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	total := 0.0
	net.EachLoad(func(_ model.LoadID, l model.Load) {
		if l.Status == model.InService && set[l.Bus] {
			total += l.P
		}
	})
	return total
}

// islandSubnetwork builds a standalone *model.Network containing only
// the entities attached to busIDs, renumbering buses from zero. If the
// island has no Slack bus of its own, the first bus is promoted to one
// so DC power flow can solve it with a local reference — the "DC mode
// solves each island with its own reference" behavior of spec §4.5.
// Returned maps translate between the subnetwork's fresh ids and the
// original network's.
func islandSubnetwork(net model.Grid, busIDs []model.BusID) (
	sub *model.Network,
	busToOrig map[model.BusID]model.BusID,
	branchToOrig map[model.BranchID]model.BranchID,
	genToOrig map[model.GenID]model.GenID,
	err error,
) {
	origToNewBus := make(map[model.BusID]string, len(busIDs))
	busToOrig = make(map[model.BusID]model.BusID, len(busIDs))
	b := model.NewBuilder("island", net.BaseMVA())

	islandHasSlack := hasSlack(net, busIDs)
	for i, id := range busIDs {
		bus := net.Bus(id)
		name := busNameFor(id)
		bus.Name = name
		origToNewBus[id] = name
		if !islandHasSlack && i == 0 {
			bus.Type = model.Slack
		}
		newID := b.AddBus(bus)
		busToOrig[newID] = id
	}

	inIsland := make(map[model.BusID]bool, len(busIDs))
	for _, id := range busIDs {
		inIsland[id] = true
	}

	branchToOrig = map[model.BranchID]model.BranchID{}
	net.EachBranch(func(id model.BranchID, br model.Branch) {
		if !inIsland[br.From] || !inIsland[br.To] {
			return
		}
		newBranch := br
		fromName, toName := origToNewBus[br.From], origToNewBus[br.To]
		if addErr := b.AddBranch(newBranch, fromName, toName); addErr != nil {
			err = addErr
			return
		}
		// AddBranch appends in call order, so the new id is simply the
		// current length of the branch table minus one.
		branchToOrig[model.BranchID(len(branchToOrig))] = id
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}

	genToOrig = map[model.GenID]model.GenID{}
	net.EachGenerator(func(id model.GenID, g model.Generator) {
		if !inIsland[g.Bus] {
			return
		}
		if addErr := b.AddGenerator(g, origToNewBus[g.Bus]); addErr != nil {
			err = addErr
			return
		}
		genToOrig[model.GenID(len(genToOrig))] = id
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}

	net.EachLoad(func(_ model.LoadID, l model.Load) {
		if !inIsland[l.Bus] {
			return
		}
		if addErr := b.AddLoad(l, origToNewBus[l.Bus]); addErr != nil {
			err = addErr
		}
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}

	net.EachShunt(func(_ model.ShuntID, s model.Shunt) {
		if !inIsland[s.Bus] {
			return
		}
		if addErr := b.AddShunt(s, origToNewBus[s.Bus]); addErr != nil {
			err = addErr
		}
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}

	sub, err = b.Build()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return sub, busToOrig, branchToOrig, genToOrig, nil
}

func busNameFor(id model.BusID) string {
	return "bus" + strconv.Itoa(int(id))
}
