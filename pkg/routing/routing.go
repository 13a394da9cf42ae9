// Package routing computes a Router's two forwarding tables from its
// current RIB. It implements router.FIBComputer without router importing
// this package, keeping the dependency one-directional.
//
// Computation proceeds in three steps mirroring the network's own
// distance-vector exchange:
//
//  1. Compress each directly reachable neighbor, which may be advertising
//     over more than one interface, down to the single best interface for
//     each metric (minimum loss, maximum bandwidth), breaking ties in
//     favor of the first interface encountered in the router's configured
//     order.
//  2. Assemble a weighted graph of the whole network visible from this
//     router: one edge per direct neighbor from step 1, plus every edge
//     any neighbor's own advertised forwarding table already resolved,
//     recovered from the FullPath/HopWeights it carried in its last
//     advertisement.
//  3. Run the metric-appropriate single-source algorithm over that graph:
//     Dijkstra's shortest path for cumulative loss, and a widest-path
//     (maximum bottleneck capacity) search for bandwidth.
package routing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/hgn/mdvrd/pkg/router"
)

// Engine computes forwarding tables. It holds no state and is safe to
// share across every router in a simulation.
type Engine struct{}

// Compute implements router.FIBComputer.
func (Engine) Compute(r *router.Router) router.FIB {
	lossEdges, bwEdges, networks := collectEdges(r)

	fib := router.NewFIB()
	fib.LowLoss = buildTable(r.ID(), lossEdges, networks, shortestPaths)
	fib.HighBandwidth = buildTable(r.ID(), bwEdges, networks, widestPaths)
	return fib
}

// edge is one undirected link discovered either directly (this router to
// a compressed neighbor) or transitively (recovered from a neighbor's own
// advertised path).
type edge struct {
	a, b      router.ID
	weight    float64
	iface     router.PathType // only meaningful for edges directly attached to the local router
	direct    bool
}

// collectEdges performs steps 1 and 2: it compresses this router's direct
// neighbors to one edge each per metric, then folds in every edge implied
// by neighbors' own advertised FIBs. Returned edge lists and the networks
// map are built by iterating every map in sorted key order, so the result
// is a pure function of the RIB's content, never of Go's randomized map
// iteration.
func collectEdges(r *router.Router) (lossEdges, bwEdges []edge, networks map[router.ID][]string) {
	networks = map[router.ID][]string{r.ID(): {r.PrefixV4()}}

	type compressed struct {
		loss, bandwidth   float64
		lossIface, bwIface router.PathType
		haveLoss          bool
		haveBandwidth     bool
	}
	best := map[router.ID]*compressed{}

	profiles := r.Profiles()
	ifaces := make([]router.PathType, 0, len(profiles))
	lossOf := map[router.PathType]float64{}
	bwOf := map[router.PathType]float64{}
	for _, p := range profiles {
		pt := router.PathType(p.PathType)
		ifaces = append(ifaces, pt)
		lossOf[pt] = p.LossPercent
		bwOf[pt] = p.BandwidthUnitsPerSec
	}

	// Step 1: compress, walking interfaces in their configured order so
	// the "first encountered wins a tie" rule is well defined.
	for _, pt := range ifaces {
		for _, peer := range r.NeighborsOn(pt) {
			c, ok := best[peer]
			if !ok {
				c = &compressed{}
				best[peer] = c
			}
			if !c.haveLoss || lossOf[pt] < c.loss {
				c.loss = lossOf[pt]
				c.lossIface = pt
				c.haveLoss = true
			}
			if !c.haveBandwidth || bwOf[pt] > c.bandwidth {
				c.bandwidth = bwOf[pt]
				c.bwIface = pt
				c.haveBandwidth = true
			}
		}
	}
	// Each neighbor now carries its own independently chosen interface per
	// metric: the minimum-loss interface for the low-loss FIB, the
	// maximum-bandwidth interface for the high-bandwidth FIB. These can be
	// different physical interfaces to the same peer.
	peerIDs := make([]router.ID, 0, len(best))
	for id := range best {
		peerIDs = append(peerIDs, id)
	}
	sort.Slice(peerIDs, func(i, j int) bool { return peerIDs[i] < peerIDs[j] })

	for _, peer := range peerIDs {
		c := best[peer]
		lossEdges = append(lossEdges, edge{a: r.ID(), b: peer, weight: c.loss, iface: c.lossIface, direct: true})
		bwEdges = append(bwEdges, edge{a: r.ID(), b: peer, weight: c.bandwidth, iface: c.bwIface, direct: true})
	}

	// Step 2: fold in edges recovered from each live neighbor's own FIB,
	// as carried in its most recent advertisement.
	rib := r.RIB()
	ifaceKeys := make([]router.PathType, 0, len(rib))
	for pt := range rib {
		ifaceKeys = append(ifaceKeys, pt)
	}
	sort.Slice(ifaceKeys, func(i, j int) bool { return ifaceKeys[i] < ifaceKeys[j] })

	for _, pt := range ifaceKeys {
		table := rib[pt]
		neighborIDs := make([]router.ID, 0, len(table))
		for id := range table {
			neighborIDs = append(neighborIDs, id)
		}
		sort.Slice(neighborIDs, func(i, j int) bool { return neighborIDs[i] < neighborIDs[j] })

		for _, neighborID := range neighborIDs {
			pkt := table[neighborID].Packet
			if _, ok := networks[neighborID]; !ok {
				networks[neighborID] = pkt.Networks
			}
			foldFIBEdges(pkt.RoutingPaths.LowLoss, r.ID(), &lossEdges, networks)
			foldFIBEdges(pkt.RoutingPaths.HighBandwidth, r.ID(), &bwEdges, networks)
		}
	}

	return lossEdges, bwEdges, networks
}

// foldFIBEdges walks a neighbor's advertised table in sorted destination
// order and appends every hop edge its FullPath/HopWeights implies, apart
// from any edge touching self (self's own direct measurements, computed
// in step 1, always take precedence over a peer's second-hand view of
// them).
func foldFIBEdges(table router.FIBTable, self router.ID, edges *[]edge, networks map[router.ID][]string) {
	dsts := make([]router.ID, 0, len(table))
	for dst := range table {
		dsts = append(dsts, dst)
	}
	sort.Slice(dsts, func(i, j int) bool { return dsts[i] < dsts[j] })

	for _, dst := range dsts {
		entry := table[dst]
		if _, ok := networks[dst]; !ok {
			networks[dst] = entry.Networks
		}
		path := entry.FullPath
		if len(path) < 2 || len(entry.HopWeights) != len(path)-1 {
			continue
		}
		for i := 0; i < len(path)-1; i++ {
			a, b := path[i], path[i+1]
			if a == self || b == self {
				continue
			}
			*edges = append(*edges, edge{a: a, b: b, weight: entry.HopWeights[i]})
		}
	}
}

// buildTable runs solve over the node/edge graph and turns the resulting
// per-destination paths into FIB entries, skipping self and any
// degenerate path that would name self as its own next hop.
func buildTable(self router.ID, edges []edge, networks map[router.ID][]string, solve func(self router.ID, edges []edge) map[router.ID]solvedPath) router.FIBTable {
	table := router.FIBTable{}
	solved := solve(self, edges)

	dsts := make([]router.ID, 0, len(solved))
	for dst := range solved {
		dsts = append(dsts, dst)
	}
	sort.Slice(dsts, func(i, j int) bool { return dsts[i] < dsts[j] })

	ifaceByNeighbor := map[router.ID]router.PathType{}
	for _, e := range edges {
		if e.direct {
			ifaceByNeighbor[e.b] = e.iface
		}
	}

	for _, dst := range dsts {
		if dst == self {
			continue
		}
		sp := solved[dst]
		if len(sp.path) < 2 {
			continue
		}
		nextHop := sp.path[1]
		if nextHop == self {
			continue
		}
		fullPath := make([]router.ID, len(sp.path))
		for i, id := range sp.path {
			fullPath[len(sp.path)-1-i] = id
		}
		hopWeights := make([]float64, len(fullPath)-1)
		for i := range hopWeights {
			hopWeights[i] = sp.weights[len(sp.weights)-1-i]
		}
		table[dst] = router.FIBEntry{
			NextHop:    nextHop,
			Interface:  ifaceByNeighbor[nextHop],
			FullPath:   fullPath,
			Networks:   networks[dst],
			HopWeights: hopWeights,
		}
	}
	return table
}

// solvedPath is a single-source result: the router-to-destination path in
// traversal order (self first) and the per-hop weight that produced it.
type solvedPath struct {
	path    []router.ID
	weights []float64
}

// shortestPaths runs Dijkstra's algorithm over the loss-weighted graph:
// the total loss along a path accumulates additively, so the path
// minimizing that sum is the correct shortest path.
func shortestPaths(self router.ID, edges []edge) map[router.ID]solvedPath {
	idx := newNodeIndex(self, edges)
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for _, n := range idx.sortedIDs() {
		g.AddNode(simple.Node(idx.get(n)))
	}
	for _, e := range edges {
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(idx.get(e.a)), simple.Node(idx.get(e.b)), e.weight))
	}

	from := simple.Node(idx.get(self))
	if g.Node(from.ID()) == nil {
		return nil
	}
	shortest := path.DijkstraFrom(from, g)

	result := map[router.ID]solvedPath{}
	for _, n := range idx.sortedIDs() {
		if n == self {
			continue
		}
		to := idx.get(n)
		nodes, _ := shortest.To(to)
		if len(nodes) < 2 {
			continue
		}
		result[n] = solvedPath{path: idx.toIDs(nodes), weights: edgeWeights(g, nodes)}
	}
	return result
}

func edgeWeights(g graph.WeightedUndirected, nodes []graph.Node) []float64 {
	weights := make([]float64, len(nodes)-1)
	for i := 0; i < len(nodes)-1; i++ {
		w, _ := g.Weight(nodes[i].ID(), nodes[i+1].ID())
		weights[i] = w
	}
	return weights
}

// widestPaths finds, for every reachable destination, the path whose
// minimum edge weight (bandwidth bottleneck) is as large as possible. This
// is not a shortest-path problem — Dijkstra minimizes a sum, not a
// bottleneck — so it is solved with a direct O(n^2) label-setting search
// in the style of Prim's algorithm: repeatedly admit the unvisited node
// whose best known bottleneck is largest, then relax its neighbors.
func widestPaths(self router.ID, edges []edge) map[router.ID]solvedPath {
	idx := newNodeIndex(self, edges)
	ids := idx.sortedIDs()
	n := len(ids)
	adj := make(map[router.ID]map[router.ID]float64, n)
	for _, id := range ids {
		adj[id] = map[router.ID]float64{}
	}
	for _, e := range edges {
		if cur, ok := adj[e.a][e.b]; !ok || e.weight > cur {
			adj[e.a][e.b] = e.weight
			adj[e.b][e.a] = e.weight
		}
	}

	const negInf float64 = -1
	bottleneck := make(map[router.ID]float64, n)
	prev := make(map[router.ID]router.ID, n)
	visited := make(map[router.ID]bool, n)
	for _, id := range ids {
		bottleneck[id] = negInf
	}
	bottleneck[self] = math.Inf(1)

	for i := 0; i < n; i++ {
		// Pick the unvisited node with the largest bottleneck, breaking
		// ties by sorted id for determinism.
		var u router.ID
		found := false
		best := negInf
		for _, id := range ids {
			if visited[id] {
				continue
			}
			if !found || bottleneck[id] > best {
				u = id
				best = bottleneck[id]
				found = true
			}
		}
		if !found || bottleneck[u] == negInf {
			break
		}
		visited[u] = true

		neighborIDs := make([]router.ID, 0, len(adj[u]))
		for v := range adj[u] {
			neighborIDs = append(neighborIDs, v)
		}
		sort.Slice(neighborIDs, func(i, j int) bool { return neighborIDs[i] < neighborIDs[j] })
		for _, v := range neighborIDs {
			if visited[v] {
				continue
			}
			w := adj[u][v]
			candidate := w
			if bottleneck[u] < candidate {
				candidate = bottleneck[u]
			}
			if candidate > bottleneck[v] {
				bottleneck[v] = candidate
				prev[v] = u
			}
		}
	}

	result := map[router.ID]solvedPath{}
	for _, dst := range ids {
		if dst == self || bottleneck[dst] == negInf {
			continue
		}
		var nodes []router.ID
		var weights []float64
		cur := dst
		for cur != self {
			p, ok := prev[cur]
			if !ok {
				nodes = nil
				break
			}
			nodes = append([]router.ID{cur}, nodes...)
			weights = append([]float64{adj[p][cur]}, weights...)
			cur = p
		}
		if len(nodes) == 0 {
			continue
		}
		nodes = append([]router.ID{self}, nodes...)
		result[dst] = solvedPath{path: nodes, weights: weights}
	}
	return result
}

// nodeIndex assigns deterministic, densely packed integer ids to a set of
// router ids, in sorted string order, so graph construction never depends
// on map iteration order.
type nodeIndex struct {
	ids   []router.ID
	toInt map[router.ID]int64
}

func newNodeIndex(self router.ID, edges []edge) *nodeIndex {
	set := map[router.ID]bool{self: true}
	for _, e := range edges {
		set[e.a] = true
		set[e.b] = true
	}
	ids := make([]router.ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	toInt := make(map[router.ID]int64, len(ids))
	for i, id := range ids {
		toInt[id] = int64(i)
	}
	return &nodeIndex{ids: ids, toInt: toInt}
}

func (n *nodeIndex) get(id router.ID) int64 { return n.toInt[id] }

func (n *nodeIndex) sortedIDs() []router.ID { return n.ids }

func (n *nodeIndex) toIDs(nodes []graph.Node) []router.ID {
	out := make([]router.ID, len(nodes))
	for i, gn := range nodes {
		out[i] = n.ids[gn.ID()]
	}
	return out
}
