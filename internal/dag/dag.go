// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed graph operations for topological sorting and
// cycle handling. The resolver uses it to order active mod packages: an edge
// from A to B means A must load before B.
//
// Edges are either hard (declared requirements and patches) or soft (ordering
// heuristics). TopologicalSort fails on any cycle. Resolve always produces a
// total order, dropping soft edges first and forcing nodes out of what is left.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle contains the nodes that form the cycle (not necessarily all of them,
		// but enough to identify the problem).
		Cycle []string
	}

	// Graph is a directed graph for topological sorting.
	// Nodes are identified by string keys. Edges represent "must load before"
	// relationships: an edge from A to B means A is ordered before B.
	Graph struct {
		// adjacency maps each node to its outgoing neighbors (nodes that depend on it).
		adjacency map[string][]string
		// preds maps each node to its incoming neighbors in insertion order.
		preds map[string][]string
		// hard records every edge; the value is true for hard edges.
		hard map[edge]bool
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}

	// Resolution is the outcome of Resolve.
	Resolution struct {
		// Order holds every node exactly once.
		Order []string
		// SoftDropped counts soft edges removed to break cycles.
		SoftDropped int
		// Forced lists nodes emitted with unresolved predecessors, in emission order.
		Forced []string
		// HardBroken counts hard edges violated by forced nodes.
		HardBroken int
	}

	edge struct {
		from, to string
	}

	// kahn is the mutable state of one Resolve run.
	kahn struct {
		g        *Graph
		inDegree map[string]int
		removed  map[edge]bool
		emitted  map[string]bool
		queue    []string
		order    []string
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		preds:     make(map[string][]string),
		hard:      make(map[edge]bool),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
// Insertion order is the tie-break for nodes that become ready together.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a hard edge from -> to, meaning "from" must come before "to".
// Both nodes are implicitly added if they don't exist.
func (g *Graph) AddEdge(from, to string) {
	g.addEdge(from, to, true)
}

// AddSoftEdge adds a soft edge from -> to. A soft edge never downgrades an
// existing hard edge between the same nodes.
func (g *Graph) AddSoftEdge(from, to string) {
	g.addEdge(from, to, false)
}

func (g *Graph) addEdge(from, to string, hard bool) {
	g.AddNode(from)
	g.AddNode(to)

	e := edge{from: from, to: to}
	if existing, ok := g.hard[e]; ok {
		g.hard[e] = existing || hard
		return
	}
	g.hard[e] = hard
	g.adjacency[from] = append(g.adjacency[from], to)
	g.preds[to] = append(g.preds[to], from)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// IsHard reports whether from -> to exists and is hard.
func (g *Graph) IsHard(from, to string) bool { return g.hard[edge{from: from, to: to}] }

// TopologicalSort returns a valid order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle of any kind of edge.
// The returned order is deterministic: nodes at the same topological level
// appear in the order they were first added to the graph.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	k := g.newKahn()
	k.run()

	if len(k.order) != len(g.nodes) {
		// Remaining nodes with non-zero in-degree form the cycle.
		var cycleNodes []string
		for _, node := range g.nodes {
			if !k.emitted[node] {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return k.order, nil
}

// Resolve orders every node, recovering from cycles instead of failing.
//
// Plain Kahn's algorithm runs first. While nodes remain, soft edges whose
// source is still unresolved are dropped and Kahn's resumes. If a residue is
// left after that, the unresolved node with the fewest unresolved predecessors
// (earliest inserted on ties) is forced out, breaking its incoming edges, until
// every node is emitted.
func (g *Graph) Resolve() Resolution {
	var res Resolution
	if len(g.nodes) == 0 {
		return res
	}

	k := g.newKahn()
	k.run()

	for len(k.order) < len(g.nodes) {
		dropped := k.dropSoftEdges()
		if dropped == 0 {
			break
		}
		res.SoftDropped += dropped
		k.run()
	}

	for len(k.order) < len(g.nodes) {
		node, broken := k.force()
		res.Forced = append(res.Forced, node)
		res.HardBroken += broken
		k.run()
	}

	res.Order = k.order
	return res
}

func (g *Graph) newKahn() *kahn {
	k := &kahn{
		g:        g,
		inDegree: make(map[string]int, len(g.nodes)),
		removed:  make(map[edge]bool),
		emitted:  make(map[string]bool, len(g.nodes)),
	}
	for _, node := range g.nodes {
		k.inDegree[node] = len(g.preds[node])
	}

	// Seed the queue with nodes that have no incoming edges, in insertion order.
	for _, node := range g.nodes {
		if k.inDegree[node] == 0 {
			k.queue = append(k.queue, node)
		}
	}
	return k
}

func (k *kahn) run() {
	for len(k.queue) > 0 {
		node := k.queue[0]
		k.queue = k.queue[1:]
		if k.emitted[node] {
			continue
		}
		k.emitted[node] = true
		k.order = append(k.order, node)

		for _, neighbor := range k.g.adjacency[node] {
			e := edge{from: node, to: neighbor}
			if k.removed[e] {
				continue
			}
			k.removed[e] = true
			k.inDegree[neighbor]--
			if k.inDegree[neighbor] == 0 && !k.emitted[neighbor] {
				k.queue = append(k.queue, neighbor)
			}
		}
	}
}

// dropSoftEdges removes every soft edge between unresolved nodes and returns
// how many were removed.
func (k *kahn) dropSoftEdges() int {
	dropped := 0
	for _, node := range k.g.nodes {
		if k.emitted[node] {
			continue
		}
		for _, pred := range k.g.preds[node] {
			e := edge{from: pred, to: node}
			if k.removed[e] || k.emitted[pred] || k.g.hard[e] {
				continue
			}
			k.removed[e] = true
			k.inDegree[node]--
			dropped++
		}
		if k.inDegree[node] == 0 {
			k.queue = append(k.queue, node)
		}
	}
	return dropped
}

// force emits the unresolved node with the fewest live incoming edges and
// reports how many hard edges that breaks.
func (k *kahn) force() (string, int) {
	best, bestCount := "", -1
	for _, node := range k.g.nodes {
		if k.emitted[node] {
			continue
		}
		if n := k.inDegree[node]; bestCount < 0 || n < bestCount {
			best, bestCount = node, n
		}
	}

	broken := 0
	for _, pred := range k.g.preds[best] {
		e := edge{from: pred, to: best}
		if k.removed[e] {
			continue
		}
		k.removed[e] = true
		if k.g.hard[e] {
			broken++
		}
	}
	k.inDegree[best] = 0
	k.queue = append(k.queue, best)
	return best, broken
}
