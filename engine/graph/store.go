package graph

import (
	"sort"

	"github.com/nathoo/regioncore/types"
)

// Store is one graph store (behaviors, systems, areas, items or game logic),
// keyed by graph id. It implements Source.
type Store map[int]*types.Graph

// Add inserts or replaces a graph.
func (s Store) Add(g *types.Graph) {
	s[g.ID] = g
}

// Node resolves a node. Unknown graphs or nodes return false.
func (s Store) Node(graphID, nodeID int) (types.Node, bool) {
	g, ok := s[graphID]
	if !ok {
		return types.Node{}, false
	}
	n, ok := g.Nodes[nodeID]
	return n, ok
}

// Connections returns the connections leaving a node, in graph order.
func (s Store) Connections(graphID, nodeID int) []types.Connection {
	g, ok := s[graphID]
	if !ok {
		return nil
	}
	var out []types.Connection
	for _, c := range g.Connections {
		if c.From == nodeID {
			out = append(out, c)
		}
	}
	return out
}

// Roots returns the ids of all BehaviorTree nodes of a graph, ascending.
func (s Store) Roots(graphID int) []int {
	g, ok := s[graphID]
	if !ok {
		return nil
	}
	var ids []int
	for id, n := range g.Nodes {
		if n.Type == types.NodeBehaviorTree {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Tree returns the id of the BehaviorTree node with the given name.
// When several trees share a name the lowest id wins.
func (s Store) Tree(graphID int, name string) (int, bool) {
	for _, id := range s.Roots(graphID) {
		if s[graphID].Nodes[id].Name == name {
			return id, true
		}
	}
	return 0, false
}

// Named returns the graph with the given name. Lowest id wins.
func (s Store) Named(name string) (*types.Graph, bool) {
	var found *types.Graph
	for _, g := range s {
		if g.Name != name {
			continue
		}
		if found == nil || g.ID < found.ID {
			found = g
		}
	}
	return found, found != nil
}

// NodesOfType returns the ids of all nodes of the given types, ascending.
func (s Store) NodesOfType(graphID int, kinds ...types.NodeType) []int {
	g, ok := s[graphID]
	if !ok {
		return nil
	}
	var ids []int
	for id, n := range g.Nodes {
		for _, k := range kinds {
			if n.Type == k {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Ints(ids)
	return ids
}
