// Package graph implements the node dispatch table and the generic walker
// that executes behavior, system, area, item and game-logic graphs.
package graph

import (
	"log"

	"github.com/nathoo/regioncore/types"
)

// Call identifies what a handler is executing on behalf of.
type Call struct {
	Kind  types.GraphKind
	Graph int
	Node  int
	Actor int64 // instance id for behavior, system, item and game graphs
	Area  int   // area index for area graphs
	// Depth is the walk depth of Node. Execute starts counting from it, so
	// walks nested through handlers share one depth limit.
	Depth int
}

// Context is the mutable world a walk runs against. It receives the
// executed-connections trace.
type Context interface {
	// Fire appends a trace entry and returns its index.
	Fire(f types.Fired) int
	// Commit marks a possibly-executed trace entry as executed.
	Commit(i int)
}

// Handler executes one leaf node and returns the connector to follow.
type Handler[C any] func(ctx C, call Call, node types.Node) types.Connector

// Registry is the dispatch table: node type to handler.
type Registry[C any] map[types.NodeType]Handler[C]

// Source resolves nodes and their outgoing connections.
type Source interface {
	Node(graphID, nodeID int) (types.Node, bool)
	Connections(graphID, nodeID int) []types.Connection
}

// treeConnectors is the fixed connector set of structural nodes, in the
// order children are visited.
var treeConnectors = []types.Connector{
	types.Bottom1, types.Bottom2, types.Bottom3, types.Bottom4, types.Bottom,
}

// Walker executes graphs of one kind.
type Walker[C Context] struct {
	Kind     types.GraphKind
	Source   Source
	Handlers Registry[C]
	// Prelude lists node types whose handler runs for its side effect
	// before the node descends like a BehaviorTree.
	Prelude  map[types.NodeType]bool
	MaxDepth int // 0 means unbounded
	Log      *log.Logger
}

// Execute walks from the given node. It returns the connector produced by
// the start node, or false if it produced none (structural node, missing
// node, depth limit).
func (w *Walker[C]) Execute(ctx C, call Call) (types.Connector, bool) {
	call.Kind = w.Kind
	return w.walk(ctx, call, call.Depth)
}

func (w *Walker[C]) walk(ctx C, call Call, depth int) (types.Connector, bool) {
	node, ok := w.Source.Node(call.Graph, call.Node)
	if !ok {
		return "", false
	}
	if w.MaxDepth > 0 && depth > w.MaxDepth {
		w.logf("graph: %s graph %d: depth limit %d reached at node %d, branch skipped",
			w.Kind, call.Graph, w.MaxDepth, call.Node)
		return "", false
	}
	call.Depth = depth

	switch node.Type {
	case types.NodeBehaviorTree, types.NodeLinear:
		w.descendTree(ctx, call, depth)
		return "", false
	case types.NodeSequence:
		return w.descendSequence(ctx, call, depth)
	}

	if w.Prelude[node.Type] {
		if h, ok := w.Handlers[node.Type]; ok {
			h(ctx, call, node)
		}
		w.descendTree(ctx, call, depth)
		return "", false
	}

	h, ok := w.Handlers[node.Type]
	if !ok {
		return types.Bottom, true
	}
	c := h(ctx, call, node)
	w.follow(ctx, call, c, depth)
	return c, true
}

// follow walks every connection leaving the node on connector c.
func (w *Walker[C]) follow(ctx C, call Call, c types.Connector, depth int) {
	var next []int
	for _, conn := range w.Source.Connections(call.Graph, call.Node) {
		if conn.Connector != c {
			continue
		}
		ctx.Fire(types.Fired{Kind: w.Kind, Graph: call.Graph, From: conn.From, Connector: conn.Connector, To: conn.To})
		next = append(next, conn.To)
	}
	for _, id := range next {
		child := call
		child.Node = id
		w.walk(ctx, child, depth+1)
	}
}

func (w *Walker[C]) descendTree(ctx C, call Call, depth int) {
	for _, c := range treeConnectors {
		w.follow(ctx, call, c, depth)
	}
}

// descendSequence marks every Bottom* connection as possibly executed, then
// commits and walks them in connection order. A child returning Fail or
// Right stops the sequence; its connector is returned so enclosing
// sequences abort as well.
func (w *Walker[C]) descendSequence(ctx C, call Call, depth int) (types.Connector, bool) {
	type pending struct {
		to    int
		trace int
	}
	var children []pending
	for _, conn := range w.Source.Connections(call.Graph, call.Node) {
		if !isBottom(conn.Connector) {
			continue
		}
		i := ctx.Fire(types.Fired{Kind: w.Kind, Graph: call.Graph, From: conn.From, Connector: conn.Connector, To: conn.To, Possible: true})
		children = append(children, pending{to: conn.To, trace: i})
	}

	for _, p := range children {
		ctx.Commit(p.trace)
		child := call
		child.Node = p.to
		c, ok := w.walk(ctx, child, depth+1)
		if ok && (c == types.Fail || c == types.Right) {
			return c, true
		}
	}
	return "", false
}

func (w *Walker[C]) logf(format string, args ...any) {
	if w.Log != nil {
		w.Log.Printf(format, args...)
	}
}

func isBottom(c types.Connector) bool {
	for _, b := range treeConnectors {
		if c == b {
			return true
		}
	}
	return false
}
