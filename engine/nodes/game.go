package nodes

import (
	"github.com/nathoo/regioncore/engine/graph"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

// screen selects the screen shown to the player. It runs before the node
// descends into its children.
func screen(w *world.World, call graph.Call, node types.Node) types.Connector {
	if inst, ok := w.Entity(call.Actor); ok {
		inst.NewScreen = node.Name
		inst.NewScreenContent = value(node, "script").S
	}
	return types.Bottom
}
