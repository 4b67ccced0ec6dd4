package nodes

import (
	"github.com/nathoo/regioncore/engine/graph"
	"github.com/nathoo/regioncore/engine/instance"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

// arriveDistance is how close Pathfinder must get to count as arrived.
const arriveDistance = 0.5

func expression(w *world.World, call graph.Call, node types.Node) types.Connector {
	if w.Scripts == nil {
		return types.Fail
	}
	ok, err := w.Scripts.Eval(value(node, "expression").S)
	if err != nil {
		w.LogMessage("[error] " + w.EntityName(call.Actor) + ": " + err.Error())
		return types.Fail
	}
	if ok {
		return types.Bottom
	}
	return types.Fail
}

func script(w *world.World, call graph.Call, node types.Node) types.Connector {
	if w.Scripts == nil {
		return types.Bottom
	}
	if err := w.Scripts.Run(value(node, "script").S); err != nil {
		w.LogMessage("[error] " + w.EntityName(call.Actor) + ": " + err.Error())
		w.Debug(err.Error(), true)
	}
	return types.Bottom
}

func message(w *world.World, call graph.Call, node types.Node) types.Connector {
	inst, ok := w.Entity(call.Actor)
	if !ok {
		return types.Bottom
	}
	msg := types.MessageData{
		Type: messageType(num(node, "type", 0)),
		Text: value(node, "text").S,
		From: w.EntityName(inst.ID),
	}
	inst.Messages = append(inst.Messages, msg)
	if (msg.Type == types.MessageSay || msg.Type == types.MessageYell) && inst.Position != nil {
		for _, other := range w.InRadius(*inst.Position, num(node, "radius", 7), inst.ID) {
			if other.Category == types.CategoryPlayer {
				other.Messages = append(other.Messages, msg)
			}
		}
	}
	return types.Bottom
}

func pathfinder(w *world.World, call graph.Call, node types.Node) types.Connector {
	inst, ok := w.Entity(call.Actor)
	if !ok || inst.Position == nil {
		return types.Fail
	}
	dest := value(node, "destination")
	target := types.Position{Region: inst.Position.Region, X: dest.X, Y: dest.Y}
	inst.NodeValues[types.NodeKey{Kind: call.Kind, Node: node.ID}] = types.Value{X: dest.X, Y: dest.Y, Z: float64(w.Tick)}
	if world.Distance(*inst.Position, target) < arriveDistance {
		return types.Right
	}
	inst.Motion = types.EntityAction{
		Kind:   types.ActionGoto,
		Target: types.Point{X: dest.X, Y: dest.Y},
		Speed:  num(node, "speed", 1),
	}
	return types.Bottom
}

func lookout(w *world.World, call graph.Call, node types.Node) types.Connector {
	inst, ok := w.Entity(call.Actor)
	if !ok || inst.Position == nil {
		return types.Fail
	}
	for _, other := range w.InRadius(*inst.Position, num(node, "radius", 7), inst.ID) {
		if other.Category == types.CategoryPlayer {
			inst.Attributes["target"] = world.Int(other.ID)
			return types.Right
		}
	}
	return types.Fail
}

func closeIn(w *world.World, call graph.Call, node types.Node) types.Connector {
	inst, ok := w.Entity(call.Actor)
	if !ok || inst.Position == nil {
		return types.Fail
	}
	id, ok := world.AttrInt(inst.Attributes, "target")
	if !ok {
		return types.Fail
	}
	target, ok := w.Entity(id)
	if !ok || target.Position == nil || !instance.Live(target) {
		return types.Fail
	}
	radius := num(node, "radius", 1)
	if world.Distance(*inst.Position, *target.Position) <= radius {
		return types.Right
	}
	inst.Motion = types.EntityAction{
		Kind:     types.ActionCloseIn,
		TargetID: id,
		Radius:   radius,
		Speed:    num(node, "speed", 1),
	}
	return types.Bottom
}

func callSystem(w *world.World, call graph.Call, node types.Node) types.Connector {
	g, ok := w.Systems.Named(value(node, "system").S)
	if !ok || w.Exec == nil {
		return types.Fail
	}
	tree, ok := w.Systems.Tree(g.ID, value(node, "tree").S)
	if !ok {
		return types.Fail
	}
	w.Exec.Walk(types.KindSystem, g.ID, tree, call.Actor, call.Depth+1)
	return types.Bottom
}

func callBehavior(w *world.World, call graph.Call, node types.Node) types.Connector {
	inst, ok := w.Entity(call.Actor)
	if !ok || w.Exec == nil {
		return types.Fail
	}
	tree, ok := w.Behaviors.Tree(inst.GraphID, value(node, "tree").S)
	if !ok {
		return types.Fail
	}
	w.Exec.Walk(types.KindBehavior, inst.GraphID, tree, call.Actor, call.Depth+1)
	return types.Bottom
}

// lockTree locks the named tree of the actor's behavior graph, or of the
// game-logic graph when walked as game logic.
func lockTree(w *world.World, call graph.Call, node types.Node) types.Connector {
	inst, ok := w.Entity(call.Actor)
	if !ok {
		return types.Fail
	}
	name := value(node, "tree").S
	if call.Kind == types.KindGame {
		tree, ok := w.Game.Tree(call.Graph, name)
		if !ok {
			return types.Fail
		}
		inst.GameLockedTree = &tree
		return types.Bottom
	}
	tree, ok := w.Behaviors.Tree(inst.GraphID, name)
	if !ok {
		return types.Fail
	}
	inst.LockedTree = &tree
	return types.Bottom
}

func unlockTree(w *world.World, call graph.Call, node types.Node) types.Connector {
	inst, ok := w.Entity(call.Actor)
	if !ok {
		return types.Bottom
	}
	if call.Kind == types.KindGame {
		inst.GameLockedTree = nil
	} else {
		inst.LockedTree = nil
	}
	return types.Bottom
}

func setState(w *world.World, call graph.Call, node types.Node) types.Connector {
	inst, ok := w.Entity(call.Actor)
	if !ok {
		return types.Bottom
	}
	if i := int(num(node, "state", 0)); i >= 0 && i < len(stateByCode) {
		inst.State = stateByCode[i]
	}
	return types.Bottom
}

func queryState(w *world.World, call graph.Call, node types.Node) types.Connector {
	inst, ok := w.Entity(call.Actor)
	if !ok {
		return types.Fail
	}
	i := int(num(node, "state", 0))
	if i >= 0 && i < len(stateByCode) && inst.State == stateByCode[i] {
		return types.Bottom
	}
	return types.Fail
}
