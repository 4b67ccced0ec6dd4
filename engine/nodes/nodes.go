// Package nodes implements the leaf handlers of behavior, system, item,
// area and game-logic graphs and registers them into dispatch tables.
package nodes

import (
	"github.com/nathoo/regioncore/engine/graph"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

// Handler is a leaf handler bound to the world context.
type Handler = graph.Handler[*world.World]

// Registry is a dispatch table bound to the world context.
type Registry = graph.Registry[*world.World]

// Behavior returns the handlers of behavior, system and item graphs.
func Behavior() Registry {
	return Registry{
		types.NodeExpression:   expression,
		types.NodeScript:       script,
		types.NodeMessage:      message,
		types.NodePathfinder:   pathfinder,
		types.NodeLookout:      lookout,
		types.NodeCloseIn:      closeIn,
		types.NodeCallSystem:   callSystem,
		types.NodeCallBehavior: callBehavior,
		types.NodeLockTree:     lockTree,
		types.NodeUnlockTree:   unlockTree,
		types.NodeSetState:     setState,
		types.NodeQueryState:   queryState,
	}
}

// Area returns the handlers of area graphs.
func Area() Registry {
	return Registry{
		types.NodeInsideArea:    insideArea,
		types.NodeEnterArea:     enterArea,
		types.NodeLeaveArea:     leaveArea,
		types.NodeAlways:        always,
		types.NodeMessageArea:   messageArea,
		types.NodeAudioArea:     audioArea,
		types.NodeLightArea:     lightArea,
		types.NodeTeleportArea:  teleportArea,
		types.NodeDisplaceTiles: displaceTiles,
	}
}

// Game returns the handlers of the game-logic graph.
func Game() Registry {
	return Registry{
		types.NodeScreen:     screen,
		types.NodeLockTree:   lockTree,
		types.NodeUnlockTree: unlockTree,
		types.NodeScript:     script,
		types.NodeExpression: expression,
		types.NodeMessage:    message,
	}
}

// GamePrelude lists the game-logic types that descend after running.
func GamePrelude() map[types.NodeType]bool {
	return map[types.NodeType]bool{types.NodeScreen: true}
}

// AreaTriggers are the node types the scheduler walks for every area.
var AreaTriggers = []types.NodeType{
	types.NodeInsideArea, types.NodeEnterArea, types.NodeLeaveArea, types.NodeAlways,
}

func value(node types.Node, key string) types.Value {
	return node.Values[key]
}

// num returns the X slot of a value, or def when the value is absent.
func num(node types.Node, key string, def float64) float64 {
	v, ok := node.Values[key]
	if !ok {
		return def
	}
	return v.X
}

var stateByCode = []types.InstanceState{types.StateNormal, types.StateKilled, types.StatePurged}

var messageByCode = []types.MessageType{
	types.MessageStatus, types.MessageSay, types.MessageYell, types.MessageTell, types.MessageDebug,
}

func messageType(code float64) types.MessageType {
	i := int(code)
	if i < 0 || i >= len(messageByCode) {
		return types.MessageStatus
	}
	return messageByCode[i]
}
