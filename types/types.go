// Package types defines the shared data structures for the regioncore engine.
// This package contains only type definitions, no logic.
package types

// Connector is a named exit point on a node.
type Connector string

const (
	Bottom  Connector = "Bottom"
	Bottom1 Connector = "Bottom1"
	Bottom2 Connector = "Bottom2"
	Bottom3 Connector = "Bottom3"
	Bottom4 Connector = "Bottom4"
	Fail    Connector = "Fail"
	Right   Connector = "Right"
)

// NodeType tags a node with the handler that executes it.
type NodeType string

// Structural node types.
const (
	NodeBehaviorTree NodeType = "BehaviorTree"
	NodeLinear       NodeType = "Linear"
	NodeSequence     NodeType = "Sequence"
)

// Behavior and system leaf types.
const (
	NodeExpression   NodeType = "Expression"
	NodeScript       NodeType = "Script"
	NodeMessage      NodeType = "Message"
	NodePathfinder   NodeType = "Pathfinder"
	NodeLookout      NodeType = "Lookout"
	NodeCloseIn      NodeType = "CloseIn"
	NodeCallSystem   NodeType = "CallSystem"
	NodeCallBehavior NodeType = "CallBehavior"
	NodeLockTree     NodeType = "LockTree"
	NodeUnlockTree   NodeType = "UnlockTree"
	NodeSetState     NodeType = "SetState"
	NodeQueryState   NodeType = "QueryState"
)

// Area trigger and area action types.
const (
	NodeInsideArea    NodeType = "InsideArea"
	NodeEnterArea     NodeType = "EnterArea"
	NodeLeaveArea     NodeType = "LeaveArea"
	NodeAlways        NodeType = "Always"
	NodeMessageArea   NodeType = "MessageArea"
	NodeAudioArea     NodeType = "AudioArea"
	NodeLightArea     NodeType = "LightArea"
	NodeTeleportArea  NodeType = "TeleportArea"
	NodeDisplaceTiles NodeType = "DisplaceTiles"
)

// Game-logic types.
const (
	NodeScreen NodeType = "Screen"
)

// GraphKind identifies which graph store a graph lives in.
type GraphKind string

const (
	KindBehavior GraphKind = "behavior"
	KindSystem   GraphKind = "system"
	KindArea     GraphKind = "area"
	KindGame     GraphKind = "game"
	KindItem     GraphKind = "item"
)

// Value is a node parameter: four numeric slots and one string slot.
type Value struct {
	X float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y float64 `json:"y,omitempty" yaml:"y,omitempty"`
	Z float64 `json:"z,omitempty" yaml:"z,omitempty"`
	W float64 `json:"w,omitempty" yaml:"w,omitempty"`
	S string  `json:"s,omitempty" yaml:"s,omitempty"`
}

// Node is a single vertex of a graph.
type Node struct {
	ID     int              `json:"id"`
	Type   NodeType         `json:"type"`
	Name   string           `json:"name"`
	Values map[string]Value `json:"values,omitempty"`
}

// Connection links a node's connector to a target node.
type Connection struct {
	From      int       `json:"from"`
	Connector Connector `json:"connector"`
	To        int       `json:"to"`
}

// Graph is a behavior, system, area, item or game-logic definition.
type Graph struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Kind        GraphKind    `json:"kind"`
	Nodes       map[int]Node `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Fired is one entry of the executed-connections trace.
type Fired struct {
	Kind      GraphKind `json:"kind"`
	Graph     int       `json:"graph"`
	From      int       `json:"from"`
	Connector Connector `json:"connector"`
	To        int       `json:"to"`
	Possible  bool      `json:"possible,omitempty"` // sequence child not yet committed
}

// ScriptValue is the single value shape crossing the script/host boundary:
// three numbers plus an optional string. Lists of ids travel as
// X = first id, Y = second id, Z = count, S = comma-joined ids.
type ScriptValue struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	S string  `json:"s,omitempty"`
}
