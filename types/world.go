package types

// Category distinguishes how the scheduler drives an instance.
type Category string

const (
	CategoryNPC    Category = "npc"
	CategoryPlayer Category = "player"
	CategoryGame   Category = "game"
)

// InstanceState is the lifecycle state of an instance. Killed and Purged
// are terminal and tick-inert.
type InstanceState string

const (
	StateNormal InstanceState = "normal"
	StateKilled InstanceState = "killed"
	StatePurged InstanceState = "purged"
)

// Point is a continuous 2D location.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Cell is a grid coordinate.
type Cell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Position places an actor or item inside a region.
type Position struct {
	Region int     `json:"region" yaml:"region"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
}

// Tile references a tile inside a tilemap.
type Tile struct {
	Tilemap int `json:"tilemap" yaml:"tilemap"`
	X       int `json:"x" yaml:"x"`
	Y       int `json:"y" yaml:"y"`
}

// AttrKind is the stored type of an attribute, used as a coercion hint.
type AttrKind string

const (
	AttrBool   AttrKind = "bool"
	AttrInt    AttrKind = "int"
	AttrFloat  AttrKind = "float"
	AttrString AttrKind = "string"
	AttrVec    AttrKind = "vec"
)

// Attr is a typed free-form attribute of an entity or item.
type Attr struct {
	Kind AttrKind   `json:"kind" yaml:"kind"`
	Num  float64    `json:"num,omitempty" yaml:"num,omitempty"` // bool (0/1), int and float
	Vec  [3]float64 `json:"vec,omitempty" yaml:"vec,omitempty"`
	Str  string     `json:"str,omitempty" yaml:"str,omitempty"`
}

// PlayerAction is a verb submitted by a player client, awaiting dispatch.
type PlayerAction struct {
	Verb      string `json:"verb"`
	Direction string `json:"direction,omitempty"`
}

// ActionKind is the motion intent of an entity.
type ActionKind string

const (
	ActionOff                ActionKind = "off"
	ActionGoto               ActionKind = "goto"
	ActionCloseIn            ActionKind = "close_in"
	ActionRandomWalk         ActionKind = "random_walk"
	ActionRandomWalkInSector ActionKind = "random_walk_in_sector"
)

// EntityAction is consumed by the per-tick motion integrator.
type EntityAction struct {
	Kind     ActionKind `json:"kind"`
	Target   Point      `json:"target"`
	TargetID int64      `json:"target_id,omitempty"`
	Radius   float64    `json:"radius,omitempty"`
	Speed    float64    `json:"speed,omitempty"`
	Distance float64    `json:"distance,omitempty"`
	MaxSleep int        `json:"max_sleep,omitempty"`
	Sector   string     `json:"sector,omitempty"`
	Walking  bool       `json:"walking,omitempty"` // random walk has picked a target
}

// MessageType classifies an outbox message.
type MessageType string

const (
	MessageStatus MessageType = "status"
	MessageSay    MessageType = "say"
	MessageYell   MessageType = "yell"
	MessageTell   MessageType = "tell"
	MessageDebug  MessageType = "debug"
)

// MessageData is a single message delivered to an instance this tick.
type MessageData struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
	From string      `json:"from,omitempty"`
}

// NodeKey addresses a cached per-node value of an instance.
type NodeKey struct {
	Kind GraphKind
	Node int
}

// Instance is the runtime record of one live actor bound to a graph.
type Instance struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Category Category      `json:"category"`
	State    InstanceState `json:"state"`
	GraphID  int           `json:"graph_id"`
	TreeIDs  []int         `json:"tree_ids"`

	Position           *Position `json:"position,omitempty"`
	OldPosition        *Position `json:"old_position,omitempty"`
	MaxTransitionTime  int       `json:"max_transition_time"`
	CurrTransitionTime int       `json:"curr_transition_time"`
	Tile               *Tile     `json:"tile,omitempty"`

	LockedTree  *int             `json:"locked_tree,omitempty"`
	SleepCycles int              `json:"sleep_cycles"`
	Action      *PlayerAction    `json:"action,omitempty"`
	Motion      EntityAction     `json:"motion"`
	NodeValues  map[NodeKey]Value `json:"-"`

	Attributes    map[string]Attr  `json:"attributes"`
	Inventory     []*Item          `json:"inventory"`
	Equipped      map[string]*Item `json:"equipped,omitempty"`
	Currency      int64            `json:"currency"`
	Proximity     *float64         `json:"proximity,omitempty"`
	BlockedEvents map[string]int64 `json:"blocked_events,omitempty"`

	Messages []MessageData `json:"-"`
	Audio    []string      `json:"-"`

	RegionsSent      map[int]bool `json:"-"`
	CurrScreen       string       `json:"curr_screen,omitempty"`
	NewScreen        string       `json:"new_screen,omitempty"`
	NewScreenContent string       `json:"-"`
	GameLockedTree   *int         `json:"game_locked_tree,omitempty"`
}

// Item is a world or inventory item.
type Item struct {
	ID            int64            `json:"id"`
	ClassName     string           `json:"class_name"`
	Name          string           `json:"name"`
	GraphID       int              `json:"graph_id,omitempty"`
	Position      *Position        `json:"position,omitempty"`
	Attributes    map[string]Attr  `json:"attributes"`
	Proximity     *float64         `json:"proximity,omitempty"`
	BlockedEvents map[string]int64 `json:"blocked_events,omitempty"`
}

// ItemTemplate is the class an item is created from.
type ItemTemplate struct {
	ClassName  string          `json:"class_name" yaml:"class_name"`
	Name       string          `json:"name" yaml:"name"`
	Graph      string          `json:"graph,omitempty" yaml:"graph,omitempty"`
	Attributes map[string]Attr `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Area is a set of cells driven by an area graph.
type Area struct {
	ID    int    `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Cells []Cell `json:"cells" yaml:"cells"`
	Graph int    `json:"graph" yaml:"graph"`
}

// Sector is a named rectangle used as a movement and teleport destination.
type Sector struct {
	Name string `json:"name" yaml:"name"`
	Min  Point  `json:"min" yaml:"min"`
	Max  Point  `json:"max" yaml:"max"`
}

// PlacedTile is one tile of a static layer.
type PlacedTile struct {
	Cell Cell `json:"cell" yaml:"cell"`
	Tile Tile `json:"tile" yaml:"tile"`
}

// Layer is a named static tile layer.
type Layer struct {
	Name  string       `json:"name" yaml:"name"`
	Tiles []PlacedTile `json:"tiles" yaml:"tiles"`
}

// Region is the static data of one region.
type Region struct {
	ID       int              `json:"id" yaml:"id"`
	Name     string           `json:"name" yaml:"name"`
	Layers   []Layer          `json:"layers" yaml:"layers"`
	Areas    []Area           `json:"areas" yaml:"areas"`
	Sectors  []Sector         `json:"sectors" yaml:"sectors"`
	Settings map[string]Value `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// Placement puts an NPC instance of a behavior graph into the region.
type Placement struct {
	Graph    string          `json:"graph" yaml:"graph"`
	Name     string          `json:"name" yaml:"name"`
	Position Position        `json:"position" yaml:"position"`
	Tile     *Tile           `json:"tile,omitempty" yaml:"tile,omitempty"`
	Attrs    map[string]Attr `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// DebugValue is a diagnostic recorded by a host verb while debug mode is on.
type DebugValue struct {
	Entity int64  `json:"entity"`
	Text   string `json:"text"`
	Error  bool   `json:"error"`
}
