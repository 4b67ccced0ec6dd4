// Package world holds the explicit simulation context of one region: graph
// stores, instances, items, deferred queues, per-tick indexes and the
// outbound message channel. It is threaded by reference through the walker,
// the leaf handlers, the scheduler and the host bridge.
package world

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/nathoo/regioncore/config"
	"github.com/nathoo/regioncore/engine/graph"
	"github.com/nathoo/regioncore/engine/instance"
	"github.com/nathoo/regioncore/engine/queue"
	"github.com/nathoo/regioncore/types"
)

// ErrInventoryFull is returned when every inventory slot is taken.
var ErrInventoryFull = errors.New("inventory full")

// Random is the randomness the world draws from.
type Random interface {
	Int63n(n int64) int64
	Float64() float64
}

// Executor walks a tree of another graph on behalf of an actor. The engine
// implements it so handlers can call across graph kinds. depth is the walk
// depth the call is made from and counts against the depth limit.
type Executor interface {
	Walk(kind types.GraphKind, graphID, nodeID int, actor int64, depth int)
}

// ScriptRunner executes node code against the current entity and item.
type ScriptRunner interface {
	Run(src string) error
	Eval(expr string) (bool, error)
}

// World is the mutable state of one region simulation.
type World struct {
	Config config.Settings
	Region *types.Region

	Behaviors graph.Store
	Systems   graph.Store
	Areas     graph.Store
	ItemLogic graph.Store
	Game      graph.Store
	GameGraph int

	Instances   *instance.Store
	Items       []*types.Item
	ItemClasses map[string]types.ItemTemplate

	EntityEvents        queue.Queue
	ItemEvents          queue.Queue
	EntityNotifications queue.Queue
	ItemNotifications   queue.Queue

	Tick          int64
	Trace         []types.Fired
	Characters    map[int][]types.CharacterData
	Lights        []types.Light
	Displacements map[types.Cell]types.Tile
	DebugValues   []types.DebugValue

	CurrentEntity int64
	CurrentItem   int64
	Event         *queue.Event

	Outbox  chan<- types.RegionMessage
	Log     *log.Logger
	RNG     Random
	Exec    Executor
	Scripts ScriptRunner

	members     map[int][]int64
	prevMembers map[int][]int64
	cells       []map[types.Cell]bool
}

// New creates an empty world for a region.
func New(cfg config.Settings, region *types.Region, rng Random) *World {
	if region == nil {
		region = &types.Region{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Engine.Seed))
	}
	return &World{
		Config:        cfg,
		Region:        region,
		Behaviors:     graph.Store{},
		Systems:       graph.Store{},
		Areas:         graph.Store{},
		ItemLogic:     graph.Store{},
		Game:          graph.Store{},
		Instances:     instance.NewStore(),
		ItemClasses:   map[string]types.ItemTemplate{},
		Characters:    map[int][]types.CharacterData{},
		Displacements: map[types.Cell]types.Tile{},
		RNG:           rng,
		members:       map[int][]int64{},
		prevMembers:   map[int][]int64{},
	}
}

// Fire appends an entry to the executed-connections trace.
func (w *World) Fire(f types.Fired) int {
	w.Trace = append(w.Trace, f)
	return len(w.Trace) - 1
}

// Commit marks a possibly-executed trace entry as executed.
func (w *World) Commit(i int) {
	if i >= 0 && i < len(w.Trace) {
		w.Trace[i].Possible = false
	}
}

// BeginTick clears the per-tick buffers and rotates area membership.
// Debug values of the previous tick are dropped.
func (w *World) BeginTick() {
	w.Trace = nil
	w.DebugValues = nil
	w.Lights = nil
	w.Characters = map[int][]types.CharacterData{}
	w.prevMembers = w.members
	w.members = map[int][]int64{}
}

// Entity returns the instance with the given id.
func (w *World) Entity(id int64) (*types.Instance, bool) {
	return w.Instances.Get(id)
}

// Current returns the instance the host verbs act on.
func (w *World) Current() (*types.Instance, bool) {
	return w.Instances.Get(w.CurrentEntity)
}

// Item finds an item in the world or in any inventory. owner is nil for
// loose items.
func (w *World) Item(id int64) (item *types.Item, owner *types.Instance, ok bool) {
	for _, it := range w.Items {
		if it.ID == id {
			return it, nil, true
		}
	}
	for _, inst := range w.Instances.All() {
		for _, it := range inst.Inventory {
			if it != nil && it.ID == id {
				return it, inst, true
			}
		}
		for _, it := range inst.Equipped {
			if it != nil && it.ID == id {
				return it, inst, true
			}
		}
	}
	return nil, nil, false
}

// RemoveWorldItem takes a loose item out of the world.
func (w *World) RemoveWorldItem(id int64) (*types.Item, bool) {
	for i, it := range w.Items {
		if it.ID == id {
			w.Items = append(w.Items[:i], w.Items[i+1:]...)
			return it, true
		}
	}
	return nil, false
}

// NewID draws an id that no instance or item uses.
func (w *World) NewID() int64 {
	for {
		id := w.Instances.NewID(w.RNG)
		if _, _, taken := w.Item(id); !taken {
			return id
		}
	}
}

// CreateItem instantiates an item from its class template.
func (w *World) CreateItem(class string) (*types.Item, bool) {
	tmpl, ok := w.ItemClasses[class]
	if !ok {
		return nil, false
	}
	item := &types.Item{
		ID:         w.NewID(),
		ClassName:  tmpl.ClassName,
		Name:       tmpl.Name,
		Attributes: map[string]types.Attr{},
	}
	if item.ClassName == "" {
		item.ClassName = class
	}
	if item.Name == "" {
		item.Name = item.ClassName
	}
	for k, v := range tmpl.Attributes {
		item.Attributes[k] = v
	}
	item.Attributes["class_name"] = String(item.ClassName)
	item.Attributes["name"] = String(item.Name)
	if tmpl.Graph != "" {
		if g, ok := w.ItemLogic.Named(tmpl.Graph); ok {
			item.GraphID = g.ID
		}
	}
	return item, true
}

// AddToInventory puts an item into the first free slot of inst.
func (w *World) AddToInventory(inst *types.Instance, item *types.Item) error {
	for i, it := range inst.Inventory {
		if it == nil {
			inst.Inventory[i] = item
			return nil
		}
	}
	if len(inst.Inventory) >= w.Config.World.InventorySlots {
		return ErrInventoryFull
	}
	inst.Inventory = append(inst.Inventory, item)
	return nil
}

// InventorySlot returns the slot holding item id.
func InventorySlot(inst *types.Instance, id int64) (int, bool) {
	for i, it := range inst.Inventory {
		if it != nil && it.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Emit sends an outbound message without blocking. A full or missing
// channel drops the message.
func (w *World) Emit(msg types.RegionMessage) {
	msg.Region = w.Region.ID
	if w.Outbox == nil {
		return
	}
	select {
	case w.Outbox <- msg:
	default:
		w.Logf("world: outbox full, dropped %s message", msg.Kind)
	}
}

// LogMessage sends an in-game log line to the parent process.
func (w *World) LogMessage(text string) {
	w.Emit(types.RegionMessage{Kind: types.MsgLog, Text: text})
}

// Debug records a diagnostic for the current entity while debug mode is on.
func (w *World) Debug(text string, isErr bool) {
	if !w.Config.Engine.Debug {
		return
	}
	w.DebugValues = append(w.DebugValues, types.DebugValue{Entity: w.CurrentEntity, Text: text, Error: isErr})
}

// Logf writes to the engine log, if any.
func (w *World) Logf(format string, args ...any) {
	if w.Log != nil {
		w.Log.Printf(format, args...)
	}
}

// EntityName returns the display name of an instance for log lines.
func (w *World) EntityName(id int64) string {
	if inst, ok := w.Entity(id); ok {
		if a, ok := inst.Attributes["name"]; ok && a.Str != "" {
			return a.Str
		}
		return inst.Name
	}
	return fmt.Sprintf("#%d", id)
}

// MinutesToTicks converts game minutes to a tick offset.
func (w *World) MinutesToTicks(minutes float64) int64 {
	t := float64(w.Config.Engine.TicksPerMinute) * minutes
	switch {
	case math.IsNaN(t):
		return 0
	case t >= math.MaxInt32:
		return math.MaxInt32
	case t <= math.MinInt32:
		return math.MinInt32
	}
	return int64(t)
}

// Blocked reports whether event is suppressed at the current tick.
func (w *World) Blocked(blocked map[string]int64, event string) bool {
	until, ok := blocked[event]
	return ok && until > w.Tick
}

// Distance returns the planar distance between two positions.
func Distance(a, b types.Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PositionOf resolves the position of an entity or item. Items held in an
// inventory take the position of their owner.
func (w *World) PositionOf(id int64) (types.Position, bool) {
	if inst, ok := w.Entity(id); ok {
		if inst.Position == nil {
			return types.Position{}, false
		}
		return *inst.Position, true
	}
	item, owner, ok := w.Item(id)
	if !ok {
		return types.Position{}, false
	}
	if owner != nil && owner.Position != nil {
		return *owner.Position, true
	}
	if item.Position != nil {
		return *item.Position, true
	}
	return types.Position{}, false
}

// ActorPosition is the position of the current item if one is set,
// otherwise of the current entity.
func (w *World) ActorPosition() (types.Position, bool) {
	if w.CurrentItem != 0 {
		return w.PositionOf(w.CurrentItem)
	}
	return w.PositionOf(w.CurrentEntity)
}

