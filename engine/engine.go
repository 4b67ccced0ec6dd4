// Package engine provides the Tick orchestrator that wires the graph walker,
// the leaf handlers, the host bridge and the deferred queues into one
// simulation step of a region.
package engine

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/nathoo/regioncore/engine/graph"
	"github.com/nathoo/regioncore/engine/host"
	"github.com/nathoo/regioncore/engine/instance"
	"github.com/nathoo/regioncore/engine/nodes"
	"github.com/nathoo/regioncore/engine/snapshot"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/script"
	"github.com/nathoo/regioncore/types"
)

// Sink receives the trace of every tick.
type Sink interface {
	WriteTick(t types.TickTrace) error
}

// Sinks fans a trace out to several sinks. Every sink sees every trace.
type Sinks []Sink

// WriteTick implements Sink.
func (s Sinks) WriteTick(t types.TickTrace) error {
	var errs []error
	for _, sink := range s {
		if err := sink.WriteTick(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type respawn struct {
	at        int64
	placement types.Placement
}

// Engine holds the world and the walkers that drive it.
type Engine struct {
	World  *world.World
	Bridge *host.Bridge
	RNG    *RNG
	Log    *log.Logger
	Sink   Sink

	walkers   map[types.GraphKind]*graph.Walker[*world.World]
	runner    *script.Runner
	origins   map[int64]types.Placement
	respawns  []respawn
	snapshots map[int64][]byte
}

// New creates an engine for w. It installs itself as the world's executor
// and a sandboxed script runner as its script runner.
func New(w *world.World, logger *log.Logger) *Engine {
	e := &Engine{
		World:     w,
		Bridge:    host.New(w),
		RNG:       NewRNG(w.Config.Engine.Seed),
		Log:       logger,
		origins:   map[int64]types.Placement{},
		snapshots: map[int64][]byte{},
	}
	depth := w.Config.Engine.MaxWalkDepth
	walker := func(kind types.GraphKind, src graph.Source, reg nodes.Registry) *graph.Walker[*world.World] {
		return &graph.Walker[*world.World]{Kind: kind, Source: src, Handlers: reg, MaxDepth: depth, Log: logger}
	}
	e.walkers = map[types.GraphKind]*graph.Walker[*world.World]{
		types.KindBehavior: walker(types.KindBehavior, w.Behaviors, nodes.Behavior()),
		types.KindSystem:   walker(types.KindSystem, w.Systems, nodes.Behavior()),
		types.KindItem:     walker(types.KindItem, w.ItemLogic, nodes.Behavior()),
		types.KindArea:     walker(types.KindArea, w.Areas, nodes.Area()),
		types.KindGame:     walker(types.KindGame, w.Game, nodes.Game()),
	}
	e.walkers[types.KindGame].Prelude = nodes.GamePrelude()

	w.Log = logger
	w.RNG = e.RNG
	w.Exec = e
	e.runner = script.New(w, e.Bridge)
	w.Scripts = e.runner
	return e
}

// Close releases the script runner.
func (e *Engine) Close() {
	e.runner.Close()
}

// Walk runs a tree of the given graph kind on behalf of actor, starting at
// depth. It implements world.Executor.
func (e *Engine) Walk(kind types.GraphKind, graphID, nodeID int, actor int64, depth int) {
	w := e.World
	prev := w.CurrentEntity
	w.CurrentEntity = actor
	e.walkers[kind].Execute(w, graph.Call{Graph: graphID, Node: nodeID, Actor: actor, Depth: depth})
	w.CurrentEntity = prev
}

// Tick advances the simulation by one step. Nothing in a tick fails:
// missing pieces are skipped.
func (e *Engine) Tick() {
	w := e.World

	// 0. Respawns due this tick.
	e.respawnDue()

	// 1. Clear per-tick buffers and outboxes, then run deferred events.
	w.BeginTick()
	for _, inst := range w.Instances.All() {
		inst.Messages = nil
		inst.Audio = nil
	}
	e.drainQueues()

	// 2. Instances in index order, then motion.
	for i := 0; i < w.Instances.Len(); i++ {
		e.tickInstance(w.Instances.At(i))
	}
	e.integrateMotion()
	e.proximityAlerts()

	// 3. Area triggers.
	w.Displacements = map[types.Cell]types.Tile{}
	for i, area := range w.Region.Areas {
		for _, id := range w.Areas.NodesOfType(area.Graph, nodes.AreaTriggers...) {
			e.walkers[types.KindArea].Execute(w, graph.Call{Graph: area.Graph, Node: id, Area: i})
		}
	}

	// 4. Game logic, transfers and snapshots.
	e.snapshots = map[int64][]byte{}
	for _, inst := range w.Instances.All() {
		e.tickPlayer(inst)
	}

	// 5. Hand the trace to the sink and advance.
	if e.Sink != nil {
		trace := types.TickTrace{Region: w.Region.ID, Tick: w.Tick, Fired: w.Trace, Debug: w.DebugValues}
		if err := e.Sink.WriteTick(trace); err != nil {
			e.logf("engine: trace sink: %v", err)
		}
	}
	w.Tick++
}

func (e *Engine) tickInstance(inst *types.Instance) {
	w := e.World
	if inst.MaxTransitionTime > 0 {
		inst.CurrTransitionTime++
		if inst.CurrTransitionTime > inst.MaxTransitionTime {
			inst.CurrTransitionTime = 0
			inst.MaxTransitionTime = 0
			inst.OldPosition = nil
		}
	}

	switch {
	case inst.State == types.StatePurged:
		return
	case inst.SleepCycles > 0:
		inst.SleepCycles--
	case inst.State == types.StateKilled:
	case inst.Category == types.CategoryNPC:
		e.runNPC(inst)
	case inst.Category == types.CategoryPlayer:
		e.runAction(inst)
	}

	if inst.Position != nil && inst.Tile != nil {
		w.Characters[inst.Position.Region] = append(w.Characters[inst.Position.Region], types.CharacterData{
			ID:                 inst.ID,
			Name:               inst.Name,
			Position:           *inst.Position,
			OldPosition:        inst.OldPosition,
			MaxTransitionTime:  inst.MaxTransitionTime,
			CurrTransitionTime: inst.CurrTransitionTime,
			Tile:               *inst.Tile,
		})
	}
}

// runNPC walks the locked tree, or every root tree whose execute mode is 0.
func (e *Engine) runNPC(inst *types.Instance) {
	w := e.World
	if inst.LockedTree != nil {
		e.Walk(types.KindBehavior, inst.GraphID, *inst.LockedTree, inst.ID, 0)
		return
	}
	for _, id := range inst.TreeIDs {
		n, ok := w.Behaviors.Node(inst.GraphID, id)
		if !ok || n.Values["execute"].X != 0 {
			continue
		}
		e.Walk(types.KindBehavior, inst.GraphID, id, inst.ID, 0)
		if !instance.Live(inst) || inst.LockedTree != nil {
			return
		}
	}
}

// runAction walks the tree named after a player's pending verb.
func (e *Engine) runAction(inst *types.Instance) {
	if inst.Action == nil {
		return
	}
	w := e.World
	action := *inst.Action
	inst.Action = nil
	tree, ok := w.Behaviors.Tree(inst.GraphID, action.Verb)
	if !ok {
		e.logf("engine: %s (%d): no tree for action %q", inst.Name, inst.ID, action.Verb)
		return
	}
	e.withEvent(inst.ID, action.Verb, types.ScriptValue{S: action.Direction}, func() {
		e.Walk(types.KindBehavior, inst.GraphID, tree, inst.ID, 0)
	})
}

// tickPlayer hands off instances that moved to another region, then runs
// game logic and builds the snapshot of a live player.
func (e *Engine) tickPlayer(inst *types.Instance) {
	w := e.World
	if inst.State == types.StatePurged {
		return
	}
	if inst.Position != nil && inst.Position.Region != 0 && inst.Position.Region != w.Region.ID {
		e.transfer(inst)
		return
	}
	if inst.Category != types.CategoryPlayer || !instance.Live(inst) {
		return
	}

	if inst.GameLockedTree != nil && w.GameGraph != 0 {
		e.Walk(types.KindGame, w.GameGraph, *inst.GameLockedTree, inst.ID, 0)
	}

	snap := e.buildSnapshot(inst)
	inst.Messages = nil
	inst.Audio = nil
	data, err := snapshot.Encode(snap)
	if err != nil {
		e.logf("engine: snapshot %d: %v", inst.ID, err)
		return
	}
	e.snapshots[inst.ID] = data
}

func (e *Engine) buildSnapshot(inst *types.Instance) types.Snapshot {
	w := e.World
	snap := types.Snapshot{
		ID:                 inst.ID,
		Tick:               w.Tick,
		ScreenSize:         w.Config.World.ScreenSize,
		TileSize:           w.Config.World.TileSize,
		Position:           inst.Position,
		OldPosition:        inst.OldPosition,
		MaxTransitionTime:  inst.MaxTransitionTime,
		CurrTransitionTime: inst.CurrTransitionTime,
		Tile:               inst.Tile,
		Lights:             w.Lights,
		Messages:           inst.Messages,
		Audio:              inst.Audio,
	}

	if inst.NewScreen != "" && inst.NewScreen != inst.CurrScreen {
		snap.Screen = &types.Screen{Name: inst.NewScreen, Content: inst.NewScreenContent}
		inst.CurrScreen = inst.NewScreen
	}

	if !inst.RegionsSent[w.Region.ID] {
		snap.Region = w.Region
		inst.RegionsSent[w.Region.ID] = true
	}

	region := w.Region.ID
	if inst.Position != nil {
		region = inst.Position.Region
	}
	snap.Characters = w.Characters[region]

	cells := make([]types.Cell, 0, len(w.Displacements))
	for c := range w.Displacements {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	for _, c := range cells {
		snap.Displacements = append(snap.Displacements, types.Displacement{Cell: c, Tile: w.Displacements[c]})
	}
	return snap
}

// transfer sends an instance to the region its position names.
func (e *Engine) transfer(inst *types.Instance) {
	e.World.Emit(types.RegionMessage{
		Kind:         types.MsgTransferEntity,
		Entity:       inst.ID,
		Transfer:     world.CloneInstance(inst),
		TargetRegion: inst.Position.Region,
	})
	inst.State = types.StatePurged
}

// Snapshot returns the encoded snapshot of a player from the last tick.
func (e *Engine) Snapshot(id int64) ([]byte, bool) {
	data, ok := e.snapshots[id]
	return data, ok
}

// Snapshots returns every encoded snapshot of the last tick, by player id.
func (e *Engine) Snapshots() map[int64][]byte {
	return e.snapshots
}

// PushAction queues a player verb for the next tick.
func (e *Engine) PushAction(id int64, verb, direction string) error {
	inst, ok := e.World.Entity(id)
	if !ok {
		return fmt.Errorf("no instance %d", id)
	}
	if inst.Category != types.CategoryPlayer {
		return fmt.Errorf("instance %d is not a player", id)
	}
	inst.Action = &types.PlayerAction{Verb: verb, Direction: direction}
	return nil
}

func (e *Engine) logf(format string, args ...any) {
	if e.Log != nil {
		e.Log.Printf(format, args...)
	}
}
