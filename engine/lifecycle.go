package engine

import (
	"fmt"

	"github.com/nathoo/regioncore/engine/graph"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

// Bootstrap creates one NPC per placement and the singleton game-logic
// instance, then runs every startup tree once.
func (e *Engine) Bootstrap(placements []types.Placement) error {
	w := e.World
	var spawned []*types.Instance
	for _, p := range placements {
		inst, err := e.Spawn(p)
		if err != nil {
			return err
		}
		spawned = append(spawned, inst)
	}

	if w.GameGraph != 0 {
		game := &types.Instance{
			ID:       w.NewID(),
			Name:     "Game",
			Category: types.CategoryGame,
			GraphID:  w.GameGraph,
			TreeIDs:  w.Game.Roots(w.GameGraph),
		}
		if err := w.Instances.Add(game); err != nil {
			return err
		}
		if tree, ok := startupTree(w.Game, w.GameGraph); ok {
			e.Walk(types.KindGame, w.GameGraph, tree, game.ID, 0)
		}
	}

	for _, inst := range spawned {
		if tree, ok := startupTree(w.Behaviors, inst.GraphID); ok {
			e.Walk(types.KindBehavior, inst.GraphID, tree, inst.ID, 0)
		}
	}
	return nil
}

// Spawn creates an NPC instance from a placement.
func (e *Engine) Spawn(p types.Placement) (*types.Instance, error) {
	w := e.World
	g, ok := w.Behaviors.Named(p.Graph)
	if !ok {
		return nil, fmt.Errorf("placement %q: unknown behavior graph %q", p.Name, p.Graph)
	}
	inst := newInstance(w, g, p.Name, types.CategoryNPC, p.Position)
	if p.Tile != nil {
		tile := *p.Tile
		inst.Tile = &tile
	}
	for k, v := range p.Attrs {
		inst.Attributes[k] = v
	}
	if err := w.Instances.Add(inst); err != nil {
		return nil, err
	}
	w.CheckSector(inst)
	e.origins[inst.ID] = p
	return inst, nil
}

// JoinPlayer instantiates a behavior graph as a player at pos. An empty
// graph name selects the configured player graph. The player's startup
// tree runs and game logic starts at its startup tree, if any.
func (e *Engine) JoinPlayer(name, graphName string, pos types.Position) (*types.Instance, error) {
	w := e.World
	if graphName == "" {
		graphName = w.Config.World.PlayerGraph
	}
	g, ok := w.Behaviors.Named(graphName)
	if !ok {
		return nil, fmt.Errorf("join %q: unknown behavior graph %q", name, graphName)
	}
	if pos.Region == 0 {
		pos.Region = w.Region.ID
	}
	inst := newInstance(w, g, name, types.CategoryPlayer, pos)
	inst.Tile = &types.Tile{}
	if err := w.Instances.Add(inst); err != nil {
		return nil, err
	}
	w.CheckSector(inst)

	if w.GameGraph != 0 {
		if tree, ok := startupTree(w.Game, w.GameGraph); ok {
			inst.GameLockedTree = &tree
		} else if roots := w.Game.Roots(w.GameGraph); len(roots) > 0 {
			inst.GameLockedTree = &roots[0]
		}
	}
	if tree, ok := startupTree(w.Behaviors, inst.GraphID); ok {
		e.Walk(types.KindBehavior, inst.GraphID, tree, inst.ID, 0)
	}
	return inst, nil
}

// ScheduleRespawn re-creates a spawned NPC from its placement after the
// given number of ticks.
func (e *Engine) ScheduleRespawn(inst *types.Instance, afterTicks int64) bool {
	p, ok := e.origins[inst.ID]
	if !ok {
		return false
	}
	if afterTicks < 1 {
		afterTicks = 1
	}
	e.respawns = append(e.respawns, respawn{at: e.World.Tick + afterTicks, placement: p})
	return true
}

func (e *Engine) respawnDue() {
	var waiting []respawn
	for _, r := range e.respawns {
		if r.at > e.World.Tick {
			waiting = append(waiting, r)
			continue
		}
		if _, err := e.Spawn(r.placement); err != nil {
			e.logf("engine: respawn: %v", err)
		}
	}
	e.respawns = waiting
}

func newInstance(w *world.World, g *types.Graph, name string, cat types.Category, pos types.Position) *types.Instance {
	inst := &types.Instance{
		ID:         w.NewID(),
		Name:       name,
		Category:   cat,
		GraphID:    g.ID,
		TreeIDs:    w.Behaviors.Roots(g.ID),
		Position:   &pos,
		Attributes: map[string]types.Attr{"name": world.String(name)},
	}
	if name == "" {
		inst.Name = g.Name
		inst.Attributes["name"] = world.String(g.Name)
	}
	return inst
}

// startupTree finds the tree named "startup" that is marked to run on
// demand (execute = 1).
func startupTree(store graph.Store, graphID int) (int, bool) {
	id, ok := store.Tree(graphID, "startup")
	if !ok {
		return 0, false
	}
	n, _ := store.Node(graphID, id)
	return id, n.Values["execute"].X == 1
}
