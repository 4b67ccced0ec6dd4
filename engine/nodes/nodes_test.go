package nodes

import (
	"testing"

	"github.com/nathoo/regioncore/config"
	"github.com/nathoo/regioncore/engine/graph"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

// walkRecorder is an Executor that records cross-graph walks.
type walkRecorder struct {
	walks []graph.Call
}

func (r *walkRecorder) Walk(kind types.GraphKind, graphID, nodeID int, actor int64, depth int) {
	r.walks = append(r.walks, graph.Call{Kind: kind, Graph: graphID, Node: nodeID, Actor: actor, Depth: depth})
}

func testWorld(t *testing.T) *world.World {
	t.Helper()
	region := &types.Region{
		ID: 1,
		Areas: []types.Area{
			{ID: 1, Name: "Gate", Cells: []types.Cell{{X: 5, Y: 5}, {X: 6, Y: 5}}},
		},
	}
	w := world.New(config.Default(), region, nil)
	w.Behaviors.Add(&types.Graph{ID: 10, Name: "Guard", Nodes: map[int]types.Node{
		1: {ID: 1, Type: types.NodeBehaviorTree, Name: "idle"},
		2: {ID: 2, Type: types.NodeBehaviorTree, Name: "alert"},
	}})
	w.Systems.Add(&types.Graph{ID: 20, Name: "Combat", Nodes: map[int]types.Node{
		7: {ID: 7, Type: types.NodeBehaviorTree, Name: "attack"},
	}})
	w.Game.Add(&types.Graph{ID: 30, Name: "Game", Nodes: map[int]types.Node{
		1: {ID: 1, Type: types.NodeBehaviorTree, Name: "title"},
	}})
	return w
}

func add(t *testing.T, w *world.World, id int64, cat types.Category, x, y float64) *types.Instance {
	t.Helper()
	inst := &types.Instance{
		ID:       id,
		Name:     "inst",
		Category: cat,
		GraphID:  10,
		Position: &types.Position{Region: 1, X: x, Y: y},
	}
	if err := w.Instances.Add(inst); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return inst
}

func node(t types.NodeType, values map[string]types.Value) types.Node {
	return types.Node{ID: 99, Type: t, Name: string(t), Values: values}
}

func TestAreaTriggers_EnterVersusInside(t *testing.T) {
	w := testWorld(t)
	inst := add(t, w, 1, types.CategoryNPC, 5.5, 5.5)
	call := graph.Call{Kind: types.KindArea, Area: 0}
	enter := node(types.NodeEnterArea, nil)
	inside := node(types.NodeInsideArea, nil)
	leave := node(types.NodeLeaveArea, nil)

	// Tick 1: just arrived.
	w.BeginTick()
	if c := enterArea(w, call, enter); c != types.Right {
		t.Errorf("tick 1 EnterArea = %s, want Right", c)
	}
	if c := insideArea(w, call, inside); c != types.Right {
		t.Errorf("tick 1 InsideArea = %s, want Right", c)
	}

	// Tick 2: still there. Inside fires, Enter does not.
	w.BeginTick()
	if c := enterArea(w, call, enter); c != types.Fail {
		t.Errorf("tick 2 EnterArea = %s, want Fail", c)
	}
	if c := insideArea(w, call, inside); c != types.Right {
		t.Errorf("tick 2 InsideArea = %s, want Right", c)
	}
	if c := leaveArea(w, call, leave); c != types.Fail {
		t.Errorf("tick 2 LeaveArea = %s, want Fail", c)
	}

	// Tick 3: moved away.
	inst.Position.X = 9
	w.BeginTick()
	if c := leaveArea(w, call, leave); c != types.Right {
		t.Errorf("tick 3 LeaveArea = %s, want Right", c)
	}
	if c := insideArea(w, call, inside); c != types.Fail {
		t.Errorf("tick 3 InsideArea = %s, want Fail", c)
	}
}

func TestEnterArea_CharacterMode(t *testing.T) {
	w := testWorld(t)
	add(t, w, 1, types.CategoryNPC, 5.5, 5.5)
	call := graph.Call{Kind: types.KindArea, Area: 0}
	w.BeginTick()
	w.Members(0)

	add(t, w, 2, types.CategoryNPC, 6.2, 5.1)
	w.BeginTick()
	plain := node(types.NodeEnterArea, nil)
	first := node(types.NodeEnterArea, map[string]types.Value{"character": {X: 1}})
	if c := enterArea(w, call, plain); c != types.Right {
		t.Errorf("EnterArea = %s, want Right for the newcomer", c)
	}
	if c := enterArea(w, call, first); c != types.Fail {
		t.Errorf("EnterArea(character) = %s, want Fail when the area was occupied", c)
	}
}

func TestAreaActions(t *testing.T) {
	w := testWorld(t)
	inst := add(t, w, 1, types.CategoryPlayer, 5.5, 5.5)
	call := graph.Call{Kind: types.KindArea, Area: 0}
	w.BeginTick()

	messageArea(w, call, node(types.NodeMessageArea, map[string]types.Value{"text": {S: "A cold wind."}}))
	audioArea(w, call, node(types.NodeAudioArea, map[string]types.Value{"audio": {S: "wind"}}))
	if len(inst.Messages) != 1 || inst.Messages[0].Text != "A cold wind." {
		t.Errorf("Messages = %+v", inst.Messages)
	}
	if len(inst.Audio) != 1 || inst.Audio[0] != "wind" {
		t.Errorf("Audio = %v", inst.Audio)
	}

	displaceTiles(w, call, node(types.NodeDisplaceTiles, map[string]types.Value{"tile": {X: 2, Y: 3, Z: 4}}))
	if got := w.Displacements[types.Cell{X: 6, Y: 5}]; got != (types.Tile{Tilemap: 2, X: 3, Y: 4}) {
		t.Errorf("displacement = %+v", got)
	}

	lightArea(w, call, node(types.NodeLightArea, map[string]types.Value{"light": {X: 0.8}}))
	if len(w.Lights) != 2 || w.Lights[0].Intensity != 0.8 {
		t.Errorf("Lights = %+v", w.Lights)
	}

	teleportArea(w, call, node(types.NodeTeleportArea, map[string]types.Value{
		"destination": {X: 1, Y: 2},
		"region":      {X: 3},
	}))
	if inst.Position.Region != 3 || inst.Position.X != 1 || inst.OldPosition == nil {
		t.Errorf("Position = %+v, Old = %+v", inst.Position, inst.OldPosition)
	}
}

func TestLockAndUnlockTree(t *testing.T) {
	w := testWorld(t)
	inst := add(t, w, 1, types.CategoryNPC, 0, 0)
	call := graph.Call{Kind: types.KindBehavior, Graph: 10, Actor: 1}

	if c := lockTree(w, call, node(types.NodeLockTree, map[string]types.Value{"tree": {S: "alert"}})); c != types.Bottom {
		t.Errorf("LockTree = %s", c)
	}
	if inst.LockedTree == nil || *inst.LockedTree != 2 {
		t.Fatalf("LockedTree = %v, want 2", inst.LockedTree)
	}
	if c := lockTree(w, call, node(types.NodeLockTree, map[string]types.Value{"tree": {S: "nope"}})); c != types.Fail {
		t.Errorf("LockTree(unknown) = %s, want Fail", c)
	}
	unlockTree(w, call, node(types.NodeUnlockTree, nil))
	if inst.LockedTree != nil {
		t.Error("UnlockTree should clear the lock")
	}

	game := graph.Call{Kind: types.KindGame, Graph: 30, Actor: 1}
	lockTree(w, game, node(types.NodeLockTree, map[string]types.Value{"tree": {S: "title"}}))
	if inst.GameLockedTree == nil || *inst.GameLockedTree != 1 || inst.LockedTree != nil {
		t.Errorf("game lock = %v, behavior lock = %v", inst.GameLockedTree, inst.LockedTree)
	}
}

func TestStateNodes(t *testing.T) {
	w := testWorld(t)
	inst := add(t, w, 1, types.CategoryNPC, 0, 0)
	call := graph.Call{Kind: types.KindBehavior, Graph: 10, Actor: 1}
	killed := map[string]types.Value{"state": {X: 1}}

	if c := queryState(w, call, node(types.NodeQueryState, killed)); c != types.Fail {
		t.Errorf("QueryState(killed) = %s, want Fail", c)
	}
	setState(w, call, node(types.NodeSetState, killed))
	if inst.State != types.StateKilled {
		t.Errorf("State = %s, want killed", inst.State)
	}
	if c := queryState(w, call, node(types.NodeQueryState, killed)); c != types.Bottom {
		t.Errorf("QueryState(killed) = %s, want Bottom", c)
	}
}

func TestLookoutAndCloseIn(t *testing.T) {
	w := testWorld(t)
	guard := add(t, w, 1, types.CategoryNPC, 0, 0)
	add(t, w, 2, types.CategoryNPC, 1, 0)
	add(t, w, 3, types.CategoryPlayer, 4, 0)
	call := graph.Call{Kind: types.KindBehavior, Graph: 10, Actor: 1}

	if c := lookout(w, call, node(types.NodeLookout, map[string]types.Value{"radius": {X: 3}})); c != types.Fail {
		t.Errorf("Lookout(3) = %s, want Fail", c)
	}
	if c := lookout(w, call, node(types.NodeLookout, map[string]types.Value{"radius": {X: 5}})); c != types.Right {
		t.Fatalf("Lookout(5) = %s, want Right", c)
	}
	if id, _ := world.AttrInt(guard.Attributes, "target"); id != 3 {
		t.Errorf("target = %d, want 3", id)
	}

	c := closeIn(w, call, node(types.NodeCloseIn, map[string]types.Value{"radius": {X: 1}, "speed": {X: 2}}))
	if c != types.Bottom || guard.Motion.Kind != types.ActionCloseIn || guard.Motion.TargetID != 3 {
		t.Errorf("CloseIn = %s, motion %+v", c, guard.Motion)
	}
	if c := closeIn(w, call, node(types.NodeCloseIn, map[string]types.Value{"radius": {X: 4}})); c != types.Right {
		t.Errorf("CloseIn within radius = %s, want Right", c)
	}
}

func TestPathfinder(t *testing.T) {
	w := testWorld(t)
	inst := add(t, w, 1, types.CategoryNPC, 0, 0)
	call := graph.Call{Kind: types.KindBehavior, Graph: 10, Actor: 1}
	n := node(types.NodePathfinder, map[string]types.Value{"destination": {X: 4, Y: 0}})
	if c := pathfinder(w, call, n); c != types.Bottom {
		t.Errorf("Pathfinder = %s, want Bottom", c)
	}
	if inst.Motion.Kind != types.ActionGoto || inst.Motion.Target.X != 4 {
		t.Errorf("Motion = %+v", inst.Motion)
	}
	inst.Position.X = 3.8
	if c := pathfinder(w, call, n); c != types.Right {
		t.Errorf("Pathfinder on arrival = %s, want Right", c)
	}
}

func TestMessage_SayReachesNearbyPlayers(t *testing.T) {
	w := testWorld(t)
	speaker := add(t, w, 1, types.CategoryNPC, 0, 0)
	near := add(t, w, 2, types.CategoryPlayer, 2, 0)
	far := add(t, w, 3, types.CategoryPlayer, 20, 0)
	call := graph.Call{Kind: types.KindBehavior, Graph: 10, Actor: 1}
	message(w, call, node(types.NodeMessage, map[string]types.Value{"text": {S: "Halt!"}, "type": {X: 1}}))

	if len(speaker.Messages) != 1 || speaker.Messages[0].Type != types.MessageSay {
		t.Errorf("speaker messages = %+v", speaker.Messages)
	}
	if len(near.Messages) != 1 {
		t.Errorf("near player should hear the message")
	}
	if len(far.Messages) != 0 {
		t.Errorf("far player should not hear the message")
	}
}

func TestCallSystemAndBehavior(t *testing.T) {
	w := testWorld(t)
	add(t, w, 1, types.CategoryNPC, 0, 0)
	rec := &walkRecorder{}
	w.Exec = rec
	call := graph.Call{Kind: types.KindBehavior, Graph: 10, Actor: 1, Depth: 3}

	if c := callSystem(w, call, node(types.NodeCallSystem, map[string]types.Value{
		"system": {S: "Combat"}, "tree": {S: "attack"},
	})); c != types.Bottom {
		t.Errorf("CallSystem = %s", c)
	}
	if c := callSystem(w, call, node(types.NodeCallSystem, map[string]types.Value{
		"system": {S: "Combat"}, "tree": {S: "flee"},
	})); c != types.Fail {
		t.Errorf("CallSystem(missing tree) = %s, want Fail", c)
	}
	if c := callBehavior(w, call, node(types.NodeCallBehavior, map[string]types.Value{"tree": {S: "alert"}})); c != types.Bottom {
		t.Errorf("CallBehavior = %s", c)
	}
	if len(rec.walks) != 2 {
		t.Fatalf("walks = %+v", rec.walks)
	}
	if rec.walks[0].Kind != types.KindSystem || rec.walks[0].Graph != 20 || rec.walks[0].Node != 7 {
		t.Errorf("walks[0] = %+v", rec.walks[0])
	}
	if rec.walks[1].Kind != types.KindBehavior || rec.walks[1].Node != 2 {
		t.Errorf("walks[1] = %+v", rec.walks[1])
	}
	for i, walk := range rec.walks {
		if walk.Depth != call.Depth+1 {
			t.Errorf("walks[%d].Depth = %d, want %d", i, walk.Depth, call.Depth+1)
		}
	}
}

func TestScreenPrelude(t *testing.T) {
	w := testWorld(t)
	inst := add(t, w, 1, types.CategoryPlayer, 0, 0)
	n := types.Node{ID: 4, Type: types.NodeScreen, Name: "Inventory", Values: map[string]types.Value{"script": {S: "draw()"}}}
	screen(w, graph.Call{Kind: types.KindGame, Graph: 30, Actor: 1}, n)
	if inst.NewScreen != "Inventory" || inst.NewScreenContent != "draw()" {
		t.Errorf("NewScreen = %q, content %q", inst.NewScreen, inst.NewScreenContent)
	}
	if !GamePrelude()[types.NodeScreen] {
		t.Error("Screen should be a prelude type")
	}
}

func TestExpressionWithoutScriptsFails(t *testing.T) {
	w := testWorld(t)
	add(t, w, 1, types.CategoryNPC, 0, 0)
	call := graph.Call{Kind: types.KindBehavior, Graph: 10, Actor: 1}
	if c := expression(w, call, node(types.NodeExpression, nil)); c != types.Fail {
		t.Errorf("Expression = %s, want Fail", c)
	}
	if c := script(w, call, node(types.NodeScript, nil)); c != types.Bottom {
		t.Errorf("Script = %s, want Bottom", c)
	}
}
