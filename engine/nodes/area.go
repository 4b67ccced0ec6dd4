package nodes

import (
	"github.com/nathoo/regioncore/engine/graph"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

func insideArea(w *world.World, call graph.Call, node types.Node) types.Connector {
	if len(w.Members(call.Area)) > 0 {
		return types.Right
	}
	return types.Fail
}

// enterArea fires when someone is inside now who was not last tick. With
// character set it only fires when the area was empty last tick.
func enterArea(w *world.World, call graph.Call, node types.Node) types.Connector {
	now, prev := w.Members(call.Area), w.PrevMembers(call.Area)
	if num(node, "character", 0) == 1 {
		if len(prev) == 0 && len(now) > 0 {
			return types.Right
		}
		return types.Fail
	}
	if len(difference(now, prev)) > 0 {
		return types.Right
	}
	return types.Fail
}

func leaveArea(w *world.World, call graph.Call, node types.Node) types.Connector {
	now, prev := w.Members(call.Area), w.PrevMembers(call.Area)
	if num(node, "character", 0) == 1 {
		if len(prev) > 0 && len(now) == 0 {
			return types.Right
		}
		return types.Fail
	}
	if len(difference(prev, now)) > 0 {
		return types.Right
	}
	return types.Fail
}

func always(w *world.World, call graph.Call, node types.Node) types.Connector {
	return types.Right
}

func messageArea(w *world.World, call graph.Call, node types.Node) types.Connector {
	msg := types.MessageData{
		Type: messageType(num(node, "type", 0)),
		Text: value(node, "text").S,
	}
	for _, id := range w.Members(call.Area) {
		if inst, ok := w.Entity(id); ok {
			inst.Messages = append(inst.Messages, msg)
		}
	}
	return types.Fail
}

func audioArea(w *world.World, call graph.Call, node types.Node) types.Connector {
	cue := value(node, "audio").S
	if cue == "" {
		return types.Fail
	}
	for _, id := range w.Members(call.Area) {
		if inst, ok := w.Entity(id); ok {
			inst.Audio = append(inst.Audio, cue)
		}
	}
	return types.Fail
}

func teleportArea(w *world.World, call graph.Call, node types.Node) types.Connector {
	dest := value(node, "destination")
	region := int(num(node, "region", 0))
	if region == 0 {
		region = w.Region.ID
	}
	for _, id := range w.Members(call.Area) {
		inst, ok := w.Entity(id)
		if !ok {
			continue
		}
		old := *inst.Position
		inst.OldPosition = &old
		inst.Position = &types.Position{Region: region, X: dest.X, Y: dest.Y}
		inst.Motion = types.EntityAction{Kind: types.ActionOff}
		if region == w.Region.ID {
			w.CheckSector(inst)
		}
	}
	return types.Fail
}

func lightArea(w *world.World, call graph.Call, node types.Node) types.Connector {
	if call.Area < 0 || call.Area >= len(w.Region.Areas) {
		return types.Bottom
	}
	intensity := num(node, "light", 1)
	rng := num(node, "range", 1)
	for _, c := range w.Region.Areas[call.Area].Cells {
		w.Lights = append(w.Lights, types.Light{
			X: float64(c.X), Y: float64(c.Y), Intensity: intensity, Range: rng,
		})
	}
	return types.Bottom
}

func displaceTiles(w *world.World, call graph.Call, node types.Node) types.Connector {
	if call.Area < 0 || call.Area >= len(w.Region.Areas) {
		return types.Bottom
	}
	v := value(node, "tile")
	tile := types.Tile{Tilemap: int(v.X), X: int(v.Y), Y: int(v.Z)}
	for _, c := range w.Region.Areas[call.Area].Cells {
		w.Displacements[c] = tile
	}
	return types.Bottom
}

// difference returns the ids of a that are not in b.
func difference(a, b []int64) []int64 {
	seen := make(map[int64]bool, len(b))
	for _, id := range b {
		seen[id] = true
	}
	var out []int64
	for _, id := range a {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}
