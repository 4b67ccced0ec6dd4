package world

import (
	"math"
	"sort"

	"github.com/nathoo/regioncore/engine/instance"
	"github.com/nathoo/regioncore/engine/queue"
	"github.com/nathoo/regioncore/types"
)

// CellOf returns the grid cell containing a position.
func CellOf(p types.Position) types.Cell {
	return types.Cell{X: int(math.Floor(p.X)), Y: int(math.Floor(p.Y))}
}

// Members returns the ids of normal-state instances inside area index i
// this tick, in instance order. Computed once per tick on first use.
func (w *World) Members(i int) []int64 {
	if ids, ok := w.members[i]; ok {
		return ids
	}
	if i < 0 || i >= len(w.Region.Areas) {
		return nil
	}
	cells := w.areaCells(i)
	var ids []int64
	for _, inst := range w.Instances.All() {
		if inst.State != types.StateNormal || inst.Position == nil {
			continue
		}
		if inst.Position.Region != w.Region.ID {
			continue
		}
		if cells[CellOf(*inst.Position)] {
			ids = append(ids, inst.ID)
		}
	}
	w.members[i] = ids
	return ids
}

// PrevMembers returns the membership of area i as of the previous tick.
func (w *World) PrevMembers(i int) []int64 {
	return w.prevMembers[i]
}

func (w *World) areaCells(i int) map[types.Cell]bool {
	if len(w.cells) != len(w.Region.Areas) {
		w.cells = make([]map[types.Cell]bool, len(w.Region.Areas))
	}
	if w.cells[i] == nil {
		set := map[types.Cell]bool{}
		for _, c := range w.Region.Areas[i].Cells {
			set[c] = true
		}
		w.cells[i] = set
	}
	return w.cells[i]
}

// Sector returns the sector with the given name.
func (w *World) Sector(name string) (types.Sector, bool) {
	for _, s := range w.Region.Sectors {
		if s.Name == name {
			return s, true
		}
	}
	return types.Sector{}, false
}

// SectorAt returns the first sector containing p.
func (w *World) SectorAt(p types.Point) (types.Sector, bool) {
	for _, s := range w.Region.Sectors {
		if p.X >= s.Min.X && p.X <= s.Max.X && p.Y >= s.Min.Y && p.Y <= s.Max.Y {
			return s, true
		}
	}
	return types.Sector{}, false
}

// Center returns the midpoint of a sector.
func Center(s types.Sector) types.Point {
	return types.Point{X: (s.Min.X + s.Max.X) / 2, Y: (s.Min.Y + s.Max.Y) / 2}
}

// CheckSector compares the sector under an entity with its "sector"
// attribute and queues "left" and "entered" events on a change.
func (w *World) CheckSector(inst *types.Instance) {
	if inst.Position == nil {
		return
	}
	prev := AttrString(inst.Attributes, "sector", "")
	cur := ""
	if s, ok := w.SectorAt(types.Point{X: inst.Position.X, Y: inst.Position.Y}); ok {
		cur = s.Name
	}
	if cur == prev {
		return
	}
	if prev != "" {
		w.EntityEvents.Push(w.Tick, eventFor(inst.ID, "left", prev))
	}
	if cur != "" {
		w.EntityEvents.Push(w.Tick, eventFor(inst.ID, "entered", cur))
	}
	inst.Attributes["sector"] = String(cur)
}

// InRadius returns the live instances, other than exclude, whose distance
// to p is below radius, nearest first.
func (w *World) InRadius(p types.Position, radius float64, exclude int64) []*types.Instance {
	type hit struct {
		inst *types.Instance
		d    float64
	}
	var hits []hit
	for _, inst := range w.Instances.All() {
		if inst.ID == exclude || inst.Position == nil || !instance.Live(inst) {
			continue
		}
		if inst.Position.Region != p.Region {
			continue
		}
		if d := Distance(p, *inst.Position); d < radius {
			hits = append(hits, hit{inst, d})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].d < hits[b].d })
	out := make([]*types.Instance, len(hits))
	for i, h := range hits {
		out[i] = h.inst
	}
	return out
}

func eventFor(target int64, name, arg string) queue.Event {
	return queue.Event{Target: target, Name: name, Payload: types.ScriptValue{S: arg}}
}
