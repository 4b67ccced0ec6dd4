package engine

import (
	"math"

	"github.com/nathoo/regioncore/engine/instance"
	"github.com/nathoo/regioncore/engine/queue"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

// integrateMotion advances the motion intent of every live, awake instance
// by one step. Speeds are in cells per tick.
func (e *Engine) integrateMotion() {
	w := e.World
	for _, inst := range w.Instances.All() {
		if !instance.Live(inst) || inst.Position == nil || inst.SleepCycles > 0 {
			continue
		}
		m := &inst.Motion
		switch m.Kind {
		case types.ActionGoto:
			if e.stepToward(inst, m.Target, m.Speed, 0) {
				*m = types.EntityAction{Kind: types.ActionOff}
			}

		case types.ActionCloseIn:
			target, ok := w.Entity(m.TargetID)
			if !ok || !instance.Live(target) || target.Position == nil || target.Position.Region != inst.Position.Region {
				*m = types.EntityAction{Kind: types.ActionOff}
				continue
			}
			e.stepToward(inst, types.Point{X: target.Position.X, Y: target.Position.Y}, m.Speed, m.Radius)

		case types.ActionRandomWalk, types.ActionRandomWalkInSector:
			if !m.Walking {
				m.Target = e.walkTarget(inst)
				m.Walking = true
			}
			if e.stepToward(inst, m.Target, m.Speed, 0) {
				m.Walking = false
				if m.MaxSleep > 0 {
					inst.SleepCycles = int(e.RNG.Int63n(int64(m.MaxSleep) + 1))
				}
			}
		}
	}
}

// stepToward moves inst at most speed toward p, stopping short by keep.
// It reports whether inst is within keep of p afterwards.
func (e *Engine) stepToward(inst *types.Instance, p types.Point, speed, keep float64) bool {
	from := types.Point{X: inst.Position.X, Y: inst.Position.Y}
	dx, dy := p.X-from.X, p.Y-from.Y
	dist := math.Hypot(dx, dy)
	if dist <= keep {
		return true
	}
	if speed <= 0 {
		speed = 1
	}
	travel := math.Min(speed, dist-keep)
	to := types.Point{X: from.X + dx/dist*travel, Y: from.Y + dy/dist*travel}
	e.moveTo(inst, to)
	return dist-travel <= keep+1e-9
}

// moveTo places inst at p, starting a position transition.
func (e *Engine) moveTo(inst *types.Instance, p types.Point) {
	w := e.World
	old := *inst.Position
	inst.OldPosition = &old
	inst.Position = &types.Position{Region: old.Region, X: p.X, Y: p.Y}
	inst.MaxTransitionTime = w.Config.Engine.TransitionTicks
	inst.CurrTransitionTime = 0
	w.CheckSector(inst)
}

// walkTarget picks the next random-walk destination: inside the walk's
// sector, or within Distance of the current position.
func (e *Engine) walkTarget(inst *types.Instance) types.Point {
	w := e.World
	pos := types.Point{X: inst.Position.X, Y: inst.Position.Y}
	if inst.Motion.Kind == types.ActionRandomWalkInSector {
		s, ok := w.Sector(inst.Motion.Sector)
		if !ok {
			s, ok = w.SectorAt(pos)
		}
		if ok {
			return types.Point{X: e.RNG.Range(s.Min.X, s.Max.X), Y: e.RNG.Range(s.Min.Y, s.Max.Y)}
		}
	}
	angle := e.RNG.Range(0, 2*math.Pi)
	d := e.RNG.Range(0, inst.Motion.Distance)
	return types.Point{X: pos.X + math.Cos(angle)*d, Y: pos.Y + math.Sin(angle)*d}
}

// proximityAlerts queues a proximity_warning event for every tracking
// entity or item that has others within its distance. The payload lists
// their ids.
func (e *Engine) proximityAlerts() {
	w := e.World
	for _, inst := range w.Instances.All() {
		if inst.Proximity == nil || inst.Position == nil || !instance.Live(inst) {
			continue
		}
		if near := w.InRadius(*inst.Position, *inst.Proximity, inst.ID); len(near) > 0 {
			w.EntityEvents.Push(w.Tick, queue.Event{Target: inst.ID, Name: "proximity_warning", Payload: world.PackIDs(idsOf(near))})
		}
	}
	for _, item := range w.Items {
		if item.Proximity == nil || item.Position == nil {
			continue
		}
		if near := w.InRadius(*item.Position, *item.Proximity, 0); len(near) > 0 {
			w.ItemEvents.Push(w.Tick, queue.Event{Target: item.ID, Name: "proximity_warning", Payload: world.PackIDs(idsOf(near))})
		}
	}
}

func idsOf(list []*types.Instance) []int64 {
	ids := make([]int64, len(list))
	for i, inst := range list {
		ids[i] = inst.ID
	}
	return ids
}
