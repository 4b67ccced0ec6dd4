package engine

import (
	"github.com/nathoo/regioncore/engine/instance"
	"github.com/nathoo/regioncore/engine/queue"
	"github.com/nathoo/regioncore/types"
)

// drainQueues runs every deferred event eligible this tick: entity events,
// item events, then the notifications of both.
func (e *Engine) drainQueues() {
	w := e.World
	for _, ev := range w.EntityEvents.Drain(w.Tick) {
		e.dispatchEntity(ev)
	}
	for _, ev := range w.ItemEvents.Drain(w.Tick) {
		e.dispatchItem(ev)
	}
	for _, ev := range w.EntityNotifications.Drain(w.Tick) {
		e.dispatchEntity(ev)
	}
	for _, ev := range w.ItemNotifications.Drain(w.Tick) {
		e.dispatchItem(ev)
	}
}

// dispatchEntity walks the root tree named after the event. A take_damage
// event on a graph without such a tree applies the damage directly.
func (e *Engine) dispatchEntity(ev queue.Event) {
	w := e.World
	inst, ok := w.Entity(ev.Target)
	if !ok || !instance.Live(inst) || w.Blocked(inst.BlockedEvents, ev.Name) {
		return
	}
	tree, ok := w.Behaviors.Tree(inst.GraphID, ev.Name)
	if !ok {
		if ev.Name == "take_damage" {
			e.asEntity(inst.ID, func() {
				e.Bridge.OnHostCall("took_damage", []types.ScriptValue{
					{X: ev.Payload.X}, {X: ev.Payload.Y},
				})
			})
		}
		return
	}
	e.withEvent(ev.Target, ev.Name, ev.Payload, func() {
		e.Walk(types.KindBehavior, inst.GraphID, tree, inst.ID, 0)
	})
}

// dispatchItem walks the item graph tree named after the event with the
// item as the current item and its owner as the current entity.
func (e *Engine) dispatchItem(ev queue.Event) {
	w := e.World
	item, owner, ok := w.Item(ev.Target)
	if !ok || item.GraphID == 0 || w.Blocked(item.BlockedEvents, ev.Name) {
		return
	}
	tree, ok := w.ItemLogic.Tree(item.GraphID, ev.Name)
	if !ok {
		return
	}
	var actor int64
	if owner != nil {
		actor = owner.ID
	}
	prev := w.CurrentItem
	w.CurrentItem = item.ID
	e.withEvent(ev.Target, ev.Name, ev.Payload, func() {
		e.Walk(types.KindItem, item.GraphID, tree, actor, 0)
	})
	w.CurrentItem = prev
}

// withEvent exposes the event being handled to scripts while fn runs.
func (e *Engine) withEvent(target int64, name string, payload types.ScriptValue, fn func()) {
	w := e.World
	prev := w.Event
	w.Event = &queue.Event{Target: target, Name: name, Payload: payload, Eligible: w.Tick}
	fn()
	w.Event = prev
}

func (e *Engine) asEntity(id int64, fn func()) {
	w := e.World
	prevEntity, prevItem := w.CurrentEntity, w.CurrentItem
	w.CurrentEntity, w.CurrentItem = id, 0
	fn()
	w.CurrentEntity, w.CurrentItem = prevEntity, prevItem
}
