// Package host implements the verb vocabulary a script uses to affect the
// simulation. Every verb acts on behalf of the world's current entity and,
// when set, its current item.
package host

import (
	"math"
	"strconv"
	"strings"

	"github.com/nathoo/regioncore/engine/queue"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

// Bridge dispatches host calls against a world.
type Bridge struct {
	W *world.World
}

// New creates a bridge for w.
func New(w *world.World) *Bridge {
	return &Bridge{W: w}
}

// Verbs lists every verb OnHostCall understands.
var Verbs = []string{
	"action", "intent", "id",
	"get_attr", "set_attr", "toggle_attr", "get_attr_of",
	"goto", "close_in", "random_walk", "random_walk_in_sector",
	"set_proximity_tracking", "teleport",
	"deal_damage", "took_damage",
	"add_item", "take", "drop", "drop_items", "equip",
	"inventory_items", "inventory_items_of", "offer_inventory",
	"message", "debug", "notify_in", "block_events",
	"entities_in_radius", "distance_to", "is_item", "is_entity", "random", "list_get",
}

// OnHostCall runs one verb. The second result is false when the verb
// returns nothing. Missing or malformed arguments make the call a no-op.
func (b *Bridge) OnHostCall(name string, args []types.ScriptValue) (types.ScriptValue, bool) {
	w := b.W
	switch name {
	case "action":
		if s, ok := str(args, 0); ok {
			if inst, ok := w.Current(); ok {
				switch k := types.ActionKind(s); k {
				case types.ActionOff, types.ActionRandomWalk, types.ActionRandomWalkInSector:
					inst.Motion = types.EntityAction{Kind: k, Distance: 1, Speed: 1}
				}
			}
		}

	case "intent":
		if s, ok := str(args, 0); ok {
			if inst, ok := w.Current(); ok {
				inst.Attributes["intent"] = world.String(s)
			}
		}

	case "id":
		return world.Broadcast(float64(w.CurrentEntity)), true

	case "get_attr":
		key, ok := str(args, 0)
		if !ok {
			break
		}
		if attrs, ok := b.actorAttrs(); ok {
			if a, ok := attrs[key]; ok {
				return world.ToScript(a), true
			}
		}

	case "get_attr_of":
		id, ok1 := num(args, 0)
		key, ok2 := str(args, 1)
		if !ok1 || !ok2 {
			break
		}
		if inst, ok := w.Entity(int64(id)); ok {
			if a, ok := inst.Attributes[key]; ok {
				return world.ToScript(a), true
			}
		} else if item, _, ok := w.Item(int64(id)); ok {
			if a, ok := item.Attributes[key]; ok {
				return world.ToScript(a), true
			}
		}

	case "set_attr":
		key, ok := str(args, 0)
		if !ok || len(args) < 2 {
			break
		}
		if w.CurrentItem != 0 {
			item, _, ok := w.Item(w.CurrentItem)
			if !ok {
				break
			}
			a := world.SetAttr(item.Attributes, key, args[1])
			if key == "active" {
				w.ItemEvents.Push(w.Tick, queue.Event{Target: item.ID, Name: "active", Payload: world.Broadcast(a.Num)})
			}
		} else if inst, ok := w.Current(); ok {
			world.SetAttr(inst.Attributes, key, args[1])
		}

	case "toggle_attr":
		key, ok := str(args, 0)
		if !ok {
			break
		}
		if w.CurrentItem != 0 {
			item, _, ok := w.Item(w.CurrentItem)
			if !ok {
				break
			}
			a := world.Toggle(item.Attributes, key)
			if key == "active" {
				w.ItemEvents.Push(w.Tick, queue.Event{Target: item.ID, Name: "active", Payload: world.Broadcast(a.Num)})
			}
		} else if inst, ok := w.Current(); ok {
			world.Toggle(inst.Attributes, key)
		}

	case "random":
		lo, ok1 := num(args, 0)
		hi, ok2 := num(args, 1)
		if !ok1 || !ok2 {
			return world.Broadcast(w.RNG.Float64()), true
		}
		a, z := integer(lo), integer(hi)
		if a > z {
			a, z = z, a
		}
		return world.Broadcast(float64(a + w.RNG.Int63n(z-a+1))), true

	case "notify_in":
		minutes, ok1 := num(args, 0)
		note, ok2 := str(args, 1)
		if !ok1 || !ok2 {
			break
		}
		e := queue.Event{Name: note, Eligible: w.Tick + w.MinutesToTicks(float64(integer(minutes)))}
		if w.CurrentItem != 0 {
			e.Target = w.CurrentItem
			w.ItemNotifications.Push(w.Tick, e)
		} else {
			e.Target = w.CurrentEntity
			w.EntityNotifications.Push(w.Tick, e)
		}

	case "block_events":
		minutes, ok1 := num(args, 0)
		event, ok2 := str(args, 1)
		if !ok1 || !ok2 {
			break
		}
		until := w.Tick + w.MinutesToTicks(minutes)
		if w.CurrentItem != 0 {
			if item, _, ok := w.Item(w.CurrentItem); ok {
				if item.BlockedEvents == nil {
					item.BlockedEvents = map[string]int64{}
				}
				item.BlockedEvents[event] = until
			}
		} else if inst, ok := w.Current(); ok {
			inst.BlockedEvents[event] = until
		}

	case "random_walk", "random_walk_in_sector":
		inst, ok := w.Current()
		if !ok {
			break
		}
		kind := types.ActionRandomWalk
		if name == "random_walk_in_sector" {
			kind = types.ActionRandomWalkInSector
		}
		inst.Motion = types.EntityAction{
			Kind:     kind,
			Distance: numOr(args, 0, 1),
			Speed:    numOr(args, 1, 1),
			MaxSleep: int(max(integer(numOr(args, 2, 0)), 0)),
		}
		if kind == types.ActionRandomWalkInSector {
			inst.Motion.Sector = world.AttrString(inst.Attributes, "sector", "")
		}

	case "set_proximity_tracking":
		on := len(args) > 0 && world.Truthy(args[0])
		distance := numOr(args, 1, 5)
		var track *float64
		if on {
			track = &distance
		}
		if w.CurrentItem != 0 {
			if item, _, ok := w.Item(w.CurrentItem); ok {
				item.Proximity = track
			}
		} else if inst, ok := w.Current(); ok {
			inst.Proximity = track
		}

	case "goto":
		dest, ok := str(args, 0)
		if !ok {
			break
		}
		sector, ok := w.Sector(dest)
		if !ok {
			w.Debug("Unknown Sector", true)
			break
		}
		if inst, ok := w.Current(); ok {
			inst.Motion = types.EntityAction{Kind: types.ActionGoto, Target: world.Center(sector), Speed: numOr(args, 1, 1)}
		}

	case "close_in":
		target, ok1 := num(args, 0)
		radius, ok2 := num(args, 1)
		speed, ok3 := num(args, 2)
		if !ok1 || !ok2 || !ok3 {
			break
		}
		if inst, ok := w.Current(); ok {
			inst.Motion = types.EntityAction{Kind: types.ActionCloseIn, TargetID: int64(target), Radius: radius, Speed: speed}
		}

	case "teleport":
		dest, ok := str(args, 0)
		if !ok {
			break
		}
		region, _ := str(args, 1)
		b.teleport(dest, region)

	case "deal_damage":
		target, ok1 := num(args, 0)
		amount, ok2 := num(args, 1)
		if !ok1 || !ok2 {
			break
		}
		subject := w.CurrentEntity
		if w.CurrentItem != 0 {
			subject = w.CurrentItem
		}
		w.EntityEvents.Push(w.Tick, queue.Event{
			Target:  int64(target),
			Name:    "take_damage",
			Payload: types.ScriptValue{X: float64(subject), Y: float64(integer(amount))},
		})

	case "took_damage":
		from, ok1 := num(args, 0)
		amount, ok2 := num(args, 1)
		if !ok1 || !ok2 {
			break
		}
		b.tookDamage(int64(from), max(integer(amount), 0))

	case "add_item":
		class, ok := str(args, 0)
		if !ok {
			break
		}
		return world.Broadcast(float64(b.addItem(class))), true

	case "take":
		if id, ok := num(args, 0); ok {
			b.take(int64(id))
		}

	case "drop":
		id, ok := num(args, 0)
		if !ok {
			break
		}
		inst, ok := w.Current()
		if !ok {
			break
		}
		if slot, ok := world.InventorySlot(inst, int64(id)); ok {
			b.dropSlot(inst, slot)
		}

	case "drop_items":
		filter, ok := str(args, 0)
		if !ok {
			break
		}
		inst, ok := w.Current()
		if !ok {
			break
		}
		for slot, it := range inst.Inventory {
			if it != nil && matches(it, filter) {
				b.dropSlot(inst, slot)
			}
		}

	case "equip":
		id, ok := num(args, 0)
		if !ok {
			break
		}
		inst, ok := w.Current()
		if !ok {
			break
		}
		slot, ok := world.InventorySlot(inst, int64(id))
		if !ok {
			break
		}
		item := inst.Inventory[slot]
		gear := world.AttrString(item.Attributes, "slot", "")
		if gear == "" {
			break
		}
		inst.Inventory[slot] = inst.Equipped[gear]
		inst.Equipped[gear] = item

	case "inventory_items":
		inst, ok := w.Current()
		if !ok {
			break
		}
		filter, _ := str(args, 0)
		return world.PackIDs(inventoryIDs(inst, filter)), true

	case "inventory_items_of":
		id, ok := num(args, 0)
		if !ok {
			break
		}
		inst, ok := w.Entity(int64(id))
		if !ok {
			break
		}
		filter, _ := str(args, 1)
		return world.PackIDs(inventoryIDs(inst, filter)), true

	case "offer_inventory":
		to, ok1 := num(args, 0)
		filter, ok2 := str(args, 1)
		if !ok1 || !ok2 {
			break
		}
		inst, ok := w.Current()
		if !ok {
			break
		}
		msg := types.RegionMessage{Kind: types.MsgMultipleChoice, Entity: inst.ID, Receiver: int64(to)}
		for _, it := range inst.Inventory {
			if it == nil || !matches(it, filter) {
				continue
			}
			msg.Choices = append(msg.Choices, types.Choice{
				ItemID: it.ID,
				Name:   itemName(it),
				Price:  world.AttrFloat(it.Attributes, "worth", 0),
				Seller: inst.ID,
				Buyer:  int64(to),
			})
		}
		w.Emit(msg)

	case "message":
		receiver, ok1 := num(args, 0)
		text, ok2 := str(args, 1)
		if !ok1 || !ok2 {
			break
		}
		category, _ := str(args, 2)
		b.message(int64(receiver), text, category)
		w.Debug("Ok", false)

	case "debug":
		parts := make([]string, len(args))
		for i, a := range args {
			if a.S != "" {
				parts[i] = a.S
			} else {
				parts[i] = strconv.FormatFloat(a.X, 'f', -1, 64)
			}
		}
		out := strings.Join(parts, " ")
		if inst, ok := w.Current(); ok {
			if n := world.AttrString(inst.Attributes, "name", ""); n != "" {
				out = n + ": " + out
			}
		}
		w.LogMessage(out)

	case "entities_in_radius":
		return world.PackIDs(b.entitiesInRadius(numOr(args, 0, 0.5))), true

	case "distance_to":
		id, ok := num(args, 0)
		if !ok {
			break
		}
		target, ok := w.PositionOf(int64(id))
		if !ok {
			return types.ScriptValue{}, true
		}
		from, ok := w.ActorPosition()
		if !ok {
			return types.ScriptValue{}, true
		}
		return world.Broadcast(world.Distance(from, target)), true

	case "is_item":
		id, ok := num(args, 0)
		if !ok {
			break
		}
		_, _, exists := w.Item(int64(id))
		return boolValue(exists), true

	case "is_entity":
		id, ok := num(args, 0)
		if !ok {
			break
		}
		_, exists := w.Entity(int64(id))
		return boolValue(exists), true

	case "list_get":
		list, ok := str(args, 0)
		if !ok {
			break
		}
		return listGet(list, int(integer(numOr(args, 1, 0)))), true

	default:
		w.Logf("host: unknown verb %q", name)
	}
	return types.ScriptValue{}, false
}

// actorAttrs returns the attributes of the current item, or of the current
// entity when no item is set.
func (b *Bridge) actorAttrs() (map[string]types.Attr, bool) {
	if b.W.CurrentItem != 0 {
		item, _, ok := b.W.Item(b.W.CurrentItem)
		if !ok {
			return nil, false
		}
		return item.Attributes, true
	}
	inst, ok := b.W.Current()
	if !ok {
		return nil, false
	}
	return inst.Attributes, true
}

// message sends a chat message to the parent process and delivers it to a
// local receiver.
func (b *Bridge) message(receiver int64, text, category string) {
	w := b.W
	msg := types.RegionMessage{
		Kind:     types.MsgMessage,
		Entity:   w.CurrentEntity,
		Item:     w.CurrentItem,
		Receiver: receiver,
		Text:     text,
		Category: category,
	}
	if w.CurrentItem != 0 {
		msg.Entity = 0
	}
	w.Emit(msg)
	if inst, ok := w.Entity(receiver); ok {
		from := ""
		if msg.Entity != 0 {
			from = w.EntityName(msg.Entity)
		}
		inst.Messages = append(inst.Messages, types.MessageData{Type: messageType(category), Text: text, From: from})
	}
}

func messageType(category string) types.MessageType {
	switch types.MessageType(category) {
	case types.MessageSay, types.MessageYell, types.MessageTell, types.MessageDebug:
		return types.MessageType(category)
	}
	return types.MessageStatus
}

func (b *Bridge) entitiesInRadius(radius float64) []int64 {
	w := b.W
	radius = math.Max(radius, 0)
	exclude := int64(0)
	var pos types.Position
	if w.CurrentItem != 0 {
		item, _, ok := w.Item(w.CurrentItem)
		if !ok {
			return nil
		}
		radius = math.Max(radius, world.AttrFloat(item.Attributes, "radius", radius))
		if pos, ok = w.PositionOf(item.ID); !ok {
			return nil
		}
	} else {
		inst, ok := w.Current()
		if !ok || inst.Position == nil {
			return nil
		}
		radius = math.Max(radius, world.AttrFloat(inst.Attributes, "radius", radius))
		pos = *inst.Position
		exclude = inst.ID
	}

	var ids []int64
	for _, other := range w.Instances.All() {
		if other.ID == exclude || other.Position == nil || other.Position.Region != pos.Region {
			continue
		}
		combined := radius + world.AttrFloat(other.Attributes, "radius", 0.5)
		if world.Distance(pos, *other.Position) < combined {
			ids = append(ids, other.ID)
		}
	}
	return ids
}

func inventoryIDs(inst *types.Instance, filter string) []int64 {
	var ids []int64
	for _, it := range inst.Inventory {
		if it != nil && matches(it, filter) {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// matches reports whether an item's name or class contains filter. An
// empty filter matches everything.
func matches(it *types.Item, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(itemName(it), filter) ||
		strings.Contains(world.AttrString(it.Attributes, "class_name", it.ClassName), filter)
}

func itemName(it *types.Item) string {
	if n := world.AttrString(it.Attributes, "name", ""); n != "" {
		return n
	}
	if it.Name != "" {
		return it.Name
	}
	return "Unknown"
}

// dropSlot moves an inventory item to the owner's position in the world.
func (b *Bridge) dropSlot(inst *types.Instance, slot int) {
	item := inst.Inventory[slot]
	inst.Inventory[slot] = nil
	if inst.Position != nil {
		p := *inst.Position
		item.Position = &p
	}
	b.W.Items = append(b.W.Items, item)
}

func listGet(list string, idx int) types.ScriptValue {
	var parts []string
	for _, p := range strings.Split(list, ",") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return types.ScriptValue{}
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(parts) {
		idx = len(parts) - 1
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(parts[idx]), 64)
	if err != nil {
		return types.ScriptValue{}
	}
	return world.Broadcast(f)
}

func boolValue(b bool) types.ScriptValue {
	if b {
		return world.Broadcast(1)
	}
	return world.Broadcast(0)
}

// num reads a numeric argument. NaN and infinities count as missing.
func num(args []types.ScriptValue, i int) (float64, bool) {
	if i >= len(args) {
		return 0, false
	}
	f := args[i].X
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// integer truncates f into the int32 range scripts work in.
func integer(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int64(f)
}

func numOr(args []types.ScriptValue, i int, def float64) float64 {
	if f, ok := num(args, i); ok {
		return f
	}
	return def
}

// str reads a string argument. A value with only numbers set is not a
// string, except the zero value, which is the empty string.
func str(args []types.ScriptValue, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	a := args[i]
	if a.S != "" || a == (types.ScriptValue{}) {
		return a.S, true
	}
	return "", false
}
