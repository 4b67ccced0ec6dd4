package host

import (
	"fmt"
	"strings"

	"github.com/nathoo/regioncore/engine/queue"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

var (
	pairItems = []string{"trousers", "pants", "gloves", "boots", "scissors"}
	massItems = []string{"armor", "cloth", "water", "meat"}
)

// article picks the article used when naming a taken item.
func article(name string) string {
	lower := strings.ToLower(name)
	for _, p := range pairItems {
		if lower == p {
			return "a pair of"
		}
	}
	for _, m := range massItems {
		if lower == m {
			return "some"
		}
	}
	if lower != "" && strings.ContainsRune("aeiou", rune(lower[0])) {
		return "an"
	}
	return "a"
}

// take moves a non-static world item into the current entity's inventory.
// Monetary items become currency instead.
func (b *Bridge) take(id int64) {
	w := b.W
	inst, ok := w.Current()
	if !ok {
		return
	}
	var item *types.Item
	for _, it := range w.Items {
		if it.ID == id && !world.AttrBool(it.Attributes, "static", false) {
			item = it
			break
		}
	}
	if item == nil {
		w.Debug("Unknown Item", true)
		return
	}

	name := strings.ToLower(itemName(item))
	text := fmt.Sprintf("You take %s %s", article(name), name)
	if world.AttrBool(item.Attributes, "monetary", false) {
		if amount, _ := world.AttrInt(item.Attributes, "worth"); amount > 0 {
			text = fmt.Sprintf("You take %d gold.", amount)
			inst.Currency += amount
		}
	} else if err := w.AddToInventory(inst, item); err != nil {
		w.Logf("host: take: %s (%d): %v", w.EntityName(inst.ID), inst.ID, err)
		w.Debug("Inventory Full", true)
		return
	}
	w.RemoveWorldItem(id)
	w.Debug("Ok", false)

	w.Emit(types.RegionMessage{Kind: types.MsgRemoveItem, Item: id})
	w.Emit(types.RegionMessage{Kind: types.MsgMessage, Entity: inst.ID, Receiver: inst.ID, Text: text, Category: "system"})
	inst.Messages = append(inst.Messages, types.MessageData{Type: types.MessageStatus, Text: text})
}

// addItem creates an item of class in the current entity's inventory and
// returns its id, or -1.
func (b *Bridge) addItem(class string) int64 {
	w := b.W
	item, ok := w.CreateItem(class)
	if !ok {
		w.Debug("Unknown Item", true)
		w.LogMessage(fmt.Sprintf("[warn] %s (%d) => add_item: '%s' is not a valid item template.",
			w.EntityName(w.CurrentEntity), w.CurrentEntity, class))
		return -1
	}
	inst, ok := w.Current()
	if !ok {
		return -1
	}
	if err := w.AddToInventory(inst, item); err != nil {
		w.Debug("Inventory Full", true)
		w.Logf("host: add_item (%s): %v", class, err)
		return -1
	}
	w.Debug("Ok", false)
	return item.ID
}

// tookDamage applies damage to the current entity. The first time health
// reaches zero the entity dies: mode becomes "dead", motion stops,
// proximity tracking ends, and death and kill events are queued.
func (b *Bridge) tookDamage(from, amount int64) {
	w := b.W
	if amount < 1 {
		return
	}
	inst, ok := w.Current()
	if !ok {
		return
	}
	key := w.Config.World.HealthAttr
	health, ok := world.AttrInt(inst.Attributes, key)
	if !ok {
		return
	}
	health -= amount
	if health < 0 {
		health = 0
	}
	inst.Attributes[key] = world.Int(health)

	if health > 0 || world.AttrString(inst.Attributes, "mode", "") == "dead" {
		return
	}
	inst.Attributes["mode"] = world.String("dead")
	inst.Motion = types.EntityAction{Kind: types.ActionOff}
	inst.Proximity = nil
	w.EntityEvents.Push(w.Tick, queue.Event{Target: inst.ID, Name: "death"})
	w.EntityEvents.Push(w.Tick, queue.Event{Target: from, Name: "kill", Payload: world.Broadcast(float64(inst.ID))})
}

// teleport moves the current entity to a sector of this region, or hands
// it to another region.
func (b *Bridge) teleport(dest, region string) {
	w := b.W
	inst, ok := w.Current()
	if !ok {
		return
	}
	if region == "" {
		sector, ok := w.Sector(dest)
		if !ok {
			w.Debug("Unknown Sector", true)
			return
		}
		c := world.Center(sector)
		if inst.Position != nil {
			old := *inst.Position
			inst.OldPosition = &old
		}
		inst.Position = &types.Position{Region: w.Region.ID, X: c.X, Y: c.Y}
		inst.Motion = types.EntityAction{Kind: types.ActionOff}
		w.CheckSector(inst)
		return
	}

	w.Emit(types.RegionMessage{
		Kind:        types.MsgTransferEntity,
		Entity:      inst.ID,
		Transfer:    world.CloneInstance(inst),
		RegionName:  region,
		Destination: dest,
	})
	inst.State = types.StatePurged
}
