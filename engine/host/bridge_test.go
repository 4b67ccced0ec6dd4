package host

import (
	"math"
	"strings"
	"testing"

	"github.com/nathoo/regioncore/config"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

func sv(s string) types.ScriptValue  { return types.ScriptValue{S: s} }
func n(f float64) types.ScriptValue  { return world.Broadcast(f) }
func args(v ...types.ScriptValue) []types.ScriptValue { return v }

// testBridge builds a world with a hero (id 1) and a wolf (id 2), a loose
// sword, a coin pile and a static statue.
func testBridge(t *testing.T) (*Bridge, chan types.RegionMessage) {
	t.Helper()
	cfg := config.Default()
	cfg.Engine.Debug = true
	cfg.Engine.TicksPerMinute = 4
	cfg.World.InventorySlots = 3
	region := &types.Region{
		ID:      1,
		Sectors: []types.Sector{{Name: "Tavern", Min: types.Point{X: 10, Y: 10}, Max: types.Point{X: 14, Y: 12}}},
	}
	w := world.New(cfg, region, nil)
	out := make(chan types.RegionMessage, 64)
	w.Outbox = out
	w.ItemClasses["Apple"] = types.ItemTemplate{ClassName: "Apple", Name: "Apple"}

	hero := &types.Instance{ID: 1, Name: "Hero", Category: types.CategoryPlayer,
		Position:   &types.Position{Region: 1, X: 1, Y: 1},
		Attributes: map[string]types.Attr{"HP": world.Int(10), "name": world.String("Hero")}}
	wolf := &types.Instance{ID: 2, Name: "Wolf", Category: types.CategoryNPC,
		Position:   &types.Position{Region: 1, X: 2, Y: 1},
		Attributes: map[string]types.Attr{"HP": world.Int(1)}}
	for _, inst := range []*types.Instance{hero, wolf} {
		if err := w.Instances.Add(inst); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	w.Items = []*types.Item{
		{ID: 100, ClassName: "Sword", Name: "Sword", Attributes: map[string]types.Attr{
			"name": world.String("Axe"), "slot": world.String("hand")}},
		{ID: 101, ClassName: "Gold", Name: "Gold", Attributes: map[string]types.Attr{
			"monetary": world.Bool(true), "worth": world.Int(25)}},
		{ID: 102, ClassName: "Statue", Name: "Statue", Attributes: map[string]types.Attr{
			"static": world.Bool(true)}},
	}
	w.CurrentEntity = 1
	return New(w), out
}

func drain(out chan types.RegionMessage) []types.RegionMessage {
	var msgs []types.RegionMessage
	for {
		select {
		case m := <-out:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func TestTookDamage_DeathCascadeOnce(t *testing.T) {
	b, _ := testBridge(t)
	w := b.W
	w.CurrentEntity = 2
	wolf, _ := w.Entity(2)
	track := 5.0
	wolf.Proximity = &track
	wolf.Motion = types.EntityAction{Kind: types.ActionRandomWalk}

	b.OnHostCall("took_damage", args(n(1), n(1)))
	if hp, _ := world.AttrInt(wolf.Attributes, "HP"); hp != 0 {
		t.Errorf("HP = %d, want 0", hp)
	}
	if world.AttrString(wolf.Attributes, "mode", "") != "dead" {
		t.Error("mode should be dead")
	}
	if wolf.Motion.Kind != types.ActionOff || wolf.Proximity != nil {
		t.Errorf("motion %s, proximity %v", wolf.Motion.Kind, wolf.Proximity)
	}

	b.OnHostCall("took_damage", args(n(1), n(1)))
	if got := w.EntityEvents.Count(2, "death"); got != 1 {
		t.Errorf("death events = %d, want 1", got)
	}
	if got := w.EntityEvents.Count(1, "kill"); got != 1 {
		t.Errorf("kill events = %d, want 1", got)
	}
	events := w.EntityEvents.Pending()
	if events[1].Payload.X != 2 {
		t.Errorf("kill payload = %+v, want victim id 2", events[1].Payload)
	}
	if events[0].Eligible != w.Tick+1 {
		t.Errorf("death eligible at %d, want next tick", events[0].Eligible)
	}
}

func TestTookDamage_ZeroOrNegativeIsIgnored(t *testing.T) {
	b, _ := testBridge(t)
	b.OnHostCall("took_damage", args(n(2), n(-5)))
	hero, _ := b.W.Entity(1)
	if hp, _ := world.AttrInt(hero.Attributes, "HP"); hp != 10 {
		t.Errorf("HP = %d, want 10", hp)
	}
	if b.W.EntityEvents.Len() != 0 {
		t.Error("no events expected")
	}
}

func TestDealDamage(t *testing.T) {
	b, _ := testBridge(t)
	b.OnHostCall("deal_damage", args(n(2), n(3.7)))
	events := b.W.EntityEvents.Pending()
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	e := events[0]
	if e.Target != 2 || e.Name != "take_damage" || e.Payload.X != 1 || e.Payload.Y != 3 {
		t.Errorf("event = %+v", e)
	}
}

func TestTake(t *testing.T) {
	b, out := testBridge(t)
	hero, _ := b.W.Entity(1)

	b.OnHostCall("take", args(n(100)))
	if len(hero.Inventory) != 1 || hero.Inventory[0].ID != 100 {
		t.Fatalf("inventory = %+v", hero.Inventory)
	}
	if len(b.W.Items) != 2 {
		t.Errorf("world items = %d, want 2", len(b.W.Items))
	}
	msgs := drain(out)
	if len(msgs) != 2 || msgs[0].Kind != types.MsgRemoveItem || msgs[0].Item != 100 {
		t.Fatalf("msgs = %+v", msgs)
	}
	if msgs[1].Text != "You take an axe" || msgs[1].Category != "system" {
		t.Errorf("message = %q (%s)", msgs[1].Text, msgs[1].Category)
	}

	b.OnHostCall("take", args(n(101)))
	if hero.Currency != 25 {
		t.Errorf("Currency = %d, want 25", hero.Currency)
	}
	if len(hero.Inventory) != 1 {
		t.Error("gold should not take an inventory slot")
	}
	msgs = drain(out)
	if msgs[1].Text != "You take 25 gold." {
		t.Errorf("message = %q", msgs[1].Text)
	}
}

func TestTake_UnknownOrStaticItem(t *testing.T) {
	for _, id := range []float64{999, 102} {
		b, out := testBridge(t)
		hero, _ := b.W.Entity(1)
		b.OnHostCall("take", args(n(id)))
		if len(hero.Inventory) != 0 {
			t.Errorf("take(%v): inventory changed", id)
		}
		if len(b.W.DebugValues) != 1 || b.W.DebugValues[0].Text != "Unknown Item" || !b.W.DebugValues[0].Error {
			t.Errorf("take(%v): debug = %+v", id, b.W.DebugValues)
		}
		if msgs := drain(out); len(msgs) != 0 {
			t.Errorf("take(%v): unexpected messages %+v", id, msgs)
		}
	}
}

func TestTake_InventoryFullKeepsItemInWorld(t *testing.T) {
	b, _ := testBridge(t)
	hero, _ := b.W.Entity(1)
	hero.Inventory = []*types.Item{{ID: 7}, {ID: 8}, {ID: 9}}
	b.OnHostCall("take", args(n(100)))
	if _, owner, ok := b.W.Item(100); !ok || owner != nil {
		t.Error("sword should stay in the world")
	}
	if b.W.DebugValues[0].Text != "Inventory Full" {
		t.Errorf("debug = %+v", b.W.DebugValues)
	}
}

func TestAddItem(t *testing.T) {
	b, out := testBridge(t)
	hero, _ := b.W.Entity(1)

	v, ok := b.OnHostCall("add_item", args(sv("Unknown Class")))
	if !ok || v.X != -1 {
		t.Errorf("add_item(unknown) = %+v, %v, want -1", v, ok)
	}
	if len(hero.Inventory) != 0 {
		t.Error("inventory should be unchanged")
	}
	msgs := drain(out)
	if len(msgs) != 1 || !strings.HasPrefix(msgs[0].Text, "[warn] Hero (1) => add_item: 'Unknown Class'") {
		t.Errorf("log = %+v", msgs)
	}

	v, _ = b.OnHostCall("add_item", args(sv("Apple")))
	if v.X <= 0 || len(hero.Inventory) != 1 || float64(hero.Inventory[0].ID) != v.X {
		t.Errorf("add_item(Apple) = %+v, inventory %+v", v, hero.Inventory)
	}

	hero.Inventory = append(hero.Inventory, &types.Item{ID: 5}, &types.Item{ID: 6})
	if v, _ := b.OnHostCall("add_item", args(sv("Apple"))); v.X != -1 {
		t.Errorf("add_item on full inventory = %v, want -1", v.X)
	}
}

func TestDropAndEquip(t *testing.T) {
	b, _ := testBridge(t)
	hero, _ := b.W.Entity(1)
	b.OnHostCall("take", args(n(100)))
	b.OnHostCall("equip", args(n(100)))
	if hero.Equipped["hand"] == nil || hero.Inventory[0] != nil {
		t.Fatalf("equip failed: equipped %+v inventory %+v", hero.Equipped, hero.Inventory)
	}

	a, _ := b.OnHostCall("add_item", args(sv("Apple")))
	b.OnHostCall("add_item", args(sv("Apple")))
	b.OnHostCall("drop", args(n(a.X)))
	if _, owner, ok := b.W.Item(int64(a.X)); !ok || owner != nil {
		t.Error("dropped apple should be a world item")
	}
	b.OnHostCall("drop_items", args(sv("App")))
	if ids, _ := b.OnHostCall("inventory_items", nil); ids.Z != 0 {
		t.Errorf("inventory after drop_items = %+v", ids)
	}
	last := b.W.Items[len(b.W.Items)-1]
	if last.Position == nil || last.Position.X != 1 {
		t.Errorf("dropped item position = %+v", last.Position)
	}
}

func TestInventoryItems(t *testing.T) {
	b, _ := testBridge(t)
	b.OnHostCall("add_item", args(sv("Apple")))
	b.OnHostCall("take", args(n(100)))
	all, _ := b.OnHostCall("inventory_items", nil)
	if all.Z != 2 || strings.Count(all.S, ",") != 1 {
		t.Errorf("inventory_items = %+v", all)
	}
	axes, _ := b.OnHostCall("inventory_items_of", args(n(1), sv("Axe")))
	if axes.Z != 1 || axes.X != 100 || axes.S != "100" {
		t.Errorf("inventory_items_of(Axe) = %+v", axes)
	}
	if _, ok := b.OnHostCall("inventory_items_of", args(n(77))); ok {
		t.Error("unknown entity should return nothing")
	}
}

func TestOfferInventory(t *testing.T) {
	b, out := testBridge(t)
	b.OnHostCall("take", args(n(100)))
	drain(out)
	b.OnHostCall("offer_inventory", args(n(2), sv("")))
	msgs := drain(out)
	if len(msgs) != 1 || msgs[0].Kind != types.MsgMultipleChoice {
		t.Fatalf("msgs = %+v", msgs)
	}
	c := msgs[0].Choices
	if len(c) != 1 || c[0].ItemID != 100 || c[0].Seller != 1 || c[0].Buyer != 2 {
		t.Errorf("choices = %+v", c)
	}
}

func TestAttributes(t *testing.T) {
	b, _ := testBridge(t)
	hero, _ := b.W.Entity(1)

	b.OnHostCall("set_attr", args(sv("HP"), sv("7")))
	if a := hero.Attributes["HP"]; a.Kind != types.AttrInt || a.Num != 7 {
		t.Errorf("HP = %+v, want int 7", a)
	}
	if v, ok := b.OnHostCall("get_attr", args(sv("HP"))); !ok || v.X != 7 {
		t.Errorf("get_attr(HP) = %+v, %v", v, ok)
	}
	if _, ok := b.OnHostCall("get_attr", args(sv("missing"))); ok {
		t.Error("missing attribute should return nothing")
	}
	b.OnHostCall("toggle_attr", args(sv("hidden")))
	if !world.AttrBool(hero.Attributes, "hidden", false) {
		t.Error("toggle_attr should set hidden")
	}
	if v, _ := b.OnHostCall("get_attr_of", args(n(100), sv("name"))); v.S != "Axe" {
		t.Errorf("get_attr_of(item) = %+v", v)
	}
	if v, _ := b.OnHostCall("id", nil); v.X != 1 {
		t.Errorf("id = %v", v.X)
	}
	b.OnHostCall("intent", args(sv("attack")))
	if world.AttrString(hero.Attributes, "intent", "") != "attack" {
		t.Error("intent not set")
	}
}

func TestSetAttr_ItemActiveQueuesEvent(t *testing.T) {
	b, _ := testBridge(t)
	b.W.CurrentItem = 100
	b.OnHostCall("set_attr", args(sv("active"), n(1)))
	events := b.W.ItemEvents.Pending()
	if len(events) != 1 || events[0].Target != 100 || events[0].Name != "active" || events[0].Payload.X != 1 {
		t.Errorf("item events = %+v", events)
	}
	hero, _ := b.W.Entity(1)
	if _, ok := hero.Attributes["active"]; ok {
		t.Error("item attribute must not land on the entity")
	}
}

func TestNotifyInAndBlockEvents(t *testing.T) {
	b, _ := testBridge(t)
	b.W.Tick = 10
	b.OnHostCall("notify_in", args(n(2), sv("wake")))
	pending := b.W.EntityNotifications.Pending()
	if len(pending) != 1 || pending[0].Eligible != 18 || pending[0].Name != "wake" {
		t.Errorf("notifications = %+v", pending)
	}
	b.OnHostCall("block_events", args(n(0.5), sv("take_damage")))
	hero, _ := b.W.Entity(1)
	if hero.BlockedEvents["take_damage"] != 12 {
		t.Errorf("blocked until %d, want 12", hero.BlockedEvents["take_damage"])
	}
}

func TestMovementVerbs(t *testing.T) {
	b, _ := testBridge(t)
	hero, _ := b.W.Entity(1)

	b.OnHostCall("goto", args(sv("Tavern"), n(2)))
	if hero.Motion.Kind != types.ActionGoto || hero.Motion.Target != (types.Point{X: 12, Y: 11}) || hero.Motion.Speed != 2 {
		t.Errorf("goto motion = %+v", hero.Motion)
	}
	b.OnHostCall("goto", args(sv("Nowhere")))
	if b.W.DebugValues[len(b.W.DebugValues)-1].Text != "Unknown Sector" {
		t.Error("unknown sector should be reported")
	}
	b.OnHostCall("random_walk", args(n(3)))
	if hero.Motion.Kind != types.ActionRandomWalk || hero.Motion.Distance != 3 || hero.Motion.Speed != 1 {
		t.Errorf("random_walk motion = %+v", hero.Motion)
	}
	b.OnHostCall("close_in", args(n(2), n(1)))
	if hero.Motion.Kind != types.ActionRandomWalk {
		t.Error("close_in needs three arguments")
	}
	b.OnHostCall("close_in", args(n(2), n(1), n(0.5)))
	if hero.Motion.Kind != types.ActionCloseIn || hero.Motion.TargetID != 2 {
		t.Errorf("close_in motion = %+v", hero.Motion)
	}
	b.OnHostCall("set_proximity_tracking", args(n(1)))
	if hero.Proximity == nil || *hero.Proximity != 5 {
		t.Errorf("proximity = %v", hero.Proximity)
	}
	b.OnHostCall("set_proximity_tracking", args(n(0)))
	if hero.Proximity != nil {
		t.Error("proximity tracking should be off")
	}
}

func TestTeleport(t *testing.T) {
	b, out := testBridge(t)
	hero, _ := b.W.Entity(1)

	b.OnHostCall("teleport", args(sv("Tavern")))
	if hero.Position.X != 12 || hero.Position.Y != 11 || hero.OldPosition == nil {
		t.Errorf("position = %+v", hero.Position)
	}
	if world.AttrString(hero.Attributes, "sector", "") != "Tavern" {
		t.Error("sector change should be recorded")
	}

	b.OnHostCall("teleport", args(sv("Gate"), sv("Castle")))
	msgs := drain(out)
	if len(msgs) != 1 || msgs[0].Kind != types.MsgTransferEntity || msgs[0].RegionName != "Castle" || msgs[0].Destination != "Gate" {
		t.Fatalf("msgs = %+v", msgs)
	}
	if msgs[0].Transfer == nil || msgs[0].Transfer.ID != 1 {
		t.Error("transfer should carry the entity")
	}
	if hero.State != types.StatePurged {
		t.Errorf("State = %s, want purged", hero.State)
	}
}

func TestSpatialQueries(t *testing.T) {
	b, _ := testBridge(t)

	v, _ := b.OnHostCall("entities_in_radius", args(n(1)))
	if v.Z != 1 || v.X != 2 || v.S != "2" {
		t.Errorf("entities_in_radius = %+v", v)
	}
	if v, _ := b.OnHostCall("distance_to", args(n(2))); v.X != 1 {
		t.Errorf("distance_to = %v, want 1", v.X)
	}
	if v, _ := b.OnHostCall("distance_to", args(n(55))); v.X != 0 {
		t.Errorf("distance_to(unknown) = %v, want 0", v.X)
	}
	if v, _ := b.OnHostCall("is_item", args(n(101))); v.X != 1 {
		t.Error("is_item(101) should be true")
	}
	if v, _ := b.OnHostCall("is_entity", args(n(101))); v.X != 0 {
		t.Error("is_entity(101) should be false")
	}
}

func TestListGet(t *testing.T) {
	b, _ := testBridge(t)
	tests := []struct {
		list string
		idx  float64
		want float64
	}{
		{"4,5,6", 1, 5},
		{"4,5,6", -3, 4},
		{"4,5,6", 10, 6},
		{"4,,6", 1, 6},
		{"x", 0, 0},
	}
	for _, tt := range tests {
		v, ok := b.OnHostCall("list_get", args(sv(tt.list), n(tt.idx)))
		if !ok || v.X != tt.want {
			t.Errorf("list_get(%q, %v) = %v, want %v", tt.list, tt.idx, v.X, tt.want)
		}
	}
}

func TestRandom(t *testing.T) {
	b, _ := testBridge(t)
	for i := 0; i < 50; i++ {
		v, _ := b.OnHostCall("random", args(n(6), n(2)))
		if v.X < 2 || v.X > 6 || v.X != float64(int(v.X)) {
			t.Fatalf("random(6, 2) = %v", v.X)
		}
	}
	v, _ := b.OnHostCall("random", nil)
	if v.X < 0 || v.X >= 1 {
		t.Errorf("random() = %v", v.X)
	}
}

func TestMessageAndDebug(t *testing.T) {
	b, out := testBridge(t)
	b.OnHostCall("message", args(n(2), sv("Back off!"), sv("yell")))
	wolf, _ := b.W.Entity(2)
	if len(wolf.Messages) != 1 || wolf.Messages[0].Type != types.MessageYell || wolf.Messages[0].From != "Hero" {
		t.Errorf("wolf messages = %+v", wolf.Messages)
	}
	b.OnHostCall("debug", args(sv("hp"), n(3)))
	msgs := drain(out)
	if len(msgs) != 2 || msgs[0].Receiver != 2 || msgs[0].Entity != 1 {
		t.Fatalf("msgs = %+v", msgs)
	}
	if msgs[1].Kind != types.MsgLog || msgs[1].Text != "Hero: hp 3" {
		t.Errorf("debug line = %+v", msgs[1])
	}
}

func TestMissingArgumentsNeverPanic(t *testing.T) {
	b, _ := testBridge(t)
	for _, verb := range Verbs {
		b.OnHostCall(verb, nil)
		b.OnHostCall(verb, args(n(3)))
	}
	b.W.CurrentEntity = 424242
	for _, verb := range Verbs {
		b.OnHostCall(verb, args(n(1), n(2), n(3)))
	}
}

func TestRandom_ExtremeBounds(t *testing.T) {
	b, _ := testBridge(t)
	tests := []struct {
		lo, hi   float64
		min, max float64
	}{
		{-9e18, 9e18, math.MinInt32, math.MaxInt32},
		{0, 1e19, 0, math.MaxInt32},
		{-1e19, -1e19, math.MinInt32, math.MinInt32},
		{3, 1, 1, 3},
	}
	for _, tt := range tests {
		v, ok := b.OnHostCall("random", args(n(tt.lo), n(tt.hi)))
		if !ok {
			t.Errorf("random(%v, %v) returned nothing", tt.lo, tt.hi)
			continue
		}
		if v.X < tt.min || v.X > tt.max {
			t.Errorf("random(%v, %v) = %v, want within [%v, %v]", tt.lo, tt.hi, v.X, tt.min, tt.max)
		}
	}
	v, ok := b.OnHostCall("random", args(n(math.NaN()), n(5)))
	if !ok || v.X < 0 || v.X >= 1 {
		t.Errorf("random(NaN, 5) = %v, %v, want a fraction", v.X, ok)
	}
}

func TestTookDamage_MalformedAmounts(t *testing.T) {
	b, _ := testBridge(t)
	hero, _ := b.W.Entity(1)
	for _, amount := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1e19, -3, 0.5} {
		b.OnHostCall("took_damage", args(n(2), n(amount)))
		if hp, _ := world.AttrInt(hero.Attributes, "HP"); hp != 10 {
			t.Errorf("took_damage(%v): HP = %d, want 10", amount, hp)
		}
	}
	if _, dead := hero.Attributes["mode"]; dead {
		t.Error("malformed damage must not kill")
	}

	b.OnHostCall("took_damage", args(n(2), n(1e19)))
	if hp, _ := world.AttrInt(hero.Attributes, "HP"); hp != 0 {
		t.Errorf("HP = %d after huge damage, want 0", hp)
	}
	if got := world.AttrString(hero.Attributes, "mode", ""); got != "dead" {
		t.Errorf("mode = %q, want dead", got)
	}
}

func TestDealDamage_ClampsAmount(t *testing.T) {
	b, _ := testBridge(t)
	w := b.W
	b.OnHostCall("deal_damage", args(n(2), n(math.NaN())))
	b.OnHostCall("deal_damage", args(n(2), n(1e19)))

	events := w.EntityEvents.Drain(w.Tick + 1)
	if len(events) != 1 {
		t.Fatalf("events = %+v, want only the finite hit", events)
	}
	if got := events[0].Payload.Y; got != math.MaxInt32 {
		t.Errorf("damage = %v, want %v", got, float64(math.MaxInt32))
	}
}

func TestMalformedNumbersNeverPanic(t *testing.T) {
	bad := []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e19, -1e19, math.MaxInt64, math.MinInt64}
	for _, verb := range Verbs {
		for _, f := range bad {
			calls := [][]types.ScriptValue{
				args(n(f)),
				args(n(f), n(f)),
				args(n(f), n(f), n(f)),
				args(n(1), n(f), n(f)),
				args(sv("Apple"), n(f), n(f)),
				args(n(f), sv("Tavern")),
			}
			for _, a := range calls {
				b, _ := testBridge(t)
				func() {
					defer func() {
						if r := recover(); r != nil {
							t.Errorf("%s(%v) panicked: %v", verb, a, r)
						}
					}()
					b.OnHostCall(verb, a)
				}()
			}
		}
	}
}
