package world

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/nathoo/regioncore/types"
)

// Bool, Int, Float and String build typed attributes.
func Bool(b bool) types.Attr {
	if b {
		return types.Attr{Kind: types.AttrBool, Num: 1}
	}
	return types.Attr{Kind: types.AttrBool}
}

func Int(n int64) types.Attr     { return types.Attr{Kind: types.AttrInt, Num: float64(n)} }
func Float(f float64) types.Attr { return types.Attr{Kind: types.AttrFloat, Num: f} }
func String(s string) types.Attr { return types.Attr{Kind: types.AttrString, Str: s} }

// Broadcast returns a script value with every numeric slot set to f.
func Broadcast(f float64) types.ScriptValue {
	return types.ScriptValue{X: f, Y: f, Z: f}
}

// Truthy reports whether a script value counts as true.
func Truthy(v types.ScriptValue) bool {
	if v.S != "" {
		switch strings.ToLower(v.S) {
		case "false", "0", "no", "off":
			return false
		}
		return true
	}
	return v.X != 0 || v.Y != 0 || v.Z != 0
}

// ToScript converts a stored attribute to the host-call value shape.
func ToScript(a types.Attr) types.ScriptValue {
	switch a.Kind {
	case types.AttrString:
		return types.ScriptValue{S: a.Str}
	case types.AttrVec:
		return types.ScriptValue{X: a.Vec[0], Y: a.Vec[1], Z: a.Vec[2]}
	default:
		return Broadcast(a.Num)
	}
}

// Coerce converts a script value to an attribute. The kind of the existing
// attribute, when present, decides the result type.
func Coerce(hint *types.Attr, v types.ScriptValue) types.Attr {
	if hint == nil {
		switch {
		case v.S != "":
			return String(v.S)
		case v.X == v.Y && v.Y == v.Z:
			if v.X == math.Trunc(v.X) {
				return Int(int64(v.X))
			}
			return Float(v.X)
		default:
			return types.Attr{Kind: types.AttrVec, Vec: [3]float64{v.X, v.Y, v.Z}}
		}
	}
	switch hint.Kind {
	case types.AttrBool:
		return Bool(Truthy(v))
	case types.AttrInt:
		return Int(int64(number(v)))
	case types.AttrFloat:
		return Float(number(v))
	case types.AttrString:
		if v.S != "" {
			return String(v.S)
		}
		return String(strconv.FormatFloat(v.X, 'f', -1, 64))
	case types.AttrVec:
		return types.Attr{Kind: types.AttrVec, Vec: [3]float64{v.X, v.Y, v.Z}}
	}
	return Coerce(nil, v)
}

// number reads the numeric content of a value, parsing the string slot
// when it holds a number.
func number(v types.ScriptValue) float64 {
	if v.S != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.S), 64); err == nil {
			return f
		}
	}
	return v.X
}

// SetAttr stores v under key using the existing attribute as the hint.
func SetAttr(attrs map[string]types.Attr, key string, v types.ScriptValue) types.Attr {
	var hint *types.Attr
	if old, ok := attrs[key]; ok {
		hint = &old
	}
	a := Coerce(hint, v)
	attrs[key] = a
	return a
}

// Toggle flips a boolean attribute. Missing attributes become true;
// numbers flip between 0 and 1.
func Toggle(attrs map[string]types.Attr, key string) types.Attr {
	old, ok := attrs[key]
	var a types.Attr
	switch {
	case !ok:
		a = Bool(true)
	case old.Kind == types.AttrString:
		a = Bool(!Truthy(types.ScriptValue{S: old.Str}))
	case old.Kind == types.AttrVec:
		a = old
	default:
		a = old
		if old.Num != 0 {
			a.Num = 0
		} else {
			a.Num = 1
		}
	}
	attrs[key] = a
	return a
}

// AttrBool reads a boolean attribute.
func AttrBool(attrs map[string]types.Attr, key string, def bool) bool {
	a, ok := attrs[key]
	if !ok {
		return def
	}
	if a.Kind == types.AttrString {
		return Truthy(types.ScriptValue{S: a.Str})
	}
	return a.Num != 0
}

// AttrFloat reads a numeric attribute.
func AttrFloat(attrs map[string]types.Attr, key string, def float64) float64 {
	a, ok := attrs[key]
	if !ok {
		return def
	}
	switch a.Kind {
	case types.AttrBool, types.AttrInt, types.AttrFloat:
		return a.Num
	case types.AttrString:
		if f, err := strconv.ParseFloat(a.Str, 64); err == nil {
			return f
		}
	}
	return def
}

// AttrInt reads an integer attribute.
func AttrInt(attrs map[string]types.Attr, key string) (int64, bool) {
	a, ok := attrs[key]
	if !ok {
		return 0, false
	}
	switch a.Kind {
	case types.AttrBool, types.AttrInt, types.AttrFloat:
		return int64(a.Num), true
	}
	return 0, false
}

// AttrString reads a string attribute.
func AttrString(attrs map[string]types.Attr, key, def string) string {
	a, ok := attrs[key]
	if !ok || a.Kind != types.AttrString {
		return def
	}
	return a.Str
}

// PackIDs encodes an id list as one script value: X and Y hold the first
// two ids, Z the count and S the comma-joined list.
func PackIDs(ids []int64) types.ScriptValue {
	var v types.ScriptValue
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	if len(ids) > 0 {
		v.X = float64(ids[0])
	}
	if len(ids) > 1 {
		v.Y = float64(ids[1])
	}
	v.Z = float64(len(ids))
	v.S = strings.Join(parts, ",")
	return v
}

// CloneInstance returns a copy of inst that shares no maps, slices or
// pointers with it. Transfers hand the copy to other goroutines.
func CloneInstance(inst *types.Instance) *types.Instance {
	c := *inst
	c.TreeIDs = slices.Clone(inst.TreeIDs)
	c.Position = clonePtr(inst.Position)
	c.OldPosition = clonePtr(inst.OldPosition)
	c.Tile = clonePtr(inst.Tile)
	c.LockedTree = clonePtr(inst.LockedTree)
	c.GameLockedTree = clonePtr(inst.GameLockedTree)
	c.Action = clonePtr(inst.Action)
	c.Proximity = clonePtr(inst.Proximity)
	c.NodeValues = maps.Clone(inst.NodeValues)
	c.Attributes = maps.Clone(inst.Attributes)
	c.BlockedEvents = maps.Clone(inst.BlockedEvents)
	c.RegionsSent = maps.Clone(inst.RegionsSent)
	c.Messages = slices.Clone(inst.Messages)
	c.Audio = slices.Clone(inst.Audio)
	if inst.Inventory != nil {
		c.Inventory = make([]*types.Item, len(inst.Inventory))
		for i, item := range inst.Inventory {
			c.Inventory[i] = cloneItem(item)
		}
	}
	if inst.Equipped != nil {
		c.Equipped = make(map[string]*types.Item, len(inst.Equipped))
		for slot, item := range inst.Equipped {
			c.Equipped[slot] = cloneItem(item)
		}
	}
	return &c
}

func cloneItem(item *types.Item) *types.Item {
	if item == nil {
		return nil
	}
	c := *item
	c.Position = clonePtr(item.Position)
	c.Proximity = clonePtr(item.Proximity)
	c.Attributes = maps.Clone(item.Attributes)
	c.BlockedEvents = maps.Clone(item.BlockedEvents)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
