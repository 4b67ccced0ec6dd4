// Package script runs the code of Script and Expression nodes in a
// sandboxed Lua VM. Every host verb is a Lua global.
package script

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/nathoo/regioncore/engine/host"
	"github.com/nathoo/regioncore/engine/world"
	"github.com/nathoo/regioncore/types"
)

// Runner owns one Lua state. It is not safe for concurrent use; the tick
// that owns the world owns the runner.
type Runner struct {
	L      *lua.LState
	w      *world.World
	bridge *host.Bridge
	protos map[string]*lua.FunctionProto
}

// New creates a runner bound to a world and its host bridge.
func New(w *world.World, b *host.Bridge) *Runner {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	r := &Runner{L: L, w: w, bridge: b, protos: map[string]*lua.FunctionProto{}}
	r.registerVerbs()
	return r
}

// Close releases the Lua state.
func (r *Runner) Close() {
	r.L.Close()
}

// Run executes a chunk on behalf of the world's current entity and item.
func (r *Runner) Run(src string) error {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	fn, err := r.compile(src)
	if err != nil {
		return err
	}
	r.setEvent()
	return r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
}

// Eval evaluates an expression. nil, false and 0 are false.
func (r *Runner) Eval(expr string) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return false, nil
	}
	fn, err := r.compile("return " + expr)
	if err != nil {
		return false, err
	}
	r.setEvent()
	if err := r.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return false, err
	}
	ret := r.L.Get(-1)
	r.L.Pop(1)
	if n, ok := ret.(lua.LNumber); ok {
		return n != 0, nil
	}
	return lua.LVAsBool(ret), nil
}

// compile parses a chunk once and caches its prototype.
func (r *Runner) compile(src string) (*lua.LFunction, error) {
	proto, ok := r.protos[src]
	if !ok {
		chunk, err := parse.Parse(strings.NewReader(src), "<node>")
		if err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		proto, err = lua.Compile(chunk, "<node>")
		if err != nil {
			return nil, fmt.Errorf("compile: %w", err)
		}
		r.protos[src] = proto
	}
	return r.L.NewFunctionFromProto(proto), nil
}

// setEvent exposes the event being handled as the global "event".
func (r *Runner) setEvent() {
	ev := r.w.Event
	if ev == nil {
		r.L.SetGlobal("event", lua.LNil)
		return
	}
	tbl := r.L.NewTable()
	tbl.RawSetString("name", lua.LString(ev.Name))
	tbl.RawSetString("target", lua.LNumber(ev.Target))
	tbl.RawSetString("x", lua.LNumber(ev.Payload.X))
	tbl.RawSetString("y", lua.LNumber(ev.Payload.Y))
	tbl.RawSetString("z", lua.LNumber(ev.Payload.Z))
	tbl.RawSetString("s", lua.LString(ev.Payload.S))
	r.L.SetGlobal("event", tbl)
}

// registerVerbs installs every host verb as a global, and routes print
// to the region log.
func (r *Runner) registerVerbs() {
	for _, name := range host.Verbs {
		verb := name
		r.L.SetGlobal(verb, r.L.NewFunction(func(L *lua.LState) int {
			args := make([]types.ScriptValue, L.GetTop())
			for i := range args {
				args[i] = fromLua(L.Get(i + 1))
			}
			v, ok := r.bridge.OnHostCall(verb, args)
			if !ok {
				return 0
			}
			L.Push(toLua(L, v))
			return 1
		}))
	}

	r.L.SetGlobal("print", r.L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		r.w.LogMessage(strings.Join(parts, " "))
		return 0
	}))
}

// fromLua converts a Lua argument to a host value. Numbers broadcast,
// strings fill the string slot and tables read x, y, z and s.
func fromLua(v lua.LValue) types.ScriptValue {
	switch lv := v.(type) {
	case lua.LNumber:
		return world.Broadcast(float64(lv))
	case lua.LString:
		return types.ScriptValue{S: string(lv)}
	case lua.LBool:
		if lv {
			return world.Broadcast(1)
		}
		return world.Broadcast(0)
	case *lua.LTable:
		out := types.ScriptValue{
			X: tableNumber(lv, "x", 1),
			Y: tableNumber(lv, "y", 2),
			Z: tableNumber(lv, "z", 3),
		}
		if s, ok := lv.RawGetString("s").(lua.LString); ok {
			out.S = string(s)
		}
		return out
	}
	return types.ScriptValue{}
}

func tableNumber(tbl *lua.LTable, key string, index int) float64 {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return float64(n)
	}
	if n, ok := tbl.RawGetInt(index).(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// toLua converts a host result: a plain string, a plain number when all
// slots agree, otherwise a table with x, y, z and s.
func toLua(L *lua.LState, v types.ScriptValue) lua.LValue {
	switch {
	case v.S != "" && v.X == 0 && v.Y == 0 && v.Z == 0:
		return lua.LString(v.S)
	case v.S == "" && v.X == v.Y && v.Y == v.Z:
		return lua.LNumber(v.X)
	}
	tbl := L.NewTable()
	tbl.RawSetString("x", lua.LNumber(v.X))
	tbl.RawSetString("y", lua.LNumber(v.Y))
	tbl.RawSetString("z", lua.LNumber(v.Z))
	tbl.RawSetString("s", lua.LString(v.S))
	return tbl
}
