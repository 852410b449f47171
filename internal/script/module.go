package script

import (
	"context"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/actionflow/internal/dispatcher/handler"
	"github.com/dshills/actionflow/internal/pipeline"
)

// loader builds the "actionflow" Lua module.
func (e *Engine) loader(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"register": e.luaRegister,
		"get":      e.luaStoreGet,
		"set":      e.luaStoreSet,
		"log":      e.luaLog,
	})
	L.Push(mod)
	return 1
}

// luaRegister implements actionflow.register(action, fn [, opts]).
//
// opts is a table with optional fields: priority (number), blocking
// (boolean, default true), once (boolean). The Lua function receives the
// payload and may return a value, collected into the dispatch results.
func (e *Engine) luaRegister(L *lua.LState) int {
	action := L.CheckString(1)
	fn := L.CheckFunction(2)

	reg := handler.Registration{Blocking: true}
	if L.GetTop() >= 3 {
		opts := L.CheckTable(3)
		if v := opts.RawGetString("priority"); v != lua.LNil {
			reg.Priority = int(lua.LVAsNumber(v))
		}
		if v := opts.RawGetString("blocking"); v != lua.LNil {
			reg.Blocking = lua.LVAsBool(v)
		}
		if v := opts.RawGetString("once"); v != lua.LNil {
			reg.Once = lua.LVAsBool(v)
		}
		if condFn, ok := opts.RawGetString("condition").(*lua.LFunction); ok {
			reg.Condition = e.luaCondition(condFn)
		}
	}

	goFn := func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		var ret any
		err := e.do(ctx, func(L *lua.LState) error {
			L.Push(fn)
			L.Push(toLua(L, exec.Payload()))
			if err := L.PCall(1, 1, nil); err != nil {
				return err
			}
			lv := L.Get(-1)
			L.Pop(1)
			if lv != lua.LNil {
				ret = toGo(lv)
			}
			return nil
		})
		if err != nil {
			return pipeline.Error(err)
		}
		if ret != nil {
			return pipeline.SuccessWith(ret)
		}
		return pipeline.Success()
	}

	off, err := e.d.Register(action, goFn, reg)
	if err != nil {
		L.RaiseError("register %s: %s", action, err.Error())
		return 0
	}
	e.track(off)
	return 0
}

// luaCondition wraps a Lua predicate as a registration condition. A
// predicate error skips the handler.
func (e *Engine) luaCondition(fn *lua.LFunction) func(payload any) bool {
	return func(payload any) bool {
		allow := false
		err := e.do(context.Background(), func(L *lua.LState) error {
			L.Push(fn)
			L.Push(toLua(L, payload))
			if err := L.PCall(1, 1, nil); err != nil {
				return err
			}
			allow = lua.LVAsBool(L.Get(-1))
			L.Pop(1)
			return nil
		})
		return err == nil && allow
	}
}

// luaStoreGet implements actionflow.get(store).
func (e *Engine) luaStoreGet(L *lua.LState) int {
	name := L.CheckString(1)

	s, err := e.d.Stores().Get(name)
	if err != nil {
		L.RaiseError("get %s: %s", name, err.Error())
		return 0
	}
	L.Push(toLua(L, s.Get()))
	return 1
}

// luaStoreSet implements actionflow.set(store, value).
func (e *Engine) luaStoreSet(L *lua.LState) int {
	name := L.CheckString(1)
	value := toGo(L.CheckAny(2))

	s, err := e.d.Stores().Get(name)
	if err != nil {
		L.RaiseError("set %s: %s", name, err.Error())
		return 0
	}
	s.Set(value)
	return 0
}

// luaLog implements actionflow.log(level, message).
func (e *Engine) luaLog(L *lua.LState) int {
	level := L.CheckString(1)
	msg := L.CheckString(2)

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	e.log.WithLevel(lvl).Str("source", "lua").Msg(msg)
	return 0
}
