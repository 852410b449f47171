package script

import lua "github.com/yuin/gopher-lua"

// applySandbox strips Lua functions that reach outside the process.
// Scripts keep string/table/math and the preloaded actionflow module;
// file loading, shelling out and process control are removed.
func applySandbox(L *lua.LState) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("io", lua.LNil)

	if osMod, ok := L.GetGlobal("os").(*lua.LTable); ok {
		for _, name := range []string{"execute", "exit", "remove", "rename", "setenv", "getenv", "tmpname"} {
			osMod.RawSetString(name, lua.LNil)
		}
	}
}
