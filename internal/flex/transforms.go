package flex

import (
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Tag helper functions for style scripts

// RegisterHelpers registers tag helpers under osm2svg.helpers and as globals
func RegisterHelpers(L *lua.LState) {
	helpers := L.NewTable()

	L.SetField(helpers, "trim", L.NewFunction(luaTrim))
	L.SetField(helpers, "lower", L.NewFunction(luaLower))
	L.SetField(helpers, "parse_int", L.NewFunction(luaParseInt))
	L.SetField(helpers, "get_name", L.NewFunction(luaGetName))
	L.SetField(helpers, "get_name_localized", L.NewFunction(luaGetNameLocalized))
	L.SetField(helpers, "has_tag", L.NewFunction(luaHasTag))

	mod := L.GetGlobal("osm2svg")
	if mod == lua.LNil {
		mod = L.NewTable()
		L.SetGlobal("osm2svg", mod)
	}
	L.SetField(mod.(*lua.LTable), "helpers", helpers)

	L.SetGlobal("trim", L.NewFunction(luaTrim))
	L.SetGlobal("parse_int", L.NewFunction(luaParseInt))
	L.SetGlobal("get_name", L.NewFunction(luaGetName))
	L.SetGlobal("has_tag", L.NewFunction(luaHasTag))
}

func luaTrim(L *lua.LState) int {
	L.Push(lua.LString(strings.TrimSpace(L.CheckString(1))))
	return 1
}

func luaLower(L *lua.LState) int {
	L.Push(lua.LString(strings.ToLower(L.CheckString(1))))
	return 1
}

// luaParseInt parses a string to an integer, returning the optional default on failure.
// admin_level values are occasionally written as "4.0".
func luaParseInt(L *lua.LState) int {
	s := strings.TrimSpace(L.CheckString(1))
	def := lua.LValue(lua.LNil)
	if L.GetTop() >= 2 {
		def = lua.LNumber(L.CheckInt64(2))
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		L.Push(lua.LNumber(v))
	} else if f, err := strconv.ParseFloat(s, 64); err == nil {
		L.Push(lua.LNumber(int64(f)))
	} else {
		L.Push(def)
	}
	return 1
}

// luaGetName returns name, then int_name, then name:en
func luaGetName(L *lua.LState) int {
	tags := L.CheckTable(1)
	for _, key := range []string{"name", "int_name", "name:en"} {
		if s := lua.LVAsString(L.GetField(tags, key)); s != "" {
			L.Push(lua.LString(s))
			return 1
		}
	}
	L.Push(lua.LNil)
	return 1
}

// luaGetNameLocalized returns name:<lang> falling back to name
func luaGetNameLocalized(L *lua.LState) int {
	tags := L.CheckTable(1)
	lang := L.CheckString(2)
	for _, key := range []string{"name:" + lang, "name"} {
		if s := lua.LVAsString(L.GetField(tags, key)); s != "" {
			L.Push(lua.LString(s))
			return 1
		}
	}
	L.Push(lua.LNil)
	return 1
}

// luaHasTag reports whether tags[key] is set, optionally to one of the given values
func luaHasTag(L *lua.LState) int {
	tags := L.CheckTable(1)
	key := L.CheckString(2)
	v := lua.LVAsString(L.GetField(tags, key))
	if v == "" {
		L.Push(lua.LFalse)
		return 1
	}
	if L.GetTop() == 2 {
		L.Push(lua.LTrue)
		return 1
	}
	for i := 3; i <= L.GetTop(); i++ {
		if L.CheckString(i) == v {
			L.Push(lua.LTrue)
			return 1
		}
	}
	L.Push(lua.LFalse)
	return 1
}
