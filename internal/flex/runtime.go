package flex

import (
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2svg-go/internal/logger"
	"github.com/wegman-software/osm2svg-go/internal/membership"
	"github.com/wegman-software/osm2svg-go/internal/render"
)

// Runtime runs a Lua style script.
// The script defines a global function style(relation) returning "stroke" or "fill".
// Calls are serialized since an LState is single threaded.
type Runtime struct {
	L     *lua.LState
	mu    sync.Mutex
	style lua.LValue
	def   render.Style
	log   *zap.Logger

	failures int
}

// NewRuntime creates a Lua runtime; def is used when the script has no answer
func NewRuntime(def render.Style) *Runtime {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	r := &Runtime{
		L:   L,
		def: def,
		log: logger.Named("flex"),
	}

	r.registerAPI()
	return r
}

// Close releases Lua resources
func (r *Runtime) Close() {
	r.L.Close()
}

// registerAPI exposes the osm2svg module table and helpers
func (r *Runtime) registerAPI() {
	mod := r.L.NewTable()
	mod.RawSetString("version", lua.LString("1.0.0"))
	mod.RawSetString("stroke", lua.LString(render.StyleStroke.String()))
	mod.RawSetString("fill", lua.LString(render.StyleFill.String()))
	mod.RawSetString("default", lua.LString(r.def.String()))
	r.L.SetGlobal("osm2svg", mod)

	RegisterHelpers(r.L)

	r.L.SetGlobal("print", r.L.NewFunction(r.luaPrint))
}

// LoadFile loads and executes a Lua style file
func (r *Runtime) LoadFile(path string) error {
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to load Lua file: %w", err)
	}
	return r.extractCallback()
}

// LoadString loads and executes Lua code from a string
func (r *Runtime) LoadString(code string) error {
	if err := r.L.DoString(code); err != nil {
		return fmt.Errorf("failed to load Lua code: %w", err)
	}
	return r.extractCallback()
}

func (r *Runtime) extractCallback() error {
	fn := r.L.GetGlobal("style")
	if fn.Type() != lua.LTFunction {
		return fmt.Errorf("style script must define a global function style(relation), got %s", fn.Type())
	}
	r.style = fn
	return nil
}

// Style calls the script for one relation
func (r *Runtime) Style(rel *membership.Relation) (render.Style, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.style == nil {
		return r.def, fmt.Errorf("no style script loaded")
	}

	if err := r.L.CallByParam(lua.P{
		Fn:      r.style,
		NRet:    1,
		Protect: true,
	}, r.relationToLua(rel)); err != nil {
		return r.def, fmt.Errorf("lua style(%d): %w", rel.ID, err)
	}

	ret := r.L.Get(-1)
	r.L.Pop(1)

	if ret == lua.LNil {
		return r.def, nil
	}
	s, ok := ret.(lua.LString)
	if !ok {
		return r.def, fmt.Errorf("lua style(%d) returned %s, want string", rel.ID, ret.Type())
	}
	return render.ParseStyle(strings.ToLower(string(s)))
}

// StyleFor makes the runtime a style policy; script errors fall back to the default
func (r *Runtime) StyleFor(rel *membership.Relation) render.Style {
	s, err := r.Style(rel)
	if err != nil {
		r.mu.Lock()
		r.failures++
		r.mu.Unlock()
		r.log.Warn("Style script failed, using default",
			zap.Int64("relation", rel.ID),
			zap.Stringer("default", r.def),
			zap.Error(err))
		return r.def
	}
	return s
}

// Failures returns how many relations fell back to the default style
func (r *Runtime) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// relationToLua converts a relation to {id=, tags=, ways=}
func (r *Runtime) relationToLua(rel *membership.Relation) *lua.LTable {
	L := r.L
	tbl := L.NewTable()

	tbl.RawSetString("id", lua.LNumber(rel.ID))
	tbl.RawSetString("type", lua.LString(membership.MemberRelation))

	tags := L.NewTable()
	for k, v := range rel.Tags {
		tags.RawSetString(k, lua.LString(v))
	}
	tbl.RawSetString("tags", tags)

	ways := L.NewTable()
	for i, id := range rel.Ways {
		ways.RawSetInt(i+1, lua.LNumber(id))
	}
	tbl.RawSetString("ways", ways)

	return tbl
}

// luaPrint routes script output to the debug log
func (r *Runtime) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	r.log.Debug(strings.Join(parts, "\t"))
	return 0
}
