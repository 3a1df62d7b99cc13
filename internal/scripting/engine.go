package scripting

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/erinngo/server/internal/core/event"
	"github.com/erinngo/server/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Hook names looked up as Lua globals. A script defines any subset.
const (
	HookSeconds      = "on_seconds_tick"
	HookMinutes      = "on_minutes_tick"
	HookMabi         = "on_mabi_tick"
	HookHours        = "on_hours_tick"
	HookErinn        = "on_erinn_tick"
	HookErinnDaytime = "on_erinn_daytime"
	HookErinnMidnite = "on_erinn_midnight"
	HookPlayerLogin  = "on_player_login"
)

// Engine wraps a gopher-lua VM that reacts to world events. The VM is not
// goroutine-safe; every call into it holds mu.
type Engine struct {
	mu    sync.Mutex
	vm    *lua.LState
	gen   int // load generation of vm
	dir   string
	world *world.Registry
	log   *zap.Logger
}

// NewEngine creates a Lua engine and loads every script under scriptsDir.
func NewEngine(scriptsDir string, w *world.Registry, log *zap.Logger) (*Engine, error) {
	e := &Engine{dir: scriptsDir, world: w, log: log}
	vm, err := e.newVM(1)
	if err != nil {
		w.RemoveScriptedEntities(1)
		return nil, err
	}
	e.vm = vm
	e.gen = 1
	return e, nil
}

// newVM loads the scripts into a fresh VM whose spawns carry gen. On error
// the caller removes whatever gen spawned before the failure.
func (e *Engine) newVM(gen int) (*lua.LState, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	e.registerAPI(vm, gen)
	if err := e.loadDir(vm, e.dir); err != nil {
		vm.Close()
		return nil, err
	}
	return vm, nil
}

// loadDir loads all .lua files below dir in lexical path order.
func (e *Engine) loadDir(vm *lua.LState, dir string) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".lua" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan scripts %s: %w", dir, err)
	}
	sort.Strings(files)
	for _, path := range files {
		if err := vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("已載入 Lua 腳本", zap.String("file", path))
	}
	return nil
}

// Reload loads every script into a fresh VM and then removes the entities
// the old VM spawned. On error the old VM and its entities stay, and the
// partial load's spawns are removed.
func (e *Engine) Reload() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.gen + 1
	vm, err := e.newVM(next)
	if err != nil {
		e.world.RemoveScriptedEntities(next)
		return err
	}
	removed := e.world.RemoveScriptedEntities(e.gen)
	e.vm.Close()
	e.vm = vm
	e.gen = next
	e.log.Info("腳本已重新載入", zap.Int("removed_entities", removed))
	return nil
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}

// Subscribe connects the script hooks to the world's events.
func (e *Engine) Subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(ev world.SecondsTick) { e.call(HookSeconds, e.timeArg(ev.Now)) })
	event.Subscribe(bus, func(ev world.MinutesTick) { e.call(HookMinutes, e.timeArg(ev.Now)) })
	event.Subscribe(bus, func(ev world.MabiTick) { e.call(HookMabi, e.timeArg(ev.Now)) })
	event.Subscribe(bus, func(ev world.HoursTick) { e.call(HookHours, e.timeArg(ev.Now)) })
	event.Subscribe(bus, func(ev world.ErinnTimeTick) { e.call(HookErinn, e.timeArg(ev.Now)) })
	event.Subscribe(bus, func(ev world.ErinnDaytimeTick) {
		e.call(HookErinnDaytime, e.timeArg(ev.Now), lua.LBool(ev.Dusk))
	})
	event.Subscribe(bus, func(ev world.ErinnMidnightTick) { e.call(HookErinnMidnite, e.timeArg(ev.Now)) })
	event.Subscribe(bus, func(ev event.PlayerLoggedIn) {
		e.call(HookPlayerLogin, lua.LString(ev.CharName), lua.LNumber(ev.RegionID))
	})
}

// timeArg builds the table handed to time hooks. The table is created by
// call, on the VM that runs the hook.
func (e *Engine) timeArg(now world.ErinnTime) func(*lua.LState) lua.LValue {
	return func(vm *lua.LState) lua.LValue {
		t := vm.NewTable()
		t.RawSetString("unix", lua.LNumber(now.Time.Unix()))
		t.RawSetString("hour", lua.LNumber(now.Hour))
		t.RawSetString("minute", lua.LNumber(now.Minute))
		t.RawSetString("day", lua.LNumber(now.Day()))
		t.RawSetString("night", lua.LBool(now.IsNight()))
		return t
	}
}

// call invokes the global hook if a script defined it. Arguments may be
// plain values or builders that create VM-owned values.
func (e *Engine) call(name string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return
	}
	values := make([]lua.LValue, 0, len(args))
	for _, a := range args {
		switch v := a.(type) {
		case lua.LValue:
			values = append(values, v)
		case func(*lua.LState) lua.LValue:
			values = append(values, v(e.vm))
		}
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, values...); err != nil {
		e.log.Error("Lua 鉤子執行錯誤", zap.String("hook", name), zap.Error(err))
	}
}

// HasHook reports whether the loaded scripts define the named hook.
func (e *Engine) HasHook(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.GetGlobal(name).Type() == lua.LTFunction
}
