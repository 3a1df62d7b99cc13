package scripting

import (
	"github.com/erinngo/server/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerAPI exposes world functions to scripts. The functions run while
// the engine lock is held and may take the registry lock; scripts are never
// called with a registry or region lock held.
func (e *Engine) registerAPI(vm *lua.LState, gen int) {
	vm.SetGlobal("log_info", vm.NewFunction(func(L *lua.LState) int {
		e.log.Info("腳本訊息", zap.String("msg", L.CheckString(1)))
		return 0
	}))

	vm.SetGlobal("notice", vm.NewFunction(func(L *lua.LState) int {
		e.world.Broadcast(world.NoticePacket(world.NoticeMiddleTop, L.CheckString(1)))
		return 0
	}))

	vm.SetGlobal("region_count", vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(e.world.Count()))
		return 1
	}))

	vm.SetGlobal("player_count", vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(len(e.world.GetAllPlayers())))
		return 1
	}))

	// spawn_npc(region, name, race, x, y [, script]) -> entity id or nil
	vm.SetGlobal("spawn_npc", vm.NewFunction(func(L *lua.LState) int {
		regionID := int32(L.CheckInt(1))
		rg := e.world.GetRegion(regionID)
		if rg == nil {
			L.Push(lua.LNil)
			return 1
		}
		npc := world.NewNPC(e.world.IDs.NextNpc(), L.CheckString(2), int32(L.CheckInt(3)), L.OptString(6, ""))
		npc.Scripted = true
		npc.ScriptGen = gen
		rg.AddCreature(npc, world.Position{X: int32(L.CheckInt(4)), Y: int32(L.CheckInt(5))})
		rg.BroadcastFrom(world.EntityAppearsPacket(npc), npc)
		L.Push(lua.LNumber(npc.EntityID))
		return 1
	}))

	// spawn_prop(region, prop_id, x, y, drop_type) -> entity id or nil
	vm.SetGlobal("spawn_prop", vm.NewFunction(func(L *lua.LState) int {
		rg := e.world.GetRegion(int32(L.CheckInt(1)))
		if rg == nil {
			L.Push(lua.LNil)
			return 1
		}
		prop := &world.Prop{
			EntityID:  e.world.IDs.NextProp(),
			PropID:    int32(L.CheckInt(2)),
			Pos:       world.Position{X: int32(L.CheckInt(3)), Y: int32(L.CheckInt(4))},
			DropType:  int32(L.OptInt(5, 0)),
			Scripted:  true,
			ScriptGen: gen,
		}
		rg.AddProp(prop)
		L.Push(lua.LNumber(prop.EntityID))
		return 1
	}))
}
