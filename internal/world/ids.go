package world

import "sync/atomic"

// Entity id ranges. Each kind of entity draws from its own range so the
// client can tell them apart from the id alone.
const (
	PlayerIDStart int64 = 0x0010000000000001
	NpcIDStart    int64 = 0x0010F00000000001
	ItemIDStart   int64 = 0x0050000000000001
	PropIDStart   int64 = 0x00A0000000000001
)

// EntityIDs hands out unique entity ids for the lifetime of the process.
type EntityIDs struct {
	player atomic.Int64
	npc    atomic.Int64
	item   atomic.Int64
	prop   atomic.Int64
}

func NewEntityIDs() *EntityIDs {
	ids := &EntityIDs{}
	ids.player.Store(PlayerIDStart - 1)
	ids.npc.Store(NpcIDStart - 1)
	ids.item.Store(ItemIDStart - 1)
	ids.prop.Store(PropIDStart - 1)
	return ids
}

func (ids *EntityIDs) NextPlayer() int64 { return ids.player.Add(1) }
func (ids *EntityIDs) NextNpc() int64    { return ids.npc.Add(1) }
func (ids *EntityIDs) NextItem() int64   { return ids.item.Add(1) }
func (ids *EntityIDs) NextProp() int64   { return ids.prop.Add(1) }
