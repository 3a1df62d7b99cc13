package world

import "github.com/erinngo/server/internal/net/packet"

// NoticeType selects where the client shows a notice.
type NoticeType byte

const (
	NoticeTop       NoticeType = 1
	NoticeTopRed    NoticeType = 6
	NoticeMiddleTop NoticeType = 7
	NoticeMiddle    NoticeType = 8
)

// NoticePacket builds a notice addressed to everyone.
func NoticePacket(kind NoticeType, msg string) *packet.Packet {
	p := packet.New(packet.OpNotice, packet.Broadcast)
	p.PutByte(byte(kind))
	p.PutString(msg)
	p.PutShort(0) // display time, 0 = client default
	return p
}

// EntityAppearsPacket describes a creature to clients that can see it.
func EntityAppearsPacket(c *Creature) *packet.Packet {
	pos := c.Position()
	p := packet.New(packet.OpEntityAppears, packet.Broadcast)
	p.PutLong(c.EntityID)
	p.PutByte(byte(c.Kind))
	p.PutString(c.Name)
	p.PutInt(c.Race)
	p.PutInt(c.RegionID())
	p.PutInt(pos.X)
	p.PutInt(pos.Y)
	return p
}

func EntityDisappearsPacket(entityID int64) *packet.Packet {
	p := packet.New(packet.OpEntityDisappears, packet.Broadcast)
	p.PutLong(entityID)
	return p
}

func ItemAppearsPacket(regionID int32, it *GroundItem) *packet.Packet {
	p := packet.New(packet.OpItemAppears, packet.Broadcast)
	p.PutLong(it.EntityID)
	p.PutInt(it.ItemID)
	p.PutInt(it.Amount)
	p.PutInt(regionID)
	p.PutInt(it.Pos.X)
	p.PutInt(it.Pos.Y)
	return p
}
