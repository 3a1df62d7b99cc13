package handler

import (
	"fmt"
	"time"

	"github.com/erinngo/server/internal/net"
	"github.com/erinngo/server/internal/net/packet"
	"github.com/erinngo/server/internal/world"
)

// channelID addresses packets to the client's channel connection before a
// creature exists.
const channelID int64 = 0x1000000000000001

// Spawn effect kinds.
const (
	spawnEffectPlayer  byte = 0
	spawnEffectMonster byte = 1
)

// sendMsgBox shows a message box with an OK button.
func sendMsgBox(sess *net.Session, id int64, msg string) {
	p := packet.New(packet.OpMsgBox, id)
	p.PutString(msg)
	p.PutByte(0) // button: OK
	sess.Send(p)
}

// sendServerMessage writes a line into the client's chat log.
func sendServerMessage(sess *net.Session, id int64, msg string) {
	p := packet.New(packet.OpServerMessage, id)
	p.PutString(msg)
	sess.Send(p)
}

func sendChannelLoginR(sess *net.Session, c *world.Creature, now time.Time) {
	p := packet.New(packet.OpChannelLoginR, channelID)
	p.PutByte(1)
	p.PutLong(c.EntityID)
	p.PutTime(now)
	sess.Send(p)
}

func sendChannelLoginFail(sess *net.Session) {
	p := packet.New(packet.OpChannelLoginR, channelID)
	p.PutByte(0)
	sess.Send(p)
}

func sendDisconnectR(sess *net.Session) {
	p := packet.New(packet.OpDisconnectR, channelID)
	p.PutByte(0)
	sess.Send(p)
}

func sendNpcTalkStartR(sess *net.Session, c *world.Creature, npcID int64) {
	p := packet.New(packet.OpNpcTalkStartR, c.EntityID)
	p.PutByte(1)
	p.PutLong(npcID)
	sess.Send(p)
}

func sendNpcTalkStartFail(sess *net.Session, c *world.Creature) {
	p := packet.New(packet.OpNpcTalkStartR, c.EntityID)
	p.PutByte(0)
	sess.Send(p)
}

func sendNpcTalkEndR(sess *net.Session, c *world.Creature, npcID int64, msg string) {
	p := packet.New(packet.OpNpcTalkEndR, c.EntityID)
	p.PutByte(1)
	p.PutLong(npcID)
	if msg != "" {
		p.PutString(msg)
	}
	sess.Send(p)
}

func sendHitPropR(sess *net.Session, c *world.Creature, success bool) {
	p := packet.New(packet.OpHitPropR, c.EntityID)
	p.PutBool(success)
	sess.Send(p)
}

// sendWarpRegion tells the client its creature now stands in another
// region (or elsewhere in the same one).
func sendWarpRegion(c *world.Creature) {
	if c.Session == nil {
		return
	}
	pos := c.Position()
	p := packet.New(packet.OpWarpRegion, c.EntityID)
	p.PutInt(c.RegionID())
	p.PutInt(pos.X)
	p.PutInt(pos.Y)
	c.Session.Send(p)
}

func sendGmcpInvisibilityR(sess *net.Session, c *world.Creature, success bool) {
	p := packet.New(packet.OpGmcpInvisibilityR, c.EntityID)
	p.PutBool(success)
	sess.Send(p)
}

func sendGmcpNpcListR(sess *net.Session, c *world.Creature, npcs []*world.Creature) {
	p := packet.New(packet.OpGmcpNpcListR, c.EntityID)
	p.PutInt(int32(len(npcs)))
	for _, npc := range npcs {
		pos := npc.Position()
		p.PutLong(npc.EntityID)
		p.PutString(npc.Name)
		p.PutInt(npc.RegionID())
		p.PutInt(pos.X)
		p.PutInt(pos.Y)
	}
	sess.Send(p)
}

// ── Effects ──────────────────────────────────────────────────────────

// effectPacket builds an effect on c. Each parameter is written with the
// element type of its Go type; unsupported values are an error.
func effectPacket(c *world.Creature, effectID int32, params ...any) (*packet.Packet, error) {
	p := packet.New(packet.OpEffect, c.EntityID)
	p.PutInt(effectID)
	for i, v := range params {
		if err := p.Put(v); err != nil {
			return nil, fmt.Errorf("effect 0x%X parameter %d: %w", effectID, i, err)
		}
	}
	return p, nil
}

// broadcastEffect shows an effect on c to everyone in range.
func broadcastEffect(w *world.Registry, c *world.Creature, effectID int32, params ...any) error {
	p, err := effectPacket(c, effectID, params...)
	if err != nil {
		return err
	}
	if rg := w.GetRegion(c.RegionID()); rg != nil {
		rg.BroadcastFrom(p, c)
	}
	return nil
}

// broadcastSkillFlash makes c flash briefly.
func broadcastSkillFlash(w *world.Registry, c *world.Creature) error {
	return broadcastEffect(w, c, packet.EffectSkillInit, "flashing")
}

// broadcastSpawnEffect shows the arrival effect where c now stands.
func broadcastSpawnEffect(w *world.Registry, c *world.Creature, kind byte) error {
	pos := c.Position()
	return broadcastEffect(w, c, packet.EffectSpawn, c.RegionID(), float32(pos.X), float32(pos.Y), kind)
}
