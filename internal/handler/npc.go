package handler

import (
	"github.com/erinngo/server/internal/locale"
	"github.com/erinngo/server/internal/net"
	"github.com/erinngo/server/internal/net/packet"
	"github.com/erinngo/server/internal/violation"
	"go.uber.org/zap"
)

// HandleNpcTalkStart opens a conversation with an NPC the player stands
// next to.
func HandleNpcTalkStart(sess *net.Session, p *packet.Packet, deps *Deps) error {
	npcID, err := p.GetLong()
	if err != nil {
		return err
	}
	cl, c, err := controlled(sess, p)
	if err != nil {
		return err
	}

	npc := deps.World.GetNpc(npcID)
	if npc == nil {
		return violation.Severef("tried to talk to non-existing NPC 0x%016X", npcID)
	}
	if npc.Script == "" {
		deps.Log.Warn("NPC 沒有對話腳本", zap.Int64("npc", npc.EntityID), zap.String("name", npc.Name))
		sendNpcTalkStartFail(sess, c)
		return nil
	}
	if npc.RegionID() != c.RegionID() || !c.Position().InRange(npc.Position(), deps.Config.World.NpcTalkRange) {
		sendMsgBox(sess, c.EntityID, deps.Texts.Get(locale.NpcTooFar))
		sendNpcTalkStartFail(sess, c)
		return nil
	}

	cl.talkingTo = npc.EntityID
	sendNpcTalkStartR(sess, c, npc.EntityID)
	return nil
}

// HandleNpcTalkEnd closes the current conversation.
func HandleNpcTalkEnd(sess *net.Session, p *packet.Packet, deps *Deps) error {
	npcID, err := p.GetLong()
	if err != nil {
		return err
	}
	if _, err := p.GetByte(); err != nil {
		return err
	}
	cl, c, err := controlled(sess, p)
	if err != nil {
		return err
	}
	if cl.talkingTo == 0 || cl.talkingTo != npcID {
		return violation.Severef("ended conversation with NPC 0x%016X it wasn't talking to", npcID)
	}

	cl.talkingTo = 0
	sendNpcTalkEndR(sess, c, npcID, "")
	return nil
}
