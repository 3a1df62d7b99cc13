package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/erinngo/server/internal/locale"
	"github.com/erinngo/server/internal/net"
	"github.com/erinngo/server/internal/net/packet"
	"github.com/erinngo/server/internal/violation"
	"github.com/erinngo/server/internal/world"
	"go.uber.org/zap"
)

// gmcpCreature returns the creature behind a GM control panel packet.
// Using the panel without GM authority is a severe violation.
func gmcpCreature(sess *net.Session, p *packet.Packet, deps *Deps) (*world.Creature, error) {
	_, c, err := controlled(sess, p)
	if err != nil {
		return nil, err
	}
	if c.Authority < deps.Config.World.GMAuthority {
		return nil, violation.Severef("used GMCP 0x%04X without authority (%d)", p.Op, c.Authority)
	}
	return c, nil
}

// findPlayer looks a player up by name and tells the GM when nobody matches.
func findPlayer(sess *net.Session, gm *world.Creature, name string, deps *Deps) *world.Creature {
	target := deps.World.GetPlayer(name)
	if target == nil {
		sendMsgBox(sess, gm.EntityID, deps.Texts.Get(locale.TargetNotFound, name))
	}
	return target
}

// warp moves c and tells its client. The arrival effect is best effort.
func warp(deps *Deps, c *world.Creature, regionID int32, pos world.Position) error {
	if err := deps.World.Warp(c, regionID, pos); err != nil {
		return err
	}
	sendWarpRegion(c)
	if rg := deps.World.GetRegion(regionID); rg != nil {
		rg.BroadcastFrom(world.EntityAppearsPacket(c), c)
	}
	if err := broadcastSpawnEffect(deps.World, c, spawnEffectPlayer); err != nil {
		deps.Log.Debug("傳送特效失敗", zap.Error(err))
	}
	return nil
}

func HandleGmcpClose(sess *net.Session, p *packet.Packet, deps *Deps) error {
	_, err := gmcpCreature(sess, p, deps)
	return err
}

// HandleGmcpSummon pulls another player to the GM.
func HandleGmcpSummon(sess *net.Session, p *packet.Packet, deps *Deps) error {
	name, err := p.GetString()
	if err != nil {
		return err
	}
	gm, err := gmcpCreature(sess, p, deps)
	if err != nil {
		return err
	}
	target := findPlayer(sess, gm, name, deps)
	if target == nil {
		return nil
	}
	if err := warp(deps, target, gm.RegionID(), gm.Position()); err != nil {
		return fmt.Errorf("summon %s: %w", name, err)
	}
	if target.Session != nil {
		sendServerMessage(target.Session, target.EntityID, deps.Texts.Get(locale.SummonedBy, gm.Name))
	}
	deps.Log.Info(fmt.Sprintf("GM 召喚  GM=%s  目標=%s", gm.Name, target.Name))
	return nil
}

// HandleGmcpMoveToChar moves the GM to any creature by name.
func HandleGmcpMoveToChar(sess *net.Session, p *packet.Packet, deps *Deps) error {
	name, err := p.GetString()
	if err != nil {
		return err
	}
	gm, err := gmcpCreature(sess, p, deps)
	if err != nil {
		return err
	}
	target := deps.World.GetCreatureByName(name)
	if target == nil {
		sendMsgBox(sess, gm.EntityID, deps.Texts.Get(locale.TargetNotFound, name))
		return nil
	}
	return warp(deps, gm, target.RegionID(), target.Position())
}

func HandleGmcpWarp(sess *net.Session, p *packet.Packet, deps *Deps) error {
	regionID, err := p.GetInt()
	if err != nil {
		return err
	}
	x, err := p.GetInt()
	if err != nil {
		return err
	}
	y, err := p.GetInt()
	if err != nil {
		return err
	}
	gm, err := gmcpCreature(sess, p, deps)
	if err != nil {
		return err
	}
	if !deps.World.HasRegion(regionID) {
		sendMsgBox(sess, gm.EntityID, deps.Texts.Get(locale.UnknownRegion, regionID))
		return nil
	}
	return warp(deps, gm, regionID, world.Position{X: x, Y: y})
}

// HandleGmcpRevive brings the GM back from a knock out.
func HandleGmcpRevive(sess *net.Session, p *packet.Packet, deps *Deps) error {
	gm, err := gmcpCreature(sess, p, deps)
	if err != nil {
		return err
	}
	if !gm.RemoveCondition(world.ConditionDead) {
		return nil
	}
	if rg := deps.World.GetRegion(gm.RegionID()); rg != nil {
		rg.BroadcastFrom(world.EntityAppearsPacket(gm), gm)
	}
	return broadcastSkillFlash(deps.World, gm)
}

func HandleGmcpInvisibility(sess *net.Session, p *packet.Packet, deps *Deps) error {
	on, err := p.GetBool()
	if err != nil {
		return err
	}
	gm, err := gmcpCreature(sess, p, deps)
	if err != nil {
		return err
	}
	gm.SetInvisible(on)
	if rg := deps.World.GetRegion(gm.RegionID()); rg != nil {
		if on {
			rg.BroadcastFrom(world.EntityDisappearsPacket(gm.EntityID), gm)
		} else {
			rg.BroadcastFrom(world.EntityAppearsPacket(gm), gm)
		}
	}
	sendGmcpInvisibilityR(sess, gm, true)
	return nil
}

// HandleGmcpExpel disconnects another player.
func HandleGmcpExpel(sess *net.Session, p *packet.Packet, deps *Deps) error {
	name, err := p.GetString()
	if err != nil {
		return err
	}
	gm, err := gmcpCreature(sess, p, deps)
	if err != nil {
		return err
	}
	target := findPlayer(sess, gm, name, deps)
	if target == nil {
		return nil
	}
	if target.Session != nil {
		target.Session.Close()
	}
	sendMsgBox(sess, gm.EntityID, deps.Texts.Get(locale.TargetKicked, target.Name))
	deps.Log.Info(fmt.Sprintf("GM 踢出  GM=%s  目標=%s", gm.Name, target.Name))
	return nil
}

// HandleGmcpBan bans another player's account for the given number of
// minutes and disconnects them.
func HandleGmcpBan(sess *net.Session, p *packet.Packet, deps *Deps) error {
	name, err := p.GetString()
	if err != nil {
		return err
	}
	minutes, err := p.GetInt()
	if err != nil {
		return err
	}
	reason, err := p.GetString()
	if err != nil {
		return err
	}
	gm, err := gmcpCreature(sess, p, deps)
	if err != nil {
		return err
	}
	target := findPlayer(sess, gm, name, deps)
	if target == nil || target.Session == nil {
		return nil
	}

	until := time.Now().Add(time.Duration(minutes) * time.Minute)
	ctx, cancel := context.WithTimeout(sess.Context(), loginTimeout)
	defer cancel()
	if err := deps.Bans.SaveBan(ctx, target.Session.AccountName(), until, reason); err != nil {
		return fmt.Errorf("ban %s: %w", target.Name, err)
	}
	target.Session.Close()

	sendMsgBox(sess, gm.EntityID, deps.Texts.Get(locale.TargetBanned, target.Name, until.Format(time.DateTime)))
	deps.Log.Info(fmt.Sprintf("GM 封鎖  GM=%s  目標=%s  分鐘=%d  原因=%s", gm.Name, target.Name, minutes, reason))
	return nil
}

func HandleGmcpNpcList(sess *net.Session, p *packet.Packet, deps *Deps) error {
	gm, err := gmcpCreature(sess, p, deps)
	if err != nil {
		return err
	}
	sendGmcpNpcListR(sess, gm, deps.World.GetAllGoodNpcs())
	return nil
}

const incidentListLimit = 10

// HandleGmcpIncidents lists an online player's latest security incidents
// to the GM, newest first.
func HandleGmcpIncidents(sess *net.Session, p *packet.Packet, deps *Deps) error {
	name, err := p.GetString()
	if err != nil {
		return err
	}
	gm, err := gmcpCreature(sess, p, deps)
	if err != nil {
		return err
	}
	target := findPlayer(sess, gm, name, deps)
	if target == nil || target.Session == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(sess.Context(), loginTimeout)
	defer cancel()
	list, err := deps.Bans.Incidents(ctx, target.Session.AccountName(), incidentListLimit)
	if err != nil {
		return fmt.Errorf("incidents of %s: %w", target.Name, err)
	}
	if len(list) == 0 {
		sendServerMessage(sess, gm.EntityID, deps.Texts.Get(locale.IncidentsNone, target.Name))
		return nil
	}
	for _, inc := range list {
		sendServerMessage(sess, gm.EntityID, deps.Texts.Get(locale.IncidentLine,
			inc.At.Format(time.DateTime), inc.Level, inc.Outcome, inc.Score, inc.Message))
	}
	return nil
}
