package handler

import (
	"math/rand"
	"time"

	"github.com/erinngo/server/internal/data"
	"github.com/erinngo/server/internal/locale"
	"github.com/erinngo/server/internal/net"
	"github.com/erinngo/server/internal/net/packet"
	"github.com/erinngo/server/internal/violation"
	"github.com/erinngo/server/internal/world"
	"go.uber.org/zap"
)

// HandleHitProp processes a player hitting a prop. Props with a drop type
// spawn one weighted random item from their drop list.
func HandleHitProp(sess *net.Session, p *packet.Packet, deps *Deps) error {
	propID, err := p.GetLong()
	if err != nil {
		return err
	}
	_, c, err := controlled(sess, p)
	if err != nil {
		return err
	}

	rg := deps.World.GetRegion(c.RegionID())
	var prop *world.Prop
	if rg != nil {
		prop = rg.GetProp(propID)
	}
	if prop == nil {
		return violation.Severef("hit non-existing prop 0x%016X", propID)
	}

	var drop *data.PropDrop
	if prop.DropType != 0 && deps.PropDrops != nil {
		drop = deps.PropDrops.Get(prop.DropType)
	}
	if drop == nil {
		sendHitPropR(sess, c, false)
		return nil
	}

	var it *world.GroundItem
	deps.withRand(func(rng *rand.Rand) {
		pick := drop.GetRndItem(rng)
		if pick == nil {
			return
		}
		it = rg.DropFromProp(prop, pick.ItemID, pick.Amount, deps.World.IDs.NextItem(),
			deps.Config.World.ItemLifetime, time.Now(), rng)
	})
	if it == nil {
		deps.Log.Warn("掉落表沒有可掉落物品", zap.Int32("drop_type", prop.DropType))
		sendServerMessage(sess, c.EntityID, deps.Texts.Get(locale.NothingDropped))
		sendHitPropR(sess, c, false)
		return nil
	}

	sendHitPropR(sess, c, true)
	return broadcastSkillFlash(deps.World, c)
}
