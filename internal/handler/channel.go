package handler

import (
	"fmt"

	"github.com/erinngo/server/internal/core/event"
	"github.com/erinngo/server/internal/net"
	"github.com/erinngo/server/internal/net/packet"
	"github.com/erinngo/server/internal/violation"
	"github.com/erinngo/server/internal/world"
	"go.uber.org/zap"
)

// Channel is the net.PacketHandler of the channel server. Handler errors
// pass through the violation pipeline; whatever it does not consume is
// logged and the connection carries on.
type Channel struct {
	reg      *packet.Registry
	pipeline *violation.Pipeline
	deps     *Deps
}

func NewChannel(deps *Deps) *Channel {
	reg := packet.NewRegistry(deps.Log)
	RegisterAll(reg, deps)
	return &Channel{
		reg:      reg,
		pipeline: violation.NewPipeline(deps.Metrics, deps.Log),
		deps:     deps,
	}
}

func (ch *Channel) HandlePacket(s *net.Session, p *packet.Packet) {
	err := ch.reg.Dispatch(s, s.State(), p)
	if err = ch.pipeline.Intercept(s.Context(), s.Autoban, err); err != nil {
		s.Log().Error("處理封包失敗",
			zap.String("op", fmt.Sprintf("0x%04X", p.Op)),
			zap.String("account", s.AccountName()),
			zap.Error(err),
		)
	}
}

// HandleMalformed treats bytes that do not decode as a packet as a severe
// incident.
func (ch *Channel) HandleMalformed(s *net.Session, err error) {
	v := violation.Severef("malformed packet: %v", err)
	ch.pipeline.Intercept(s.Context(), s.Autoban, v)
}

// OnClose takes the player out of the world.
func (ch *Channel) OnClose(s *net.Session) {
	s.SetState(packet.StateDisconnecting)
	cl := clientOf(s)
	if cl == nil {
		return
	}
	c := cl.creature
	if rg := ch.deps.World.GetRegion(c.RegionID()); rg != nil && rg.RemoveCreature(c) {
		rg.BroadcastFrom(world.EntityDisappearsPacket(c.EntityID), c)
	}
	ch.deps.Log.Info(fmt.Sprintf("角色離開世界  帳號=%s  角色=%s", s.AccountName(), c.Name))
	event.Publish(ch.deps.Bus, event.PlayerDisconnected{
		EntityID:    c.EntityID,
		SessionID:   s.ID,
		AccountName: s.AccountName(),
	})
}
