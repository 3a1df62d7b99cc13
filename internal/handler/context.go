package handler

import (
	"context"
	"math/rand"
	"sync"

	"github.com/erinngo/server/internal/config"
	"github.com/erinngo/server/internal/core/event"
	"github.com/erinngo/server/internal/data"
	"github.com/erinngo/server/internal/locale"
	"github.com/erinngo/server/internal/metrics"
	"github.com/erinngo/server/internal/net"
	"github.com/erinngo/server/internal/net/packet"
	"github.com/erinngo/server/internal/persist"
	"github.com/erinngo/server/internal/violation"
	"github.com/erinngo/server/internal/world"
	"go.uber.org/zap"
)

// AccountStore is the part of persist.AccountRepo the login handler uses.
type AccountStore interface {
	Load(ctx context.Context, name string) (*persist.AccountRow, error)
	Create(ctx context.Context, name, rawPassword, ip string) (*persist.AccountRow, error)
	Touch(ctx context.Context, name, ip string) error
}

// BanStore is violation.BanStore plus the incident history GMs can read.
type BanStore interface {
	violation.BanStore
	Incidents(ctx context.Context, account string, limit int) ([]violation.Incident, error)
}

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Config    *config.Config
	Log       *zap.Logger
	World     *world.Registry
	Bus       *event.Bus
	Accounts  AccountStore
	Bans      BanStore
	PropDrops *data.PropDropTable
	Texts     *locale.Catalog
	Metrics   *metrics.Metrics

	randMu sync.Mutex
	Rand   *rand.Rand
}

// withRand runs fn with exclusive use of the shared random source.
func (d *Deps) withRand(fn func(rng *rand.Rand)) {
	d.randMu.Lock()
	defer d.randMu.Unlock()
	fn(d.Rand)
}

// client is the per-connection state stored in Session.Data once the
// player is in the world. Only the session's reader goroutine touches it.
type client struct {
	creature  *world.Creature
	talkingTo int64 // NPC entity id, 0 when not in a conversation
}

func clientOf(sess *net.Session) *client {
	cl, _ := sess.Data().(*client)
	return cl
}

// controlled returns the creature sess controls. The packet must be
// addressed to that creature.
func controlled(sess *net.Session, p *packet.Packet) (*client, *world.Creature, error) {
	cl := clientOf(sess)
	if cl == nil || cl.creature.EntityID != p.ID {
		return nil, nil, violation.Severef("session %d doesn't control creature 0x%016X", sess.ID, p.ID)
	}
	return cl, cl.creature, nil
}

type sessionHandler func(sess *net.Session, p *packet.Packet, deps *Deps) error

func wrap(fn sessionHandler, deps *Deps) packet.HandlerFunc {
	return func(sess any, p *packet.Packet) error {
		return fn(sess.(*net.Session), p, deps)
	}
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	connected := []packet.SessionState{packet.StateConnected}
	inWorld := []packet.SessionState{packet.StateInWorld}

	reg.Register(packet.OpChannelLogin, connected, wrap(HandleChannelLogin, deps))
	reg.Register(packet.OpDisconnect,
		[]packet.SessionState{packet.StateConnected, packet.StateInWorld},
		wrap(HandleDisconnect, deps),
	)

	reg.Register(packet.OpNpcTalkStart, inWorld, wrap(HandleNpcTalkStart, deps))
	reg.Register(packet.OpNpcTalkEnd, inWorld, wrap(HandleNpcTalkEnd, deps))
	reg.Register(packet.OpHitProp, inWorld, wrap(HandleHitProp, deps))

	// GM control panel
	reg.Register(packet.OpGmcpClose, inWorld, wrap(HandleGmcpClose, deps))
	reg.Register(packet.OpGmcpSummon, inWorld, wrap(HandleGmcpSummon, deps))
	reg.Register(packet.OpGmcpMoveToChar, inWorld, wrap(HandleGmcpMoveToChar, deps))
	reg.Register(packet.OpGmcpWarp, inWorld, wrap(HandleGmcpWarp, deps))
	reg.Register(packet.OpGmcpRevive, inWorld, wrap(HandleGmcpRevive, deps))
	reg.Register(packet.OpGmcpInvisibility, inWorld, wrap(HandleGmcpInvisibility, deps))
	reg.Register(packet.OpGmcpExpel, inWorld, wrap(HandleGmcpExpel, deps))
	reg.Register(packet.OpGmcpBan, inWorld, wrap(HandleGmcpBan, deps))
	reg.Register(packet.OpGmcpNpcList, inWorld, wrap(HandleGmcpNpcList, deps))
	reg.Register(packet.OpGmcpIncidents, inWorld, wrap(HandleGmcpIncidents, deps))
}
