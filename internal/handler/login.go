package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erinngo/server/internal/core/event"
	"github.com/erinngo/server/internal/locale"
	"github.com/erinngo/server/internal/net"
	"github.com/erinngo/server/internal/net/packet"
	"github.com/erinngo/server/internal/persist"
	"github.com/erinngo/server/internal/violation"
	"github.com/erinngo/server/internal/world"
	"go.uber.org/zap"
)

const (
	loginTimeout  = 5 * time.Second
	maxNameLength = 32
)

// HandleChannelLogin processes a channel login: account name, password and
// character name. The character enters the configured start region.
func HandleChannelLogin(sess *net.Session, p *packet.Packet, deps *Deps) error {
	accountName, err := p.GetString()
	if err != nil {
		return fmt.Errorf("channel login account: %w", err)
	}
	password, err := p.GetString()
	if err != nil {
		return fmt.Errorf("channel login password: %w", err)
	}
	charName, err := p.GetString()
	if err != nil {
		return fmt.Errorf("channel login character: %w", err)
	}

	accountName = strings.TrimSpace(accountName)
	charName = strings.TrimSpace(charName)
	if !validName(accountName) || !validName(charName) {
		return violation.New(violation.Moderate, "invalid login names %q/%q", accountName, charName)
	}

	ctx, cancel := context.WithTimeout(sess.Context(), loginTimeout)
	defer cancel()

	row, err := deps.Accounts.Load(ctx, accountName)
	if err != nil {
		return fmt.Errorf("load account %s: %w", accountName, err)
	}
	switch {
	case row == nil && deps.Config.World.AutoCreate:
		row, err = deps.Accounts.Create(ctx, accountName, password, sess.IP)
		if err != nil {
			return fmt.Errorf("create account %s: %w", accountName, err)
		}
		deps.Log.Info(fmt.Sprintf("自動建立帳號  帳號=%s  IP=%s", accountName, sess.IP))
	case row == nil, !persist.CheckPassword(row.PasswordHash, password):
		sendMsgBox(sess, channelID, deps.Texts.Get(locale.WrongPassword))
		sendChannelLoginFail(sess)
		return violation.New(violation.Mild, "failed login for account %s", accountName)
	}

	now := time.Now()
	if row.BannedAt(now) {
		deps.Log.Info(fmt.Sprintf("封鎖帳號嘗試登入  帳號=%s  IP=%s", accountName, sess.IP))
		sendMsgBox(sess, channelID, deps.Texts.Get(locale.AccountBanned, row.BanExpiration.Format(time.DateTime)))
		sendChannelLoginFail(sess)
		sess.Close()
		return nil
	}

	rg := deps.World.GetRegion(deps.Config.World.StartRegion)
	if rg == nil {
		sendChannelLoginFail(sess)
		return fmt.Errorf("start region %d: %w", deps.Config.World.StartRegion, world.ErrRegionNotFound)
	}
	if deps.World.GetPlayer(charName) != nil {
		deps.Log.Warn("角色已在線上", zap.String("account", accountName), zap.String("char", charName))
		sendChannelLoginFail(sess)
		return nil
	}
	if err := deps.Accounts.Touch(ctx, row.Name, sess.IP); err != nil {
		deps.Log.Warn("更新帳號登入時間失敗", zap.String("account", row.Name), zap.Error(err))
	}

	sess.SetAccountName(row.Name)
	c := world.NewPlayer(deps.World.IDs.NextPlayer(), charName, sess, int(row.Authority))
	sess.SetData(&client{creature: c})
	sess.SetState(packet.StateInWorld)

	sendChannelLoginR(sess, c, now)
	rg.AddCreature(c, world.Position{X: deps.Config.World.StartX, Y: deps.Config.World.StartY})
	rg.BroadcastFrom(world.EntityAppearsPacket(c), c)

	deps.Log.Info(fmt.Sprintf("角色進入世界  帳號=%s  角色=%s  區域=%d", row.Name, charName, rg.ID))
	event.Publish(deps.Bus, event.PlayerLoggedIn{
		EntityID:    c.EntityID,
		AccountName: row.Name,
		CharName:    charName,
		RegionID:    rg.ID,
	})
	return nil
}

// HandleDisconnect processes a client's logout request.
func HandleDisconnect(sess *net.Session, _ *packet.Packet, deps *Deps) error {
	deps.Log.Info(fmt.Sprintf("玩家登出  session=%d  帳號=%s", sess.ID, sess.AccountName()))
	sendDisconnectR(sess)
	sess.Close()
	return nil
}

func validName(s string) bool {
	return s != "" && len(s) <= maxNameLength && !strings.ContainsAny(s, " \t\r\n")
}
