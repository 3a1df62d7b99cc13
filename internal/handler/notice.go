package handler

import (
	"github.com/erinngo/server/internal/core/event"
	"github.com/erinngo/server/internal/locale"
	"github.com/erinngo/server/internal/world"
)

// SubscribeDaytimeNotice announces Eweca rising at dusk and fading at dawn
// to every player.
func SubscribeDaytimeNotice(bus *event.Bus, deps *Deps) {
	if !deps.Config.World.NoticeOnDaytime {
		return
	}
	event.Subscribe(bus, func(ev world.ErinnDaytimeTick) {
		key := locale.EwecaGone
		if ev.Dusk {
			key = locale.EwecaRising
		}
		deps.World.Broadcast(world.NoticePacket(world.NoticeMiddleTop, deps.Texts.Get(key)))
	})
}
