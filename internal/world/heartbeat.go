package world

import (
	"context"
	"fmt"
	"time"

	"github.com/erinngo/server/internal/core/event"
	"github.com/erinngo/server/internal/metrics"
	"go.uber.org/zap"
)

// HeartbeatTime is the period of the world heartbeat.
const HeartbeatTime = 500 * time.Millisecond

// Gaps this large are clock jumps (suspend, first pulse), not late beats.
const irregularCeiling = 100000000 * time.Millisecond

// Heartbeat raises the periodic time events and drives entity updates.
// Its state belongs to the goroutine calling Pulse.
type Heartbeat struct {
	world   *Registry
	bus     *event.Bus
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time

	last          time.Time
	secondsTime   time.Duration
	minutesTime   time.Duration
	hoursTime     time.Duration
	erinnTime     time.Duration
	mabiTickCount int

	erinnStarted    bool
	lastErinnMinute int64
}

func NewHeartbeat(world *Registry, bus *event.Bus, m *metrics.Metrics, log *zap.Logger) *Heartbeat {
	return &Heartbeat{
		world:   world,
		bus:     bus,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// Run pulses every HeartbeatTime, aligned to the wall clock, until ctx is
// cancelled.
func (h *Heartbeat) Run(ctx context.Context) {
	wait := HeartbeatTime - time.Duration(h.now().UnixNano()%int64(HeartbeatTime))
	timer := time.NewTimer(wait)
	select {
	case <-ctx.Done():
		timer.Stop()
		return
	case <-timer.C:
	}

	ticker := time.NewTicker(HeartbeatTime)
	defer ticker.Stop()

	h.safePulse()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.safePulse()
		}
	}
}

// safePulse keeps the heartbeat alive when a subscriber panics.
func (h *Heartbeat) safePulse() {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("心跳 panic 已恢復", zap.Any("panic", r))
		}
	}()
	h.Pulse(h.now())
}

// Pulse runs one heartbeat at now. The first pulse raises every time event.
func (h *Heartbeat) Pulse(now time.Time) {
	start := time.Now()
	erinn := NewErinnTime(now)

	if h.last.IsZero() {
		h.secondsTime = time.Second
		h.minutesTime = time.Minute
		h.hoursTime = time.Hour
		h.erinnTime = ErinnMinute
	} else {
		diff := now.Sub(h.last)
		if diff < 0 {
			diff = 0
		}
		if off := absDuration(HeartbeatTime - diff); off > HeartbeatTime && diff < irregularCeiling {
			h.log.Warn(fmt.Sprintf("心跳間隔異常: %dms", diff.Milliseconds()))
			h.metrics.HeartbeatIrregular.Inc()
		}
		h.secondsTime += diff
		h.minutesTime += diff
		h.hoursTime += diff
		h.erinnTime += diff
	}
	h.last = now

	if h.secondsTime >= time.Second {
		h.secondsTime %= time.Second
		h.emit("seconds", func() { event.Publish(h.bus, SecondsTick{Now: erinn}) })
	}

	if h.minutesTime >= time.Minute {
		h.minutesTime = sinceMinute(now)
		h.emit("minutes", func() { event.Publish(h.bus, MinutesTick{Now: erinn}) })

		h.mabiTickCount++
		if h.mabiTickCount >= 5 {
			h.mabiTickCount = 0
			h.emit("mabi", func() { event.Publish(h.bus, MabiTick{Now: erinn}) })
		}
	}

	if h.hoursTime >= time.Hour {
		h.hoursTime = time.Duration(now.Minute())*time.Minute + sinceMinute(now)
		h.emit("hours", func() { event.Publish(h.bus, HoursTick{Now: erinn}) })
	}

	if h.erinnTime >= ErinnMinute {
		h.erinnTime %= ErinnMinute
		h.emit("erinn", func() { event.Publish(h.bus, ErinnTimeTick{Now: erinn}) })
		h.erinnBoundaries(erinn)
	}

	h.world.UpdateEntities(now)
	h.metrics.HeartbeatDuration.Observe(time.Since(start).Seconds())
}

// erinnBoundaries raises dawn/dusk and midnight once for every boundary the
// Erinn clock passed since the previous Erinn tick.
func (h *Heartbeat) erinnBoundaries(erinn ErinnTime) {
	cur := erinn.AbsMinute()
	prev := h.lastErinnMinute
	if !h.erinnStarted {
		prev = cur - 1
		h.erinnStarted = true
	}
	if cur <= prev {
		return
	}
	h.lastErinnMinute = cur

	if b := lastBoundary(cur, dawnMinute, duskMinute); b > prev {
		dusk := floorMod(b, erinnMinutesPerDay) == duskMinute
		h.emit("erinn_daytime", func() { event.Publish(h.bus, ErinnDaytimeTick{Now: erinn, Dusk: dusk}) })
	}
	if b := lastBoundary(cur, 0); b > prev {
		h.emit("erinn_midnight", func() { event.Publish(h.bus, ErinnMidnightTick{Now: erinn}) })
	}
}

func (h *Heartbeat) emit(kind string, publish func()) {
	h.metrics.TimeEvents.WithLabelValues(kind).Inc()
	publish()
}

// sinceMinute is the wall-clock time elapsed in now's current minute.
func sinceMinute(now time.Time) time.Duration {
	return time.Duration(now.Second())*time.Second + time.Duration(now.Nanosecond()/1e6)*time.Millisecond
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
