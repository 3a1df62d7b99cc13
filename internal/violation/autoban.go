package violation

import (
	"context"
	"sync"
	"time"

	"github.com/erinngo/server/internal/config"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Outcome is the action taken for an incident.
type Outcome int

const (
	Warned Outcome = iota
	Disconnected
	Banned
)

func (o Outcome) String() string {
	switch o {
	case Warned:
		return "warned"
	case Disconnected:
		return "disconnected"
	case Banned:
		return "banned"
	default:
		return "unknown"
	}
}

// ParseOutcome is the inverse of Outcome.String; unknown names map to Warned.
func ParseOutcome(s string) Outcome {
	switch s {
	case "disconnected":
		return Disconnected
	case "banned":
		return Banned
	default:
		return Warned
	}
}

// Offender is the connection an Autoban watches.
type Offender interface {
	AccountName() string
	Close()
}

// Incident is one recorded rule breach.
type Incident struct {
	ID      ulid.ULID
	Account string
	Level   Level
	Message string
	Score   int
	Outcome Outcome
	At      time.Time
}

// BanStore persists bans and incident history.
type BanStore interface {
	RecordIncident(ctx context.Context, inc Incident) error
	SaveBan(ctx context.Context, account string, until time.Time, reason string) error
	BanCount(ctx context.Context, account string) (int, error)
}

// Autoban accumulates incident score for one connection and bans the
// account once the score reaches the configured threshold. Score decays by
// ReduceAmount for every ReduceAfter without incidents.
type Autoban struct {
	mu       sync.Mutex
	score    int
	lastAt   time.Time
	offender Offender
	store    BanStore
	cfg      config.AutobanConfig
	now      func() time.Time
	log      *zap.Logger
}

func NewAutoban(offender Offender, store BanStore, cfg config.AutobanConfig, log *zap.Logger) *Autoban {
	return &Autoban{
		offender: offender,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// Score returns the current, not yet decayed, incident score.
func (a *Autoban) Score() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.score
}

func (a *Autoban) amount(level Level) int {
	switch level {
	case Mild:
		return a.cfg.MildAmount
	case Moderate:
		return a.cfg.ModerateAmount
	default:
		return a.cfg.SevereAmount
	}
}

// decay reduces the score for the quiet time since the last incident.
func (a *Autoban) decay(now time.Time) {
	if a.cfg.ReduceAfter <= 0 || a.lastAt.IsZero() {
		return
	}
	steps := int(now.Sub(a.lastAt) / a.cfg.ReduceAfter)
	if steps <= 0 {
		return
	}
	a.score -= steps * a.cfg.ReduceAmount
	if a.score < 0 {
		a.score = 0
	}
}

// Incident records a breach and applies the resulting action.
func (a *Autoban) Incident(ctx context.Context, level Level, msg string) Outcome {
	now := a.now()
	account := a.offender.AccountName()

	a.mu.Lock()
	outcome := Warned
	if a.cfg.Enabled {
		a.decay(now)
		a.score += a.amount(level)
		a.lastAt = now
		if a.score >= a.cfg.BanAtScore {
			outcome = Banned
		}
	}
	if outcome == Warned && level == Severe {
		outcome = Disconnected
	}
	score := a.score
	a.mu.Unlock()

	a.log.Warn("安全事件",
		zap.String("account", account),
		zap.String("level", level.String()),
		zap.String("msg", msg),
		zap.Int("score", score),
		zap.String("outcome", outcome.String()),
	)

	inc := Incident{
		ID:      ulid.Make(),
		Account: account,
		Level:   level,
		Message: msg,
		Score:   score,
		Outcome: outcome,
		At:      now,
	}
	if a.store != nil {
		if err := a.store.RecordIncident(ctx, inc); err != nil {
			a.log.Error("安全事件寫入失敗", zap.Error(err))
		}
	}

	switch outcome {
	case Banned:
		a.ban(ctx, now, msg)
		a.offender.Close()
	case Disconnected:
		a.offender.Close()
	}
	return outcome
}

// ban stores the ban; the duration doubles with every earlier ban when
// IncreaseBanTime is set.
func (a *Autoban) ban(ctx context.Context, now time.Time, reason string) {
	account := a.offender.AccountName()
	if a.store == nil || account == "" {
		return
	}
	dur := a.cfg.BanTime
	if a.cfg.IncreaseBanTime {
		prior, err := a.store.BanCount(ctx, account)
		if err != nil {
			a.log.Error("讀取封鎖次數失敗", zap.String("account", account), zap.Error(err))
		}
		for i := 0; i < prior && i < 16; i++ {
			dur *= 2
		}
	}
	until := now.Add(dur)
	if err := a.store.SaveBan(ctx, account, until, "autoban: "+reason); err != nil {
		a.log.Error("封鎖寫入失敗", zap.String("account", account), zap.Error(err))
		return
	}
	a.log.Warn("帳號已封鎖", zap.String("account", account), zap.Time("until", until))
}
