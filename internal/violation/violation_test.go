package violation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/erinngo/server/internal/config"
	"github.com/erinngo/server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

type fakeOffender struct {
	account string
	closed  int
}

func (f *fakeOffender) AccountName() string { return f.account }
func (f *fakeOffender) Close()              { f.closed++ }

type fakeStore struct {
	mu        sync.Mutex
	incidents []Incident
	bans      map[string]time.Time
	prior     int
}

func (s *fakeStore) RecordIncident(_ context.Context, inc Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents = append(s.incidents, inc)
	return nil
}

func (s *fakeStore) SaveBan(_ context.Context, account string, until time.Time, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bans == nil {
		s.bans = make(map[string]time.Time)
	}
	s.bans[account] = until
	return nil
}

func (s *fakeStore) BanCount(context.Context, string) (int, error) { return s.prior, nil }

func testConfig() config.AutobanConfig {
	return config.Defaults().Autoban
}

func newTestAutoban(cfg config.AutobanConfig) (*Autoban, *fakeOffender, *fakeStore, *time.Time) {
	off := &fakeOffender{account: "player1"}
	store := &fakeStore{}
	ab := NewAutoban(off, store, cfg, zap.NewNop())
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ab.now = func() time.Time { return clock }
	return ab, off, store, &clock
}

func TestSecurityViolationAs(t *testing.T) {
	err := fmt.Errorf("npc talk: %w", Severef("npc %d does not exist", 42))
	v, ok := As(err)
	if !ok {
		t.Fatal("As did not find wrapped violation")
	}
	if v.Level != Severe {
		t.Errorf("level = %v, want severe", v.Level)
	}
	if v.Msg != "npc 42 does not exist" {
		t.Errorf("msg = %q", v.Msg)
	}
	if _, ok := As(errors.New("plain")); ok {
		t.Error("plain error reported as violation")
	}
}

func TestIncidentOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		levels  []Level
		want    Outcome
		closed  int
	}{
		{"mild warns", true, []Level{Mild}, Warned, 0},
		{"moderate warns", true, []Level{Moderate}, Warned, 0},
		{"severe bans at default threshold", true, []Level{Severe}, Banned, 1},
		{"moderates accumulate to ban", true, []Level{Moderate, Moderate}, Banned, 1},
		{"disabled severe disconnects", false, []Level{Severe}, Disconnected, 1},
		{"disabled mild warns", false, []Level{Mild, Mild}, Warned, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Enabled = tt.enabled
			ab, off, store, _ := newTestAutoban(cfg)

			var got Outcome
			for _, l := range tt.levels {
				got = ab.Incident(context.Background(), l, "test")
			}
			if got != tt.want {
				t.Errorf("outcome = %v, want %v", got, tt.want)
			}
			if off.closed != tt.closed {
				t.Errorf("closed %d times, want %d", off.closed, tt.closed)
			}
			if len(store.incidents) != len(tt.levels) {
				t.Errorf("recorded %d incidents, want %d", len(store.incidents), len(tt.levels))
			}
			_, banned := store.bans["player1"]
			if banned != (tt.want == Banned) {
				t.Errorf("ban stored = %v, want %v", banned, tt.want == Banned)
			}
		})
	}
}

func TestSevereDisconnectsBelowThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.BanAtScore = 100
	ab, off, store, _ := newTestAutoban(cfg)

	if got := ab.Incident(context.Background(), Severe, "bad"); got != Disconnected {
		t.Fatalf("outcome = %v, want disconnected", got)
	}
	if off.closed != 1 {
		t.Errorf("closed %d times, want 1", off.closed)
	}
	if len(store.bans) != 0 {
		t.Error("ban stored below threshold")
	}
}

func TestScoreDecay(t *testing.T) {
	cfg := testConfig()
	cfg.ReduceAfter = time.Minute
	cfg.ReduceAmount = 2
	ab, _, _, clock := newTestAutoban(cfg)

	ab.Incident(context.Background(), Moderate, "a") // 5
	*clock = clock.Add(2 * time.Minute)              // -4
	ab.Incident(context.Background(), Mild, "b")     // 1 + 1
	if got := ab.Score(); got != 2 {
		t.Fatalf("score = %d, want 2", got)
	}

	*clock = clock.Add(time.Hour)
	ab.Incident(context.Background(), Mild, "c")
	if got := ab.Score(); got != 1 {
		t.Fatalf("score = %d, want 1 (decay floors at zero)", got)
	}
}

func TestBanTimeGrows(t *testing.T) {
	cfg := testConfig()
	ab, _, store, clock := newTestAutoban(cfg)
	store.prior = 2

	ab.Incident(context.Background(), Severe, "x")
	want := clock.Add(4 * cfg.BanTime)
	if got := store.bans["player1"]; !got.Equal(want) {
		t.Fatalf("ban until %v, want %v", got, want)
	}
}

func TestPipelineIntercept(t *testing.T) {
	m := metrics.New()
	p := NewPipeline(m, zap.NewNop())
	ab, off, _, _ := newTestAutoban(testConfig())

	if err := p.Intercept(context.Background(), ab, nil); err != nil {
		t.Fatalf("nil error: got %v", err)
	}

	other := errors.New("database down")
	if err := p.Intercept(context.Background(), ab, other); err != other {
		t.Fatalf("non-violation error changed: %v", err)
	}
	if off.closed != 0 {
		t.Fatal("non-violation error closed the connection")
	}

	wrapped := fmt.Errorf("gmcp: %w", Severef("no authority"))
	if err := p.Intercept(context.Background(), ab, wrapped); err != nil {
		t.Fatalf("violation not swallowed: %v", err)
	}
	if off.closed != 1 {
		t.Errorf("closed %d times, want 1", off.closed)
	}
	if got := testutil.ToFloat64(m.Incidents.WithLabelValues("severe", "banned")); got != 1 {
		t.Errorf("incident metric = %v, want 1", got)
	}
}

func TestBanBeforeLoginOnlyDisconnects(t *testing.T) {
	ab, off, store, _ := newTestAutoban(testConfig())
	off.account = ""
	if got := ab.Incident(context.Background(), Severe, "malformed"); got != Banned {
		t.Fatalf("outcome = %v", got)
	}
	if off.closed != 1 {
		t.Error("connection not closed")
	}
	if len(store.bans) != 0 {
		t.Error("ban stored for anonymous connection")
	}
}

func TestParseOutcome(t *testing.T) {
	for _, o := range []Outcome{Warned, Disconnected, Banned} {
		if got := ParseOutcome(o.String()); got != o {
			t.Errorf("ParseOutcome(%q) = %v", o.String(), got)
		}
	}
}
