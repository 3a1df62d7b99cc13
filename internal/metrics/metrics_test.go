package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Incidents.WithLabelValues("severe", "banned").Inc()
	m.TimeEvents.WithLabelValues("seconds").Add(3)

	if got := testutil.ToFloat64(m.TimeEvents.WithLabelValues("seconds")); got != 3 {
		t.Fatalf("seconds events = %v, want 3", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`erinn_security_incidents_total{level="severe",outcome="banned"} 1`,
		`erinn_time_events_total{kind="seconds"} 3`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
