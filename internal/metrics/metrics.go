// Package metrics holds the Prometheus collectors of the channel server.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Metrics struct {
	Registry *prometheus.Registry

	HeartbeatDuration  prometheus.Histogram
	HeartbeatIrregular prometheus.Counter
	TimeEvents         *prometheus.CounterVec // kind
	Regions            prometheus.Gauge
	Sessions           prometheus.Gauge
	FramesIn           prometheus.Counter
	FramesOut          prometheus.Counter
	Incidents          *prometheus.CounterVec // level, outcome
}

// New creates the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		HeartbeatDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "erinn",
			Name:      "heartbeat_duration_seconds",
			Help:      "Time spent in one heartbeat pulse.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		HeartbeatIrregular: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "erinn",
			Name:      "heartbeat_irregular_total",
			Help:      "Heartbeats that fired far from the expected interval.",
		}),
		TimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erinn",
			Name:      "time_events_total",
			Help:      "Time events raised by the heartbeat.",
		}, []string{"kind"}),
		Regions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "erinn",
			Name:      "regions",
			Help:      "Regions currently registered.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "erinn",
			Name:      "sessions",
			Help:      "Open client connections.",
		}),
		FramesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "erinn",
			Name:      "frames_received_total",
			Help:      "Frames read from clients.",
		}),
		FramesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "erinn",
			Name:      "frames_sent_total",
			Help:      "Frames written to clients.",
		}),
		Incidents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erinn",
			Name:      "security_incidents_total",
			Help:      "Security incidents by level and outcome.",
		}, []string{"level", "outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HeartbeatDuration,
		m.HeartbeatIrregular,
		m.TimeEvents,
		m.Regions,
		m.Sessions,
		m.FramesIn,
		m.FramesOut,
		m.Incidents,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("監控端點啟動", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
