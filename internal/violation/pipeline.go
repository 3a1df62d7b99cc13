package violation

import (
	"context"

	"github.com/erinngo/server/internal/metrics"
	"go.uber.org/zap"
)

// Pipeline sits between packet dispatch and the connection: violations
// returned by handlers become autoban incidents, everything else is passed
// back to the caller.
type Pipeline struct {
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewPipeline(m *metrics.Metrics, log *zap.Logger) *Pipeline {
	return &Pipeline{metrics: m, log: log}
}

// Intercept converts a *SecurityViolation in err into an incident on ab and
// returns nil. Any other error is returned unchanged.
func (p *Pipeline) Intercept(ctx context.Context, ab *Autoban, err error) error {
	if err == nil {
		return nil
	}
	v, ok := As(err)
	if !ok {
		return err
	}
	outcome := ab.Incident(ctx, v.Level, v.Msg)
	p.metrics.Incidents.WithLabelValues(v.Level.String(), outcome.String()).Inc()
	return nil
}
