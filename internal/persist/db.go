package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/erinngo/server/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// DB wraps the pgx pool that backs accounts and security incidents.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// poolConfig maps the database section onto a pgx pool config. Idle
// connections are kept open as the pool minimum, capped at the maximum.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolCfg.MinConns = int32(min(max(cfg.MaxIdleConns, 0), int(poolCfg.MaxConns)))
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	return poolCfg, nil
}

func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn := poolCfg.ConnConfig

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to %s:%d/%s: %w", conn.Host, conn.Port, conn.Database, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s:%d/%s: %w", conn.Host, conn.Port, conn.Database, err)
	}

	log.Info("資料庫連線池建立",
		zap.String("host", conn.Host),
		zap.Uint16("port", conn.Port),
		zap.String("database", conn.Database),
		zap.String("user", conn.User),
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Int32("min_conns", poolCfg.MinConns),
	)
	return &DB{Pool: pool, log: log}, nil
}

// RegisterMetrics exposes the pool's connection counts on reg.
func (db *DB) RegisterMetrics(reg prometheus.Registerer) error {
	gauge := func(name, help string, value func(*pgxpool.Stat) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "erinn",
			Subsystem: "db",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(db.Pool.Stat())) })
	}
	for _, c := range []prometheus.Collector{
		gauge("conns_acquired", "Pool connections in use.", (*pgxpool.Stat).AcquiredConns),
		gauge("conns_idle", "Idle pool connections.", (*pgxpool.Stat).IdleConns),
		gauge("conns_total", "Open pool connections.", (*pgxpool.Stat).TotalConns),
	} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register db metrics: %w", err)
		}
	}
	return nil
}

func (db *DB) Close() {
	db.Pool.Close()
}
