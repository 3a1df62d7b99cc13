package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/erinngo/server/internal/config"
	"github.com/erinngo/server/internal/core/event"
	"github.com/erinngo/server/internal/data"
	"github.com/erinngo/server/internal/handler"
	"github.com/erinngo/server/internal/locale"
	"github.com/erinngo/server/internal/metrics"
	gonet "github.com/erinngo/server/internal/net"
	"github.com/erinngo/server/internal/persist"
	"github.com/erinngo/server/internal/scripting"
	"github.com/erinngo/server/internal/world"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName, channelName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            ErinnGo Channel v0.1           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m         艾林大陸 · Go 頻道伺服器          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(頻道: %s)\033[0m\n\n", serverName, channelName)
}

// displayWidth counts CJK characters as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := 46 - displayWidth(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - displayWidth(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	deadlock.Opts.Disable = !cfg.Debug.DeadlockDetection
	deadlock.Opts.DeadlockTimeout = cfg.Debug.DeadlockTimeout
	deadlock.Opts.OnPotentialDeadlock = func() {
		log.Error("偵測到可能的死結")
	}

	printBanner(cfg.Server.Name, cfg.Server.ChannelName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Connect to PostgreSQL and run migrations
	printSection("資料庫")

	dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(dbCtx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL 連線成功")

	version, err := persist.RunMigrations(dbCtx, db.Pool)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK(fmt.Sprintf("資料庫遷移完成 (版本 %d)", version))
	fmt.Println()

	accountRepo := persist.NewAccountRepo(db)
	banRepo := persist.NewBanRepo(db)

	// 4. Load data
	printSection("資料載入")

	texts, err := locale.New(cfg.Server.Language)
	if err != nil {
		return fmt.Errorf("locale: %w", err)
	}
	printOK(fmt.Sprintf("語系 %s", texts.Language()))

	regionTable, err := data.LoadRegionTable(cfg.World.RegionFile)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}
	printStat("區域資料", regionTable.Count())

	propDrops, err := data.LoadPropDropTable(cfg.World.PropDropFile)
	if err != nil {
		return fmt.Errorf("load prop drops: %w", err)
	}
	printStat("物件掉落表", propDrops.Count())

	// 5. World
	m := metrics.New()
	if err := db.RegisterMetrics(m.Registry); err != nil {
		return err
	}
	bus := event.NewBus()
	w := world.NewRegistry(cfg.World.VisibleRange, m, log)
	printStat("區域", w.AddRegionsFromData(regionTable))

	var engine *scripting.Engine
	if cfg.Scripting.Enabled {
		engine, err = scripting.NewEngine(cfg.Scripting.Dir, w, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		engine.Subscribe(bus)
		printStat("腳本 NPC", len(w.GetAllGoodNpcs()))
	}
	fmt.Println()

	deps := &handler.Deps{
		Config:    cfg,
		Log:       log,
		World:     w,
		Bus:       bus,
		Accounts:  accountRepo,
		Bans:      banRepo,
		PropDrops: propDrops,
		Texts:     texts,
		Metrics:   m,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	channel := handler.NewChannel(deps)
	handler.SubscribeDaytimeNotice(bus, deps)

	// 6. Network
	netServer, err := gonet.NewServer(cfg.Network.BindAddress, gonet.SessionOptions{
		Network:   cfg.Network,
		RateLimit: cfg.RateLimit,
		Autoban:   cfg.Autoban,
		Bans:      banRepo,
		Framer:    &gonet.Framer{MaxSize: cfg.Network.MaxFrameSize},
		Handler:   channel,
		Metrics:   m,
	}, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	errCh := make(chan error, 2)
	if cfg.Network.WSBindAddress != "" {
		gw := gonet.NewGateway(netServer, log)
		go func() { errCh <- gw.ListenAndServe(ctx, cfg.Network.WSBindAddress, cfg.Network.WSPath) }()
	}
	if cfg.Metrics.Enabled {
		go func() { errCh <- m.Serve(ctx, cfg.Metrics.BindAddress, log) }()
	}

	// 7. Heartbeat
	hb := world.NewHeartbeat(w, bus, m, log)
	go hb.Run(ctx)

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("監聽位址 %s", netServer.Addr().String()))
	if cfg.Network.WSBindAddress != "" {
		printReady(fmt.Sprintf("WebSocket %s%s", cfg.Network.WSBindAddress, cfg.Network.WSPath))
	}
	if cfg.Metrics.Enabled {
		printReady(fmt.Sprintf("監控 http://%s/metrics", cfg.Metrics.BindAddress))
	}
	printReady(fmt.Sprintf("心跳啟動 (間隔: %s)", world.HeartbeatTime))
	fmt.Println()

	reloadCh := make(chan os.Signal, 1)
	signal.Notify(reloadCh, syscall.SIGHUP)
	defer signal.Stop(reloadCh)

	for {
		select {
		case <-reloadCh:
			if engine == nil {
				continue
			}
			if err := engine.Reload(); err != nil {
				log.Error("腳本重新載入失敗", zap.Error(err))
				continue
			}
			log.Info("腳本已重新載入")
		case err := <-errCh:
			if err != nil {
				netServer.Shutdown()
				return fmt.Errorf("http listener: %w", err)
			}
		case <-ctx.Done():
			log.Info("收到關閉信號")
			netServer.Shutdown()
			log.Info("伺服器已停止")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
