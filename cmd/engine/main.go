package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	pyroscope "github.com/grafana/pyroscope-go"
	"go.uber.org/zap"

	"hft-engine-go/config"
	"hft-engine-go/feed"
	"hft-engine-go/gateway"
	"hft-engine-go/infrastructure/logger"
	"hft-engine-go/internal/engine"
	"hft-engine-go/monitor"
	"hft-engine-go/queue"
	"hft-engine-go/risk"
	"hft-engine-go/strategy"
)

func main() {
	cfgPath := flag.String("config", "configs/engine.yaml", "配置文件路径")
	mode := flag.String("mode", "", "覆盖行情模式 (live|replay|synthetic)")
	dryRun := flag.Bool("dryRun", false, "强制使用mock网关，不真正下单")
	metricsAddr := flag.String("metricsAddr", "", "覆盖 Prometheus metrics 监听地址")
	pyroscopeAddr := flag.String("pyroscope", "", "pyroscope 服务地址，留空关闭持续性能分析")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *mode != "" {
		cfg.Feed.Mode = *mode
		if err := config.Validate(cfg); err != nil {
			log.Fatalf("配置校验失败: %v", err)
		}
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	lg, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	mon := monitor.New(monitor.DefaultConfig())
	metricsSrv := serveMetrics(cfg.Metrics.Addr, mon, lg)

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "hft-engine",
			ServerAddress:   *pyroscopeAddr,
			Tags:            map[string]string{"env": cfg.Env},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			lg.Warn("pyroscope start failed", zap.Error(err))
		} else {
			defer profiler.Stop()
		}
	}

	ring, err := queue.NewRing(cfg.Engine.QueueCapacity)
	if err != nil {
		lg.Fatal("创建行情队列失败", zap.Error(err))
	}

	gw := buildGateway(cfg, *dryRun, mon, lg)

	strategies := make([]strategy.Strategy, 0, len(cfg.Engine.Strategies))
	for _, name := range cfg.Engine.Strategies {
		kind, err := strategy.ParseKind(name)
		if err != nil {
			lg.Fatal("未知策略", zap.String("name", name), zap.Error(err))
		}
		strategies = append(strategies, strategy.New(kind))
	}

	var rateLimiter *gateway.TokenBucketLimiter
	if cfg.Risk.MaxOrdersPerSecond > 0 {
		burst := int(cfg.Risk.MaxOrdersPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter = gateway.NewTokenBucketLimiter(cfg.Risk.MaxOrdersPerSecond, burst)
	}

	eng, err := engine.New(engine.Config{Core: cfg.Engine.Core}, engine.Components{
		Queue:       ring,
		Gateway:     gw,
		Limiter:     risk.NewLimiter(cfg.Risk),
		Exposure:    risk.NewExposureTracker(),
		Strategies:  strategies,
		RateLimiter: rateLimiter,
		Monitor:     mon,
		Logger:      lg.WithFields(map[string]interface{}{"component": "engine"}),
	})
	if err != nil {
		lg.Fatal("初始化引擎失败", zap.Error(err))
	}

	// 配置watcher：风控参数运行期只读，变更只提示重启
	watcher, err := config.NewWatcher(*cfgPath, lg)
	if err != nil {
		lg.Warn("config watcher unavailable", zap.Error(err))
	}
	if watcher != nil {
		watcher.OnValid = func(next config.AppConfig) {
			lg.LogRisk("limits_changed_restart_required", map[string]interface{}{
				"max_spread_bps": next.Risk.MaxSpreadBps,
				"max_notional":   next.Risk.MaxNotional,
				"daily_loss_cap": next.Risk.DailyLossCap,
			})
		}
	}

	feedCtx, cancelFeeds := context.WithCancel(context.Background())
	defer cancelFeeds()

	if watcher != nil {
		if err := watcher.Start(feedCtx); err != nil {
			lg.Warn("config watcher start failed", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	feedDone := startFeed(feedCtx, cfg, ring, mon,
		lg.WithFields(map[string]interface{}{"component": "feed"}))

	engineErr := make(chan error, 1)
	go func() { engineErr <- eng.Run() }()

	notifySystemd(lg)
	stopWatchdog := startWatchdog(lg)
	defer stopWatchdog()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		lg.Info("signal received, shutting down", zap.String("signal", sig.String()))
	case err := <-feedDone:
		// 有限行情源（回放/合成）结束：排空队列后停止
		if err != nil && !errors.Is(err, context.Canceled) {
			lg.LogError(err, map[string]interface{}{
				"component": "feed",
				"mode":      cfg.Feed.Mode,
			})
		} else {
			drain(ring, 5*time.Second)
		}
	case err := <-engineErr:
		if err != nil {
			lg.Error("engine exited", zap.Error(err))
		}
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	cancelFeeds()
	eng.Stop()
	select {
	case <-eng.Done():
	case <-time.After(5 * time.Second):
		lg.Error("engine did not stop in time")
	}

	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(ctx)
	}

	lg.Info("shutdown complete",
		zap.Uint64("ticks", mon.TickCount()),
		zap.Uint64("orders", mon.OrderCount()),
		zap.Float64("ticks_per_sec", mon.TicksPerSec()))
}

// buildGateway 按配置选择网关实现。paper/dryRun 走mock，live 走REST。
func buildGateway(cfg config.AppConfig, dryRun bool, mon *monitor.Monitor, lg *logger.Logger) gateway.Gateway {
	if cfg.Gateway.Paper || dryRun {
		lg.Info("using mock gateway", zap.Bool("dry_run", dryRun))
		mock := gateway.NewMock()
		mock.Observer = mon
		return mock
	}
	lg.Info("using broker gateway", zap.String("base_url", cfg.Gateway.BaseURL))
	return &gateway.Broker{
		BaseURL:    cfg.Gateway.BaseURL,
		APIKey:     cfg.Gateway.APIKey,
		APISecret:  cfg.Gateway.APISecret,
		HTTPClient: gateway.NewDefaultHTTPClient(),
		Logger:     lg.Logger,
		Observer:   mon,
	}
}

// startFeed 启动配置的行情源，返回完成通知channel。
func startFeed(ctx context.Context, cfg config.AppConfig, ring *queue.Ring, mon *monitor.Monitor, lg *logger.Logger) <-chan error {
	var producer feed.Producer
	switch cfg.Feed.Mode {
	case config.FeedLive:
		producer = feed.NewWS(cfg.Feed.Endpoint, ring, mon, lg)
	case config.FeedReplay:
		producer = &feed.Replay{
			Path:   cfg.Feed.ReplayPath,
			Speed:  cfg.Feed.ReplaySpeed,
			Ring:   ring,
			Drops:  mon,
			Logger: lg,
		}
	case config.FeedSynthetic:
		producer = &feed.Synthetic{
			Symbol:      cfg.Feed.Synthetic.Symbol,
			Duration:    time.Duration(cfg.Feed.Synthetic.Seconds) * time.Second,
			TicksPerSec: cfg.Feed.Synthetic.TicksPerSec,
			StartPrice:  cfg.Feed.Synthetic.StartPrice,
			Seed:        cfg.Feed.Synthetic.Seed,
			Ring:        ring,
			Drops:       mon,
			Logger:      lg,
		}
	}

	done := make(chan error, 1)
	go func() { done <- producer.Run(ctx) }()
	return done
}

// drain 等待引擎消费完队列中剩余的tick。
func drain(ring *queue.Ring, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for ring.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}

func serveMetrics(addr string, mon *monitor.Monitor, lg *logger.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", mon.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		lg.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

// notifySystemd 上报 READY；非systemd环境下是no-op。
func notifySystemd(lg *logger.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		lg.Warn("sd_notify failed", zap.Error(err))
		return
	}
	if sent {
		lg.Info("sd_notify READY sent")
	}
}

// startWatchdog 按systemd watchdog周期的一半发心跳。
func startWatchdog(lg *logger.Logger) func() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return func() {}
	}
	ticker := time.NewTicker(interval / 2)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
	lg.Info("systemd watchdog enabled", zap.Duration("interval", interval))
	return func() {
		ticker.Stop()
		close(stop)
	}
}
