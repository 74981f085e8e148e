package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"chronoutil/config"
	"chronoutil/internal/api"
	"chronoutil/internal/businessday"
	"chronoutil/internal/bus"
	"chronoutil/internal/gateway"
	"chronoutil/internal/logger"
	"chronoutil/internal/metrics"
	"chronoutil/internal/ringbuf"
	redisstore "chronoutil/internal/store/redis"
	sqlitestore "chronoutil/internal/store/sqlite"
	"chronoutil/pkg/chrono"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[chronod] config: %v", err)
	}
	lg := logger.Init(cfg.Service, cfg.Level())
	lg.Info("starting", "http_addr", cfg.HTTPAddr, "metrics_addr", cfg.MetricsAddr,
		"broadcast_interval", cfg.BroadcastInterval().String())

	clock := chrono.SystemClock{}

	// ---- Metrics & health ----
	prom := metrics.NewMetrics(prometheus.DefaultRegisterer)
	health := metrics.NewHealthStatus(clock)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health, prometheus.DefaultGatherer)
	metricsSrv.Start()

	// ---- Context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite journal ----
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	journal, err := sqlitestore.Open(sqlitestore.Config{
		Path:      cfg.SQLitePath,
		CommitDur: prom.SQLiteCommitDur,
	})
	if err != nil {
		lg.Error("sqlite init failed", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer journal.Close()
	health.SetSQLiteOK(true)
	lg.Info("sqlite journal ready", "path", cfg.SQLitePath)

	// ---- Redis (optional) ----
	var rstore *redisstore.Store
	if cfg.RedisAddr != "" {
		health.SetRedisEnabled(true)
		rstore, err = redisstore.New(redisstore.Config{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			Clock:        clock,
			WriteDur:     prom.RedisWriteDur,
			BreakerState: prom.RedisCircuitBreakerState,
			BreakerTrips: prom.RedisCircuitBreakerTrips,
		})
		if err != nil {
			lg.Warn("redis init failed, continuing without redis", "addr", cfg.RedisAddr, "error", err)
			health.SetRedisConnected(false)
		} else {
			health.SetRedisConnected(true)
			lg.Info("redis store ready", "addr", cfg.RedisAddr)
		}
	}
	if rstore != nil {
		health.StartLivenessChecker(ctx, rstore.Client(), journal.DB(), 10*chrono.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, journal.DB(), 10*chrono.Second)
	}

	// ---- Business day calendar ----
	cal := businessday.Default()
	if cfg.HolidayFile != "" {
		reload := func(n int, err error) {
			if err != nil {
				prom.HolidayReloads.WithLabelValues("error").Inc()
				lg.Error("holiday file reload failed", "path", cfg.HolidayFile, "error", err)
				return
			}
			prom.HolidayReloads.WithLabelValues("ok").Inc()
			prom.HolidaysLoaded.Set(float64(n))
			health.SetHolidays(n)
			lg.Info("holiday file loaded", "path", cfg.HolidayFile, "holidays", n)
		}
		reload(cal.Len(), cal.LoadFile(cfg.HolidayFile))

		watcher, err := businessday.NewWatcher(cfg.HolidayFile, cal, reload)
		if err != nil {
			lg.Warn("holiday watcher disabled", "error", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	// ---- Sample sinks (off the broadcast path) ----
	sinks := bus.New(1024)
	sinkNames := []string{}
	sinks.OnDrop = func(idx int) {
		prom.FanoutDrops.WithLabelValues(sinkNames[idx]).Inc()
	}
	var wg sync.WaitGroup

	if rstore != nil {
		sinkNames = append(sinkNames, "redis")
		events := sinks.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range events {
				err := rstore.PublishClock(ctx, ev.Sample.Seq, ev.Sample.At, ev.Text)
				if err != nil && ev.Sample.Seq%60 == 0 {
					lg.Warn("clock publish failed", "seq", ev.Sample.Seq, "error", err)
				}
			}
		}()
	}
	if cfg.JournalSamples {
		sinkNames = append(sinkNames, "journal")
		events := sinks.Subscribe()
		entries := make(chan sqlitestore.Entry, 1024)
		wg.Add(2)
		go func() {
			defer wg.Done()
			defer close(entries)
			for ev := range events {
				entries <- sqlitestore.Entry{Label: "clock", At: ev.Sample.At, RecordedAt: chrono.NowFrom(clock)}
				prom.InstantsWritten.Inc()
			}
		}()
		go func() {
			defer wg.Done()
			journal.Run(context.Background(), entries)
		}()
	}

	sampleCh := make(chan bus.Event, 1024)
	go sinks.Run(ctx, sampleCh)

	// ---- Clock stream ----
	hub := gateway.NewHub(gateway.Config{
		Clock:         clock,
		Ring:          ringbuf.New(cfg.RingSize),
		DefaultFormat: cfg.OutputFormat(),
		ReplaySize:    500,
		Metrics:       prom,
		OnSample: func(s ringbuf.Sample, text string) {
			health.SetLastSample(s.At)
			select {
			case sampleCh <- bus.Event{Sample: s, Text: text}:
			default:
				prom.FanoutDrops.WithLabelValues("input").Inc()
			}
		},
	})
	go hub.RunTicker(ctx, cfg.BroadcastInterval())
	go hub.RunBroadcaster(ctx, 10*chrono.Millisecond)

	// ---- HTTP API ----
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			Clock:         clock,
			Calendar:      cal,
			Journal:       journal,
			Redis:         rstore,
			Hub:           hub,
			Health:        health,
			Metrics:       prom,
			Logger:        lg,
			DefaultFormat: cfg.OutputFormat(),
			TOTPSecret:    cfg.TOTPSecret,
			RateLimit:     cfg.RateLimit,
			RateBurst:     cfg.RateBurst,
			ParseCacheTTL: cfg.ParseCacheTTL(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		lg.Info("http api listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			lg.Error("http server error", "error", err)
			sigCh <- syscall.SIGTERM
		}
	}()

	// ---- Wait for shutdown signal ----
	sig := <-sigCh
	lg.Info("shutdown signal received, cleaning up", slog.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	wg.Wait()

	if rstore != nil {
		rstore.Close()
	}

	lg.Info("shutdown complete", "uptime", chrono.NowFrom(clock).Sub(health.StartedAt).Format(chrono.TimeSpanWithMeasures, true))
}
