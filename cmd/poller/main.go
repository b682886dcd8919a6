package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_reconciler/internal/adapters/izipay"
	"hotel_reconciler/internal/adapters/observability"
	redisad "hotel_reconciler/internal/adapters/redis"
	"hotel_reconciler/internal/app"
	"hotel_reconciler/internal/domain"
	"hotel_reconciler/internal/shared"
	mysqlrepo "hotel_reconciler/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("base", cfg.IzipayBase).
		Str("mode", cfg.IzipayMode).
		Int("workers", cfg.PollWorkers).
		Dur("interval", cfg.PollInterval).
		Msg("poller starting")

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName+"-poller")
	if err != nil {
		log.Fatal().Err(err).Msg("tracer init failed")
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	db, err := mysqlrepo.Open(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("mysql open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")
	repo := mysqlrepo.New(db)

	gw, err := izipay.New(cfg.IzipayBase, cfg.IzipayUser, cfg.GatewayPassword(), cfg.IzipayMode, cfg.IzipayRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gateway client")
	}

	// bindings must drop the API's cached category view
	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unavailable; cached views expire by TTL only")
	} else {
		cache = rc
	}

	inv := app.NewInventoryService(repo, cache, cfg.CacheTTL)
	sync := app.NewSyncService(gw, repo, app.NewReconciler(repo, inv))

	sweep := func() {
		start := time.Now()
		rep, err := sync.SyncOpen(ctx, cfg.PollWorkers)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("sweep failed")
			return
		}
		log.Info().
			Int("checked", rep.Checked).
			Int("synced", rep.Synced).
			Int("failed", rep.Failed).
			Dur("took", time.Since(start)).
			Msg("sweep completed")
	}

	sweep()
	t := time.NewTicker(cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("poller stopped")
			return
		case <-t.C:
			sweep()
		}
	}
}
