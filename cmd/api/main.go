package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "hotel_reconciler/internal/adapters/http_server"
	"hotel_reconciler/internal/adapters/izipay"
	"hotel_reconciler/internal/adapters/observability"
	redisad "hotel_reconciler/internal/adapters/redis"
	"hotel_reconciler/internal/app"
	"hotel_reconciler/internal/domain"
	"hotel_reconciler/internal/shared"
	"hotel_reconciler/internal/storage/memory"
	mysqlrepo "hotel_reconciler/internal/storage/mysql"
)

// store is everything the services need from persistence.
type store interface {
	domain.InventoryStore
	domain.TransactionLedger
	domain.ComplaintStore
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("tracer init failed")
	}

	var st store
	switch cfg.Store {
	case "memory":
		log.Warn().Msg("using in-memory store; data is lost on restart")
		st = memory.New()
	default:
		db, err := mysqlrepo.Open(cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("mysql open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		st = mysqlrepo.New(db)
	}

	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; category cache disabled")
	} else {
		cache = rc
	}

	gw, err := izipay.New(cfg.IzipayBase, cfg.IzipayUser, cfg.GatewayPassword(), cfg.IzipayMode, cfg.IzipayRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gateway client")
	}

	inv := app.NewInventoryService(st, cache, cfg.CacheTTL)
	rec := app.NewReconciler(st, inv)

	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Inventory:   inv,
		Booking:     app.NewBookingService(gw, st, inv, cfg.Currency),
		Reconciler:  rec,
		Push:        app.NewPushIngress(rec, cfg.HMACKey()),
		Sync:        app.NewSyncService(gw, st, rec),
		Complaints:  app.NewComplaintService(st),
		AdminSecret: cfg.SecretKey,
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("mode", cfg.IzipayMode).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := shutdownTracer(sctx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown failed")
	}
}
