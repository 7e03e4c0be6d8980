package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"fbms.app/internal/auth"
	"fbms.app/internal/config"
	"fbms.app/internal/httpapi"
	"fbms.app/internal/migrate"
	"fbms.app/internal/obs"
	"fbms.app/internal/store/pg"
	"fbms.app/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().Fatal().Err(err).Msg("load config")
	}

	logger, err := obs.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		obs.Logger().Fatal().Err(err).Msg("build logger")
	}
	obs.SetLogger(logger)
	log := obs.Logger()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	store, err := pg.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Ping(startCtx); err != nil {
		log.Warn().Err(err).Str("db", cfg.Database.Redacted()).Msg("database not reachable yet")
	}
	if cfg.Migrate.OnStart || cfg.Migrate.Seed {
		mgr, err := migrate.NewManager(store.DB())
		if err != nil {
			log.Fatal().Err(err).Msg("migration manager")
		}
		if cfg.Migrate.OnStart {
			if err := mgr.Up(startCtx); err != nil {
				log.Fatal().Err(err).Msg("migrate up")
			}
		}
		if cfg.Migrate.Seed {
			if err := mgr.Seed(startCtx); err != nil {
				log.Fatal().Err(err).Msg("migrate seed")
			}
		}
	}
	cancel()

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, store,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithTokenTTL(cfg.Auth.TokenTTL),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("token service")
	}
	authSvc := auth.NewService(store, tokens, auth.WithDefaultRole(cfg.Auth.DefaultRole))
	probe := httpapi.ReadyProbe{DB: store.DB()}

	api := httpapi.New(httpapi.Options{
		Version:         version,
		Ready:           probe,
		Auth:            authSvc,
		Evaluator:       auth.NewEvaluator(store),
		Inventory:       store,
		Projects:        store,
		Stream:          stream.New(),
		RateBurst:       cfg.HTTP.RateBurst,
		RatePerSecond:   cfg.HTTP.RatePerSecond,
		MaxBodyBytes:    cfg.HTTP.MaxBodyBytes,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		TrustedProxies:  cfg.HTTP.TrustedProxies,
		StreamHeartbeat: cfg.HTTP.StreamHeartbeat,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	var grpcSrv *grpc.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.GRPC.Addr).Msg("grpc listen")
		}
		grpcSrv = grpc.NewServer()
		httpapi.NewGRPCServer(probe, version).Register(grpcSrv)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.Error().Err(err).Msg("grpc serve")
			}
		}()
		log.Info().Str("addr", cfg.GRPC.Addr).Msg("grpc health listening")
	}

	log.Info().
		Str("version", version).
		Str("addr", srv.Addr).
		Str("db", cfg.Database.Redacted()).
		Msg("starting fbms-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")
	obs.SetReady(false)

	ctx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	log.Info().Msg("stopped")
}
