package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hackgods/spa-agenda/internal/agenda"
	"github.com/hackgods/spa-agenda/internal/api"
	"github.com/hackgods/spa-agenda/internal/appointment"
	"github.com/hackgods/spa-agenda/internal/auth"
	"github.com/hackgods/spa-agenda/internal/clinic"
	"github.com/hackgods/spa-agenda/internal/config"
	"github.com/hackgods/spa-agenda/internal/db"
	"github.com/hackgods/spa-agenda/internal/logger"
	redisclient "github.com/hackgods/spa-agenda/internal/redis"
	"github.com/hackgods/spa-agenda/internal/report"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load error", logger.Err(err))
		os.Exit(1)
	}

	log := logger.Setup(cfg.Env)
	slog.SetDefault(log)
	log.Info("api-server starting up",
		slog.String("env", cfg.Env),
		slog.String("http_port", cfg.HTTPPort),
		slog.String("timezone", cfg.Location().String()),
		slog.String("version", version),
	)

	if err := run(cfg, log); err != nil {
		log.Error("api-server stopped", logger.Err(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	if err := db.Migrate(rootCtx, pgPool); err != nil {
		return err
	}
	log.Info("schema up to date")

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", logger.Err(err))
		}
	}()
	log.Info("connected to Redis")

	clinicRepo := clinic.NewPgRepository(pgPool)
	clinicSvc := clinic.NewService(clinicRepo, auth.HashPassword, log)
	apptSvc := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		clinicRepo,
		redisclient.NewRedisLocker(rdb, cfg.LockTTL),
		cfg,
		log,
	)
	sessions := redisclient.NewSessionStore(rdb, cfg.SessionTTL)
	authSvc := auth.NewService(clinicSvc, sessions, auth.NewTokenIssuer(cfg.JWTSecret, sessions.TTL()), log)

	router := api.NewRouter(api.RouterConfig{
		Auth:         authSvc,
		Appointments: apptSvc,
		Agenda:       agenda.NewService(apptSvc, clinicSvc),
		Clinic:       clinicSvc,
		Reports:      report.NewService(apptSvc),
		PingPostgres: db.Ping(pgPool),
		PingRedis:    redisclient.Ping(rdb),
		Log:          log,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-rootCtx.Done():
	}

	log.Info("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("api-server stopped")
	return nil
}
