package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/hackgods/spa-agenda/internal/auth"
	"github.com/hackgods/spa-agenda/internal/clinic"
	"github.com/hackgods/spa-agenda/internal/db"
	"github.com/hackgods/spa-agenda/internal/logger"
)

const usage = `usage:
  admin create-admin <username> <password>
  admin make-admin <username>`

// AdminConfig is the part of the server environment the admin tool needs.
type AdminConfig struct {
	Env              string `env:"APP_ENV" env-default:"local"`
	PostgresDSN      string `env:"POSTGRES_DSN"`
	PostgresMaxConns int32  `env:"ADMIN_POSTGRES_MAX_CONNS" env-default:"2"`
}

func loadConfig() (AdminConfig, error) {
	_ = godotenv.Load()

	var cfg AdminConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return AdminConfig{}, fmt.Errorf("read env: %w", err)
	}
	if cfg.PostgresDSN == "" {
		return AdminConfig{}, errors.New("POSTGRES_DSN is required")
	}
	if cfg.PostgresMaxConns <= 0 {
		return AdminConfig{}, errors.New("ADMIN_POSTGRES_MAX_CONNS must be > 0")
	}
	return cfg, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid config", logger.Err(err))
		os.Exit(1)
	}
	log := logger.Setup(cfg.Env)

	if err := run(log, cfg, os.Args[1], os.Args[2:]); err != nil {
		log.Error("admin command failed", slog.String("command", os.Args[1]), logger.Err(err))
		os.Exit(1)
	}
}

var errUsage = errors.New(usage)

func run(log *slog.Logger, cfg AdminConfig, command string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	svc := clinic.NewService(clinic.NewPgRepository(pool), auth.HashPassword, log)

	switch command {
	case "create-admin":
		if len(args) != 2 {
			return errUsage
		}
		r, err := svc.CreateReceptionist(ctx, clinic.ReceptionistInput{Username: args[0], Password: args[1], IsAdmin: true})
		if err != nil {
			return err
		}
		log.Info("administrator created", slog.String("username", r.Username))
	case "make-admin":
		if len(args) != 1 {
			return errUsage
		}
		r, err := svc.PromoteToAdmin(ctx, args[0])
		if err != nil {
			return err
		}
		log.Info("user promoted to administrator", slog.String("username", r.Username))
	default:
		return errUsage
	}
	return nil
}
