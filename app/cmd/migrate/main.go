package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"account-service/app/config"
	"account-service/app/utils/database"
	"account-service/app/utils/logger"
	"account-service/app/utils/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	command := flag.String("command", "up", "Migration command (up, down, status)")
	steps := flag.Int("steps", 1, "Number of migrations to roll back with -command=down")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	appLogger, err := logger.New(level)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger, *command, *steps); err != nil {
		appLogger.Error("Migration command failed", "command", *command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger *slog.Logger, command string, steps int) error {
	files, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, cfg.DatabaseDSN(), database.DefaultOptions(), appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator, err := migration.New(db, files, appLogger)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		count, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		appLogger.Info("Migrations applied", "count", count)

	case "down":
		count, err := migrator.Down(ctx, steps)
		if err != nil {
			return err
		}
		appLogger.Info("Migrations rolled back", "count", count)

	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			attrs := []any{"version", s.Version, "name", s.Name}
			switch {
			case s.Modified:
				appLogger.Warn("Migration modified after apply", append(attrs, "applied_at", s.AppliedAt.Format(time.RFC3339))...)
			case s.Applied():
				appLogger.Info("Migration applied", append(attrs, "applied_at", s.AppliedAt.Format(time.RFC3339))...)
			default:
				appLogger.Info("Migration pending", attrs...)
			}
		}

	default:
		return fmt.Errorf("unknown command %q (available: up, down, status)", command)
	}

	return nil
}
