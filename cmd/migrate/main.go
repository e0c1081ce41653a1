// Command migrate applies the embedded goose migrations.
//
// Usage:
//
//	migrate up            apply all pending migrations
//	migrate down          roll back the last migration
//	migrate status        show migration status
//	migrate version       show current schema version
//	migrate redo          roll back and re-apply the last migration
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"github.com/eventpay/escrow-api/internal/config"
	"github.com/eventpay/escrow-api/internal/pkg/database"
	"github.com/eventpay/escrow-api/internal/pkg/logger"
	"github.com/eventpay/escrow-api/migrations"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <command> [args]")
		fmt.Println("Commands: up, down, status, version, redo, up-to <version>, down-to <version>")
		os.Exit(1)
	}

	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal().Err(err).Msg("Failed to set goose dialect")
	}

	command := os.Args[1]
	if err := goose.RunContext(context.Background(), command, db.DB, ".", os.Args[2:]...); err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("Migration failed")
	}
	log.Info().Str("command", command).Msg("Migration finished")
}
