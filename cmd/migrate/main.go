// Package main applies the embedded schema migrations.
package main

import (
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"stockbook/db"
	"stockbook/internal/core/config"
	"stockbook/pkg/logger"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.Env != "production",
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	sqlDB, err := goose.OpenDBWithDriver("pgx", cfg.Postgres.DSN)
	if err != nil {
		log.Fatalw("failed to open database", "error", err)
	}
	defer func() { _ = sqlDB.Close() }()

	goose.SetBaseFS(db.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalw("failed to set dialect", "error", err)
	}

	switch command {
	case "up":
		err = goose.Up(sqlDB, "migrations")
	case "down":
		err = goose.Down(sqlDB, "migrations")
	case "status":
		err = goose.Status(sqlDB, "migrations")
	case "version":
		err = goose.Version(sqlDB, "migrations")
	default:
		log.Fatalw("unknown command", "command", command)
	}

	if err != nil {
		log.Fatalw("migration failed", "command", command, "error", err)
	}

	log.Infow("migrations done", "command", command)
}

func loadConfig() (config.Config, error) {
	if path := os.Getenv("STOCKBOOK_CONFIG"); path != "" {
		return config.Load(path)
	}
	return config.Default()
}
