package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun/migrate"

	"github.com/blagoySimandov/rowenrich/internal/config"
	"github.com/blagoySimandov/rowenrich/internal/db"
	"github.com/blagoySimandov/rowenrich/internal/logger"
	"github.com/blagoySimandov/rowenrich/migrations"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	closer, err := logger.Setup(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx := context.Background()

	client, err := db.Open(ctx, "postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer client.Close()

	migrator := migrate.NewMigrator(client, migrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize migrator")
	}

	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	switch cmd {
	case "up":
		group, err := migrator.Migrate(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		if group.IsZero() {
			fmt.Println("No new migrations to run (database is up to date)")
			return
		}
		fmt.Printf("Migrated to %s\n", group)

	case "down":
		group, err := migrator.Rollback(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		if group.IsZero() {
			fmt.Println("No migrations to rollback")
			return
		}
		fmt.Printf("Rolled back %s\n", group)

	case "status":
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to get migration status")
		}
		fmt.Printf("Migrations:\n")
		for _, m := range ms {
			status := "pending"
			if m.IsApplied() {
				status = "applied"
			}
			fmt.Printf("  %s: %s\n", m.Name, status)
		}

	case "create":
		name := "migration"
		if flag.NArg() > 1 {
			name = strings.Join(flag.Args()[1:], "_")
		}
		files, err := migrator.CreateTxSQLMigrations(ctx, name)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create migration")
		}
		for _, f := range files {
			fmt.Printf("Created migration: %s\n", f.Path)
		}

	default:
		fmt.Println("Usage: migrate [-config file] [up|down|status|create <name>]")
		fmt.Println("  up     - Run all pending migrations")
		fmt.Println("  down   - Rollback the last migration group")
		fmt.Println("  status - Show migration status")
		fmt.Println("  create - Create new migration files")
		os.Exit(1)
	}
}
