// Command migrate runs schema operations for the linkshelf database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"linkshelf/internal/config"
	"linkshelf/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go <up|auto|status|down|constraints> [version]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "up":
		applied, err := database.RunMigrations(ctx, db)
		if errors.Is(err, database.ErrMigrationsNeedPostgres) {
			return fmt.Errorf("%w (run \"auto\" instead)", err)
		}
		if err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Printf("sql migrations applied: %d", applied)
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d", status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate, len(status.AppliedVersions), len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			log.Printf("pending: %06d_%s", m.Version, m.Name)
		}
	case "down":
		if flag.NArg() < 2 {
			return fmt.Errorf("usage: go run ./cmd/migrate/main.go down <version>")
		}
		version, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Printf("rolled back migration %d", version)
	case "constraints":
		if cfg.DBDriver == "sqlite" {
			return fmt.Errorf("constraints listing needs postgres")
		}
		var rows []struct {
			Relname string `gorm:"column:relname"`
			Conname string `gorm:"column:conname"`
			Def     string `gorm:"column:def"`
		}
		if err := db.WithContext(ctx).Raw(`
			SELECT r.relname, c.conname, pg_get_constraintdef(c.oid) AS def
			FROM pg_constraint c
			JOIN pg_class r ON c.conrelid = r.oid
			JOIN pg_namespace n ON n.oid = r.relnamespace
			WHERE n.nspname = 'public'
			ORDER BY r.relname, c.conname`).Scan(&rows).Error; err != nil {
			return fmt.Errorf("list constraints: %w", err)
		}
		for _, r := range rows {
			fmt.Printf("%-20s %-40s %s\n", r.Relname, r.Conname, r.Def)
		}
	default:
		return usage()
	}

	return nil
}
