package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/db"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

// offline commands work on files only and never open a connection.
var offline = map[string]bool{"create": true, "validate": true}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "postgres migrations directory; sqlite reads its sqlite/ subdirectory")
	name := flag.String("name", "", "migration name, for -cmd=create")
	version := flag.String("version", "", "target version YYYYMMDDHHMMSS, for -cmd=version")

	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dialect := migrate.Dialect(cfg.DB.Driver)
	migrationsDir := migrate.DirFor(*dir, cfg.DB.Driver)

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"cmd":     *cmd,
		"dir":     migrationsDir,
		"dialect": dialect,
	})

	if offline[*cmd] {
		logg.Info(ctx, "migrate ready")
		if err := runOffline(*cmd, *dir, *name); err != nil {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", *cmd, err)
			os.Exit(1)
		}
		return
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, dialect, migrationsDir, *cmd); err != nil {
			fmt.Fprintf(os.Stderr, "goose %s failed: %v\n", *cmd, err)
			os.Exit(1)
		}

	case "version":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version for version command")
			os.Exit(1)
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, dialect, migrationsDir, *version); err != nil {
			fmt.Fprintf(os.Stderr, "goose version migrate failed: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

// runOffline handles commands that touch both dialect directories at once, so
// they take the base dir rather than the driver's.
func runOffline(cmd, base, name string) error {
	switch cmd {
	case "create":
		if name == "" {
			return fmt.Errorf("missing -name")
		}
		paths, err := migrate.CreatePair(base, name, time.Now())
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println("created migration:", p)
		}
	case "validate":
		if err := migrate.ValidateDir(base); err != nil {
			return err
		}
		if err := migrate.ValidateDir(migrate.DirFor(base, config.DBDriverSQLite)); err != nil {
			return err
		}
		if err := migrate.ValidatePair(base); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
	}
	return nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
