package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/stockdesk-backend/pkg/config"
	"github.com/angelmondragon/stockdesk-backend/pkg/db"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
	"github.com/angelmondragon/stockdesk-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|status|redo|to|create|validate")
	dir := flag.String("dir", "", "migrations directory; empty uses the migrations compiled into the binary")
	name := flag.String("name", "", "migration name for -cmd=create")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "dir": dirLabel(*dir)})

	// file-only commands run without config or a database
	switch *cmd {
	case "create":
		if *name == "" {
			fail(ctx, logg, "missing -name for create", nil)
		}
		createDir := *dir
		if createDir == "" {
			createDir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(createDir, *name)
		if err != nil {
			fail(ctx, logg, "create migration", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		var err error
		if *dir == "" {
			err = migrate.ValidateFS(migrate.Embedded())
		} else {
			err = migrate.ValidateDir(*dir)
		}
		if err != nil {
			fail(ctx, logg, "validate migrations", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail(ctx, logg, "load config", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail(ctx, logg, "bootstrap database", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		fail(ctx, logg, "extract sql.DB", err)
	}

	switch *cmd {
	case "up", "down", "status", "redo":
		err = migrate.Run(ctx, sqlDB, *dir, *cmd)
	case "to":
		version, parseErr := strconv.ParseInt(*target, 10, 64)
		if parseErr != nil {
			fail(ctx, logg, "invalid -version (expected YYYYMMDDHHMMSS)", parseErr)
		}
		err = migrate.MigrateTo(ctx, sqlDB, *dir, version)
	default:
		fail(ctx, logg, "unknown -cmd "+*cmd, nil)
	}
	if err != nil {
		fail(ctx, logg, "migrate "+*cmd, err)
	}
	logg.Info(ctx, "migrate.done")
}

func dirLabel(dir string) string {
	if dir == "" {
		return "embedded"
	}
	return dir
}

func fail(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if err == nil {
		err = fmt.Errorf("%s", msg)
	}
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
