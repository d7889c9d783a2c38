package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/printbridge-backend/pkg/config"
	"github.com/angelmondragon/printbridge-backend/pkg/db"
	"github.com/angelmondragon/printbridge-backend/pkg/db/models"
	"github.com/angelmondragon/printbridge-backend/pkg/logger"
	"github.com/angelmondragon/printbridge-backend/pkg/migrate"
)

type flags struct {
	cmd     string
	dir     string
	name    string
	version string
}

// dbCommands run against Postgres; everything else works on files only.
var dbCommands = map[string]func(ctx context.Context, client *db.Client, sqlDB *sql.DB, f flags) error{
	"up": func(ctx context.Context, _ *db.Client, sqlDB *sql.DB, f flags) error {
		return migrate.Run(ctx, sqlDB, f.dir, "up")
	},
	"down": func(ctx context.Context, _ *db.Client, sqlDB *sql.DB, f flags) error {
		return migrate.Run(ctx, sqlDB, f.dir, "down")
	},
	"status": func(ctx context.Context, _ *db.Client, sqlDB *sql.DB, f flags) error {
		return migrate.Run(ctx, sqlDB, f.dir, "status")
	},
	"version": func(ctx context.Context, _ *db.Client, sqlDB *sql.DB, f flags) error {
		if f.version == "" {
			return fmt.Errorf("missing -version")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, f.dir, f.version)
	},
	"verify": func(ctx context.Context, client *db.Client, _ *sql.DB, _ flags) error {
		missing, err := db.MissingTables(ctx, client.DB(), models.All()...)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("order intake tables missing: %s", strings.Join(missing, ", "))
		}
		fmt.Println("order intake schema present")
		return nil
	},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var f flags
	flag.StringVar(&f.cmd, "cmd", "up", "up|down|status|version|verify|create|validate")
	flag.StringVar(&f.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&f.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&f.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	exitOn(context.Background(), logg, "load config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": f.cmd,
		"dir": f.dir,
	})

	switch f.cmd {
	case "create":
		target := f.dir
		if target == migrate.DefaultDir {
			target = migrate.SourceDir
		}
		path, err := migrate.CreateSQLMigration(target, f.name)
		exitOn(ctx, logg, "create migration", err)
		fmt.Println("created migration:", path)
		return
	case "validate":
		exitOn(ctx, logg, "validate migrations", migrate.ValidateDir(f.dir))
		fmt.Println("migration validation passed")
		return
	}

	run, ok := dbCommands[f.cmd]
	if !ok {
		exitOn(ctx, logg, "parse flags", fmt.Errorf("unknown -cmd %q", f.cmd))
	}
	if cfg.FeatureFlags.UseSQLite {
		exitOn(ctx, logg, "select database", fmt.Errorf("goose migrations target Postgres; sqlite schemas are bootstrapped by the api"))
	}

	client, err := db.New(ctx, cfg.DB, false, logg)
	exitOn(ctx, logg, "connect database", err)
	defer client.Close()

	sqlDB, err := client.DB().DB()
	exitOn(ctx, logg, "open sql handle", err)

	exitOn(ctx, logg, "goose "+f.cmd, run(ctx, client, sqlDB, f))
	logg.Info(ctx, "migrate finished")
}

func exitOn(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}
