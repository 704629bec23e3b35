package main

import (
	"database/sql"
	"flag"
	"fmt"

	"clubster-booking/internal/config"
	"clubster-booking/internal/database/migrations"
	"clubster-booking/internal/logger"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	action := flag.String("action", "up", "one of: up, down, version, to")
	target := flag.Uint("version", 0, "target version for -action=to")
	dir := flag.String("dir", cfg.Database.MigrationsDir, "directory containing migration files")
	flag.Parse()

	if cfg.Database.DSN == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	opts := migrations.DefaultOptions()
	opts.Dir = *dir
	runner := migrations.NewRunner(bunDB, opts, logger)
	defer runner.Close()

	switch *action {
	case "up":
		err = runner.RunMigrations()
	case "down":
		err = runner.MigrateDown()
	case "to":
		err = runner.MigrateTo(*target)
	case "version":
		var version uint
		version, err = runner.Version()
		if err == nil {
			logger.Info("MIGRATION", fmt.Sprintf("Current schema version: %d", version))
		}
	default:
		err = fmt.Errorf("unknown action %q", *action)
	}
	if err != nil {
		logger.Error("MIGRATION", err.Error())
		runner.Close()
		logger.Fatal("MIGRATION", "Migration failed")
	}

	logger.Info("MIGRATION", fmt.Sprintf("✅ %s done", *action))
}
