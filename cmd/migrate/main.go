// Command migrate applies the embedded schema migrations and exits.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/nummix/backoffice/internal/app"
	"github.com/nummix/backoffice/internal/platform/db"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}
	dsn := flag.String("dsn", "", "postgres DSN (defaults to PG_DSN)")
	flag.Parse()

	if *dsn == "" {
		cfg, err := app.LoadConfig()
		if err != nil {
			slog.Default().Error("load config", slog.Any("error", err))
			os.Exit(1)
		}
		*dsn = cfg.PGDSN
	}
	if err := db.Migrate(*dsn); err != nil {
		slog.Default().Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Default().Info("migrations applied")
}
