// Command seed loads the fixed development catalog and accounts.
package main

import (
	"context"

	"github.com/iliyamo/movie-tracker/internal/app"
	"github.com/iliyamo/movie-tracker/internal/config"
	"github.com/iliyamo/movie-tracker/internal/ingest"
	"github.com/iliyamo/movie-tracker/internal/logging"
	"github.com/iliyamo/movie-tracker/internal/repository"
	"github.com/iliyamo/movie-tracker/internal/seed"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	app.InitLogging(cfg)

	ctx := context.Background()
	db, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close()

	merger := ingest.NewSQLMerger(db, app.TxOptions(cfg))
	if _, err := seed.Load(ctx, merger, repository.NewUserRepo(db), cfg.BcryptCost); err != nil {
		logging.Fatal().Err(err).Msg("seed failed")
	}
}
