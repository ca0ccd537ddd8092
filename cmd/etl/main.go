// Command etl runs one ingestion pass against the catalog source and prints
// the run summary as JSON.
//
//	etl -pages 3 -kinds movie,tv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/iliyamo/movie-tracker/internal/app"
	"github.com/iliyamo/movie-tracker/internal/config"
	"github.com/iliyamo/movie-tracker/internal/ingest"
	"github.com/iliyamo/movie-tracker/internal/logging"
	"github.com/iliyamo/movie-tracker/internal/service"
)

func main() {
	config.LoadDotEnv()
	etl := config.LoadETLConfig()

	pages := flag.Int("pages", etl.Pages, "listing pages to fetch per kind")
	kinds := flag.String("kinds", "movie,tv", "comma separated kinds to ingest")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	app.InitLogging(cfg)
	if etl.TMDBAPIKey == "" {
		logging.Fatal().Msg("TMDB_API_KEY is required")
	}
	parsed, err := service.ParseKinds(*kinds)
	if err != nil || *pages < 1 {
		fmt.Fprintln(os.Stderr, "usage: etl -pages N -kinds movie,tv")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close()

	engine := app.NewEngine(db, cfg, etl, config.LoadBrokerConfig())
	sum, runErr := engine.Run(ctx, ingest.RunOptions{Pages: *pages, Kinds: parsed})

	out, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		logging.Fatal().Err(err).Msg("encode summary")
	}
	fmt.Println(string(out))

	if runErr != nil {
		logging.Error().Err(runErr).Str("status", sum.Status).Msg("ingestion did not complete")
		db.Close()
		os.Exit(1)
	}
}
