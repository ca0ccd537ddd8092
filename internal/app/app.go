// Package app assembles the store, the ingestion engine and the services
// from configuration. The server and the CLI tools share it so both wire
// the same stack.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movie-tracker/internal/config"
	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/ingest"
	"github.com/iliyamo/movie-tracker/internal/logging"
	"github.com/iliyamo/movie-tracker/internal/repository"
	"github.com/iliyamo/movie-tracker/internal/service"
	"github.com/iliyamo/movie-tracker/internal/tmdb"
)

// InitLogging applies the configured level and format.
func InitLogging(cfg config.Config) {
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// DatabaseOptions maps the DB_* settings onto database.Options.
func DatabaseOptions(cfg config.Config) database.Options {
	return database.Options{
		User:             cfg.DBUser,
		Password:         cfg.DBPass,
		Host:             cfg.DBHost,
		Port:             cfg.DBPort,
		Name:             cfg.DBName,
		MaxOpenConns:     cfg.DBMaxOpenConns,
		StatementTimeout: cfg.StatementTimeout,
	}
}

// OpenStore connects to MySQL and, when AutoMigrate is set, brings the
// schema up to date.
func OpenStore(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(DatabaseOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return db, nil
}

// TxOptions derives the per-transaction bound from the statement timeout.
func TxOptions(cfg config.Config) database.TxOptions {
	opts := database.DefaultTxOptions
	if cfg.StatementTimeout > 0 {
		opts.Timeout = cfg.StatementTimeout
	}
	return opts
}

// NewEngine builds the ingestion engine over the TMDB source. Runs are
// recorded in etl_runs; when etl.PublishEvents is set each finished run is
// also announced on the broker.
func NewEngine(db *sql.DB, cfg config.Config, etl config.ETLConfig, broker config.BrokerConfig) *ingest.Engine {
	client := tmdb.NewClient(tmdb.Options{
		BaseURL:         etl.TMDBBaseURL,
		APIKey:          etl.TMDBAPIKey,
		Timeout:         etl.RequestTimeout,
		RatePerSecond:   etl.RatePerSecond,
		Burst:           etl.RateBurst,
		BreakerFailures: etl.BreakerFailures,
		BreakerOpenFor:  etl.BreakerOpenFor,
	})
	src := tmdb.NewSource(client, tmdb.SourceOptions{
		MaxCast:              etl.MaxCast,
		MaxEpisodesPerSeason: etl.MaxEpisodesPerSeason,
		PersonDetailsTop:     etl.PersonDetailsTop,
	})
	engine := ingest.NewEngine(src, ingest.NewSQLMerger(db, TxOptions(cfg)), ingest.Options{
		MaxRetries:    etl.MaxRetries,
		MinVoteCount:  etl.MinVoteCount,
		RequirePoster: etl.RequirePoster,
	}).WithRecorder(repository.NewETLRunRepo(db))
	if etl.PublishEvents {
		engine.WithNotifier(service.NewPublisher(broker))
	}
	return engine
}

// Services are the application services built over one database handle.
type Services struct {
	Catalog  *service.CatalogService
	Commands *service.CommandService
}

// NewServices builds the catalog and command services. Their store work is
// bounded by the configured statement timeout.
func NewServices(db *sql.DB, cfg config.Config) Services {
	titles := repository.NewTitleRepo(db)
	reviews := repository.NewReviewRepo(db)
	return Services{
		Catalog: service.NewCatalogService(service.CatalogStores{
			Analytics: repository.NewAnalyticsRepo(db),
			Titles:    titles,
			Genres:    repository.NewGenreRepo(db),
			Cast:      repository.NewPersonRepo(db),
			Reviews:   reviews,
			Seasons:   repository.NewSeasonRepo(db),
			Comments:  repository.NewCommentRepo(db),
			Runs:      repository.NewETLRunRepo(db),
		}).WithStatementTimeout(cfg.StatementTimeout),
		Commands: service.NewCommandService(
			reviews,
			repository.NewWatchlistRepo(db),
			repository.NewCommentRepo(db),
			titles,
			repository.NewUserRepo(db),
			cfg.BcryptCost,
		).WithStatementTimeout(cfg.StatementTimeout),
	}
}
