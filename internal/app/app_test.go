package app

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/config"
	"github.com/iliyamo/movie-tracker/internal/service"
)

func TestDatabaseOptions(t *testing.T) {
	cfg := config.Config{DBUser: "app", DBPass: "pw", DBHost: "db", DBPort: "3307", DBName: "catalog",
		DBMaxOpenConns: 8, StatementTimeout: 3 * time.Second}

	o := DatabaseOptions(cfg)
	assert.Equal(t, "db", o.Host)
	assert.Equal(t, "3307", o.Port)
	assert.Equal(t, 8, o.MaxOpenConns)
	assert.Equal(t, 3*time.Second, TxOptions(cfg).Timeout)
	assert.Equal(t, 3, TxOptions(cfg).MaxRetries)
}

func TestNewEngineAndServicesWire(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := config.Config{BcryptCost: 4}
	engine := NewEngine(db, cfg, config.ETLConfig{MaxRetries: 1, PublishEvents: true}, config.BrokerConfig{})
	assert.NotNil(t, engine)

	svc := NewServices(db, cfg)
	assert.NotNil(t, svc.Catalog)
	assert.NotNil(t, svc.Commands)
}

func TestServicesEnforceStatementTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewServices(db, config.Config{BcryptCost: 4, StatementTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT (SELECT COUNT(*) FROM movies)")).
		WillDelayFor(3 * time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"m", "s"}).AddRow(6, 3))
	start := time.Now()
	_, err = svc.Catalog.Summary(ctx, 0)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO watchlist_entries")).
		WillDelayFor(3 * time.Second).
		WillReturnResult(sqlmock.NewResult(1, 1))
	_, err = svc.Commands.AddToWatchlist(ctx, service.WatchlistInput{UserID: 2, Kind: "movie", TitleID: 603})
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
}
