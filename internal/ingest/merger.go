package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
	"github.com/iliyamo/movie-tracker/internal/repository"
)

// SQLMerger merges records into the MySQL store, one transaction per
// record. Children absent from a record (seasons or episodes the source did
// not return this time) are left as they are.
type SQLMerger struct {
	db      *sql.DB
	titles  *repository.TitleRepo
	seasons *repository.SeasonRepo
	genres  *repository.GenreRepo
	people  *repository.PersonRepo
	txOpts  database.TxOptions
}

func NewSQLMerger(db *sql.DB, txOpts database.TxOptions) *SQLMerger {
	return &SQLMerger{
		db:      db,
		titles:  repository.NewTitleRepo(db),
		seasons: repository.NewSeasonRepo(db),
		genres:  repository.NewGenreRepo(db),
		people:  repository.NewPersonRepo(db),
		txOpts:  txOpts,
	}
}

// Merge upserts the title and everything attached to it. If a concurrent
// writer inserted the same natural key between our statements the duplicate
// error is absorbed: the merge is replayed once, now taking the update path,
// and a second collision counts as already merged.
func (m *SQLMerger) Merge(ctx context.Context, rec model.TitleRecord) (Outcome, error) {
	var outcome Outcome
	for attempt := 0; attempt < 2; attempt++ {
		err := database.WithTxOptions(ctx, m.db, m.txOpts, func(ctx context.Context, tx *sql.Tx) error {
			var err error
			outcome, err = m.mergeTx(ctx, tx, rec)
			return err
		})
		if err == nil {
			return outcome, nil
		}
		if !database.IsDuplicate(err) {
			return 0, err
		}
	}
	return OutcomeUpdated, nil
}

func (m *SQLMerger) mergeTx(ctx context.Context, tx *sql.Tx, rec model.TitleRecord) (Outcome, error) {
	var (
		id       uint64
		inserted bool
		err      error
	)
	switch rec.Kind {
	case model.KindMovie:
		id, inserted, err = m.titles.UpsertMovieTx(ctx, tx, rec)
	case model.KindTV:
		id, inserted, err = m.titles.UpsertShowTx(ctx, tx, rec)
	default:
		return 0, fmt.Errorf("%w: %q", repository.ErrUnknownKind, rec.Kind)
	}
	if err != nil {
		return 0, err
	}

	for _, g := range rec.Genres {
		if g.Name == "" {
			continue
		}
		gid, err := m.genres.UpsertTx(ctx, tx, g)
		if err != nil {
			return 0, err
		}
		if err := m.genres.LinkTx(ctx, tx, rec.Kind, id, gid); err != nil {
			return 0, err
		}
	}

	for _, c := range rec.Cast {
		pid, err := m.people.UpsertTx(ctx, tx, c)
		if err != nil {
			return 0, err
		}
		if err := m.people.UpsertCastTx(ctx, tx, rec.Kind, id, pid, c.Character, c.Order); err != nil {
			return 0, err
		}
	}

	if rec.Kind == model.KindTV {
		for _, season := range rec.Seasons {
			sid, _, err := m.seasons.UpsertSeasonTx(ctx, tx, id, season)
			if err != nil {
				return 0, err
			}
			for _, ep := range season.Episodes {
				if _, _, err := m.seasons.UpsertEpisodeTx(ctx, tx, sid, ep); err != nil {
					return 0, err
				}
			}
		}
	}

	if inserted {
		return OutcomeInserted, nil
	}
	return OutcomeUpdated, nil
}
