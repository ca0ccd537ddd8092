package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
)

// SeasonRepo manages seasons and episodes of shows.
type SeasonRepo struct{ db *sql.DB }

func NewSeasonRepo(db *sql.DB) *SeasonRepo { return &SeasonRepo{db: db} }

// UpsertSeasonTx merges a season by (show_id, season_number). Fields the
// source leaves empty keep their stored value.
func (r *SeasonRepo) UpsertSeasonTx(ctx context.Context, tx *sql.Tx, showID uint64, s model.SeasonRecord) (uint64, bool, error) {
	const q = `
		INSERT INTO seasons (show_id, season_number, name, overview, air_date, poster_path)
		VALUES (?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE
			id          = LAST_INSERT_ID(id),
			name        = COALESCE(VALUES(name), name),
			overview    = COALESCE(VALUES(overview), overview),
			air_date    = COALESCE(VALUES(air_date), air_date),
			poster_path = COALESCE(VALUES(poster_path), poster_path)`
	res, err := tx.ExecContext(ctx, q, showID, s.Number, nullString(s.Name), nullString(s.Overview),
		nullTimePtr(s.AirDate), nullString(s.PosterPath))
	if err != nil {
		return 0, false, fmt.Errorf("upsert season %d: %w", s.Number, database.Classify(err))
	}
	return upsertOutcome(res)
}

// UpsertEpisodeTx merges an episode by (season_id, episode_number).
func (r *SeasonRepo) UpsertEpisodeTx(ctx context.Context, tx *sql.Tx, seasonID uint64, e model.EpisodeRecord) (uint64, bool, error) {
	const q = `
		INSERT INTO episodes (season_id, episode_number, name, overview, air_date, runtime_min)
		VALUES (?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE
			id          = LAST_INSERT_ID(id),
			name        = COALESCE(VALUES(name), name),
			overview    = COALESCE(VALUES(overview), overview),
			air_date    = COALESCE(VALUES(air_date), air_date),
			runtime_min = COALESCE(VALUES(runtime_min), runtime_min)`
	res, err := tx.ExecContext(ctx, q, seasonID, e.Number, nullString(e.Name), nullString(e.Overview),
		nullTimePtr(e.AirDate), nullInt(e.RuntimeMin))
	if err != nil {
		return 0, false, fmt.Errorf("upsert episode %d: %w", e.Number, database.Classify(err))
	}
	return upsertOutcome(res)
}

// ListByShow returns the seasons of a show ordered by number, each with its
// episodes ordered by number.
func (r *SeasonRepo) ListByShow(ctx context.Context, showID uint64) ([]model.Season, error) {
	const q = `
		SELECT s.id, s.season_number, s.name, s.overview, s.air_date, s.poster_path,
		       e.id, e.episode_number, e.name, e.overview, e.air_date, e.runtime_min
		FROM seasons s
		LEFT JOIN episodes e ON e.season_id = s.id
		WHERE s.show_id = ?
		ORDER BY s.season_number ASC, e.episode_number ASC`
	rows, err := r.db.QueryContext(ctx, q, showID)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", database.Classify(err))
	}
	defer rows.Close()

	out := []model.Season{}
	for rows.Next() {
		var (
			sid                 uint64
			snum                int
			sname, sover, spost sql.NullString
			sair                sql.NullTime
			eid, enum, eruntime sql.NullInt64
			ename, eover        sql.NullString
			eair                sql.NullTime
		)
		if err := rows.Scan(&sid, &snum, &sname, &sover, &sair, &spost,
			&eid, &enum, &ename, &eover, &eair, &eruntime); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].ID != sid {
			out = append(out, model.Season{
				ID:           sid,
				ShowID:       showID,
				SeasonNumber: snum,
				Name:         strPtr(sname),
				Overview:     strPtr(sover),
				AirDate:      datePtr(sair),
				PosterPath:   strPtr(spost),
				Episodes:     []model.Episode{},
			})
		}
		if eid.Valid {
			cur := &out[len(out)-1]
			cur.Episodes = append(cur.Episodes, model.Episode{
				ID:            uint64(eid.Int64),
				SeasonID:      sid,
				EpisodeNumber: int(enum.Int64),
				Name:          strPtr(ename),
				Overview:      strPtr(eover),
				AirDate:       datePtr(eair),
				RuntimeMin:    intPtr(eruntime),
			})
		}
	}
	return out, rows.Err()
}
