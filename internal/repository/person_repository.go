package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
)

// PersonRepo manages people and their credits on titles.
type PersonRepo struct{ db *sql.DB }

func NewPersonRepo(db *sql.DB) *PersonRepo { return &PersonRepo{db: db} }

// UpsertTx merges a person by tmdb_person_id. Credits lists usually carry no
// biography or birthday, so stored details survive a sparse fetch.
func (r *PersonRepo) UpsertTx(ctx context.Context, tx *sql.Tx, c model.CastRef) (uint64, error) {
	const q = `
		INSERT INTO people (tmdb_person_id, name, profile_path, biography, birthday)
		VALUES (?,?,?,?,?)
		ON DUPLICATE KEY UPDATE
			id           = LAST_INSERT_ID(id),
			name         = VALUES(name),
			profile_path = COALESCE(VALUES(profile_path), profile_path),
			biography    = COALESCE(VALUES(biography), biography),
			birthday     = COALESCE(VALUES(birthday), birthday)`
	res, err := tx.ExecContext(ctx, q, c.PersonExternalID, c.Name, nullString(c.ProfilePath),
		nullString(c.Biography), nullTimePtr(c.Birthday))
	if err != nil {
		return 0, fmt.Errorf("upsert person %d: %w", c.PersonExternalID, database.Classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// UpsertCastTx records a credit keyed by (title, person, character). The
// billing order is refreshed on repeat merges.
func (r *PersonRepo) UpsertCastTx(ctx context.Context, tx *sql.Tx, kind model.Kind, titleID, personID uint64, character string, order int) error {
	ks, err := sqlFor(kind)
	if err != nil {
		return err
	}
	q := "INSERT INTO " + ks.castTable + " (" + ks.subjectCol + ", person_id, character_name, cast_order) " +
		"VALUES (?,?,?,?) ON DUPLICATE KEY UPDATE cast_order = VALUES(cast_order)"
	if _, err := tx.ExecContext(ctx, q, titleID, personID, character, order); err != nil {
		return fmt.Errorf("upsert cast: %w", database.Classify(err))
	}
	return nil
}

// TopCast returns up to limit credits of a title in billing order.
func (r *PersonRepo) TopCast(ctx context.Context, s model.Subject, limit int) ([]model.CastMember, error) {
	ks, err := sqlFor(s.Kind)
	if err != nil {
		return nil, err
	}
	q := "SELECT p.id, p.name, c.character_name, c.cast_order, p.profile_path FROM " + ks.castTable + " c " +
		"JOIN people p ON p.id = c.person_id WHERE c." + ks.subjectCol + " = ? " +
		"ORDER BY c.cast_order ASC, p.id ASC LIMIT ?"
	rows, err := r.db.QueryContext(ctx, q, s.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("top cast: %w", database.Classify(err))
	}
	defer rows.Close()

	out := []model.CastMember{}
	for rows.Next() {
		var (
			m       model.CastMember
			profile sql.NullString
		)
		if err := rows.Scan(&m.PersonID, &m.Name, &m.Character, &m.Order, &profile); err != nil {
			return nil, err
		}
		m.ProfilePath = strPtr(profile)
		out = append(out, m)
	}
	return out, rows.Err()
}
