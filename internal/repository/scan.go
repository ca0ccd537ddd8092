package repository

import (
	"database/sql"
	"time"

	"github.com/iliyamo/movie-tracker/internal/model"
)

func nullTimePtr(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

func nullString(p *string) any {
	if p == nil || *p == "" {
		return nil
	}
	return *p
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	n := int(ni.Int64)
	return &n
}

func datePtr(nt sql.NullTime) *string {
	if !nt.Valid {
		return nil
	}
	return model.DateString(&nt.Time)
}

// upsertOutcome interprets RowsAffected of INSERT ... ON DUPLICATE KEY
// UPDATE: 1 for a new row, 2 for a changed row, 0 for an unchanged one.
func upsertOutcome(res sql.Result) (id uint64, inserted bool, err error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	lid, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return uint64(lid), n == 1, nil
}
