package seed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/ingest"
	"github.com/iliyamo/movie-tracker/internal/model"
)

type countingMerger struct {
	seen map[int64]bool
}

func (m *countingMerger) Merge(_ context.Context, rec model.TitleRecord) (ingest.Outcome, error) {
	key := rec.ExternalID
	if rec.Kind == model.KindTV {
		key = -key
	}
	if m.seen[key] {
		return ingest.OutcomeUpdated, nil
	}
	m.seen[key] = true
	return ingest.OutcomeInserted, nil
}

type fakeUsers struct {
	emails map[string]bool
}

func (f *fakeUsers) Create(_ context.Context, _, email, _ string, _ int) (uint64, error) {
	if f.emails[email] {
		return 0, apperr.Constraint("uq_users_email", "email already registered", errors.New("1062"))
	}
	f.emails[email] = true
	return uint64(len(f.emails)), nil
}

func TestRecordsShape(t *testing.T) {
	var movies, shows int
	for _, r := range Records() {
		switch r.Kind {
		case model.KindMovie:
			movies++
		case model.KindTV:
			shows++
			require.Len(t, r.Seasons, 2, r.Title)
			for _, s := range r.Seasons {
				assert.Len(t, s.Episodes, 3)
			}
		}
		assert.NotEmpty(t, r.Genres, r.Title)
		assert.NotEmpty(t, r.Cast, r.Title)
	}
	assert.Equal(t, 6, movies)
	assert.Equal(t, 3, shows)
}

func TestRecordsContainSearchFixtures(t *testing.T) {
	var withThe int
	for _, r := range Records() {
		if strings.Contains(strings.ToLower(r.Title), "the") {
			withThe++
		}
	}
	assert.Equal(t, 3, withThe)
}

func TestLoadIsRepeatable(t *testing.T) {
	m := &countingMerger{seen: map[int64]bool{}}
	users := &fakeUsers{emails: map[string]bool{}}

	first, err := Load(context.Background(), m, users, 4)
	require.NoError(t, err)
	assert.Equal(t, Result{Inserted: 9, Users: 2}, first)

	second, err := Load(context.Background(), m, users, 4)
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: 9}, second)
}
