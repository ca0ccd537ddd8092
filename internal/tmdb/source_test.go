package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-tracker/internal/model"
)

func fixtureServer(t *testing.T, routes map[string]string) *Client {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second, RatePerSecond: 1000, Burst: 100})
}

func TestSourceListPage(t *testing.T) {
	c := fixtureServer(t, map[string]string{
		"/tv/popular": `{"page":1,"total_pages":3,"results":[{"id":1,"vote_count":10,"poster_path":"/p.jpg"},{"id":2,"vote_count":0,"poster_path":""}]}`,
	})
	src := NewSource(c, SourceOptions{})

	page, err := src.ListPage(context.Background(), model.KindTV, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].HasPoster)
	assert.False(t, page.Items[1].HasPoster)
	assert.Equal(t, 10, page.Items[0].VoteCount)
}

func TestSourceFetchMovie(t *testing.T) {
	c := fixtureServer(t, map[string]string{
		"/movie/603": `{"id":603,"title":" The Matrix ","overview":"Neo.","release_date":"1999-03-31","runtime":136,
			"popularity":80.5,"vote_average":8.2,"vote_count":25000,"original_language":"en",
			"genres":[{"id":28,"name":"Action"}],
			"credits":{"cast":[{"id":6384,"name":"Keanu Reeves","character":"Neo","order":0},
			                   {"id":2975,"name":"Laurence Fishburne","character":"Morpheus","order":1},
			                   {"id":530,"name":"Carrie-Anne Moss","character":"Trinity","order":2}]}}`,
		"/person/6384": `{"id":6384,"name":"Keanu Reeves","biography":"Actor.","birthday":"1964-09-02"}`,
	})
	src := NewSource(c, SourceOptions{MaxCast: 2, PersonDetailsTop: 1})

	rec, err := src.FetchTitle(context.Background(), model.KindMovie, 603)
	require.NoError(t, err)
	assert.Equal(t, model.KindMovie, rec.Kind)
	assert.Equal(t, "The Matrix", rec.Title)
	require.NotNil(t, rec.ReleaseDate)
	assert.Equal(t, "1999-03-31", rec.ReleaseDate.Format("2006-01-02"))
	require.NotNil(t, rec.RuntimeMin)
	assert.Equal(t, 136, *rec.RuntimeMin)
	require.Len(t, rec.Genres, 1)
	assert.Equal(t, "Action", rec.Genres[0].Name)

	require.Len(t, rec.Cast, 2)
	assert.Equal(t, "Neo", rec.Cast[0].Character)
	require.NotNil(t, rec.Cast[0].Biography)
	assert.Equal(t, "Actor.", *rec.Cast[0].Biography)
	require.NotNil(t, rec.Cast[0].Birthday)
	assert.Nil(t, rec.Cast[1].Biography)
}

func TestSourceFetchShowSkipsSpecialsAndCapsEpisodes(t *testing.T) {
	c := fixtureServer(t, map[string]string{
		"/tv/1399": `{"id":1399,"name":"Game of Thrones","first_air_date":"2011-04-17","last_air_date":"2019-05-19",
			"number_of_seasons":1,"vote_count":100,
			"seasons":[{"season_number":0,"name":"Specials"},{"season_number":1,"name":"Season 1","air_date":"2011-04-17"}],
			"aggregate_credits":{"cast":[{"id":22970,"name":"Peter Dinklage","order":0,"roles":[{"character":"Tyrion Lannister","episode_count":73}]},
			                             {"id":1,"name":"Nobody","order":1,"roles":[]}]}}`,
		"/tv/1399/season/1": `{"season_number":1,"name":"Season 1","episodes":[
			{"episode_number":1,"name":"Winter Is Coming","air_date":"2011-04-17","runtime":62},
			{"episode_number":2,"name":"The Kingsroad","air_date":"2011-04-24","runtime":56},
			{"episode_number":3,"name":"Lord Snow","air_date":"","runtime":0}]}`,
	})
	src := NewSource(c, SourceOptions{MaxEpisodesPerSeason: 2})

	rec, err := src.FetchTitle(context.Background(), model.KindTV, 1399)
	require.NoError(t, err)
	assert.Equal(t, model.KindTV, rec.Kind)
	require.NotNil(t, rec.LastAirDate)
	require.NotNil(t, rec.NumberOfSeasons)

	require.Len(t, rec.Cast, 2)
	assert.Equal(t, "Tyrion Lannister", rec.Cast[0].Character)
	assert.Equal(t, "", rec.Cast[1].Character)

	require.Len(t, rec.Seasons, 1)
	assert.Equal(t, 1, rec.Seasons[0].Number)
	require.Len(t, rec.Seasons[0].Episodes, 2)
	assert.Equal(t, "Winter Is Coming", *rec.Seasons[0].Episodes[0].Name)
}

func TestParseDateRejectsBlankAndMalformed(t *testing.T) {
	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("2011-13-45"))
	require.NotNil(t, parseDate("2011-04-17"))
}
