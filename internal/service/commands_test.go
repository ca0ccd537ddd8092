package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/model"
)

type mockReviews struct{ mock.Mock }

func (m *mockReviews) Upsert(ctx context.Context, userID uint64, s model.Subject, rating float64, body string) (uint64, bool, error) {
	args := m.Called(ctx, userID, s, rating, body)
	return args.Get(0).(uint64), args.Bool(1), args.Error(2)
}

type mockWatchlist struct{ mock.Mock }

func (m *mockWatchlist) Add(ctx context.Context, userID uint64, s model.Subject) (bool, error) {
	args := m.Called(ctx, userID, s)
	return args.Bool(0), args.Error(1)
}

func (m *mockWatchlist) Remove(ctx context.Context, userID uint64, s model.Subject) (bool, error) {
	args := m.Called(ctx, userID, s)
	return args.Bool(0), args.Error(1)
}

func (m *mockWatchlist) ListByUser(ctx context.Context, userID uint64) ([]model.WatchlistEntry, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.WatchlistEntry), args.Error(1)
}

type mockComments struct{ mock.Mock }

func (m *mockComments) Create(ctx context.Context, userID uint64, s model.Subject, parentID *uint64, body string) (uint64, error) {
	args := m.Called(ctx, userID, s, parentID, body)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockComments) GetByID(ctx context.Context, id uint64) (model.Comment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Comment), args.Error(1)
}

type mockTitles struct{ mock.Mock }

func (m *mockTitles) Delete(ctx context.Context, s model.Subject) error {
	return m.Called(ctx, s).Error(0)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, handle, email, password string, cost int) (uint64, error) {
	args := m.Called(ctx, handle, email, password, cost)
	return args.Get(0).(uint64), args.Error(1)
}

type commandDeps struct {
	reviews   *mockReviews
	watchlist *mockWatchlist
	comments  *mockComments
	titles    *mockTitles
	users     *mockUsers
}

func newCommands() (*CommandService, commandDeps) {
	d := commandDeps{&mockReviews{}, &mockWatchlist{}, &mockComments{}, &mockTitles{}, &mockUsers{}}
	return NewCommandService(d.reviews, d.watchlist, d.comments, d.titles, d.users, 4), d
}

var ctx = context.Background()

func TestAddReviewStoresTrimmedBody(t *testing.T) {
	svc, d := newCommands()
	subj := model.Subject{Kind: model.KindMovie, ID: 3}
	d.reviews.On("Upsert", mock.Anything, uint64(1), subj, 8.5, "great").Return(uint64(10), true, nil)

	res, err := svc.AddReview(ctx, ReviewInput{UserID: 1, Kind: "movie", TitleID: 3, Rating: 8.5, Body: "  great "})
	require.NoError(t, err)
	assert.Equal(t, ReviewResult{ID: 10, Created: true}, res)
	d.reviews.AssertExpectations(t)
}

func TestAddReviewRejectsOutOfRangeRating(t *testing.T) {
	svc, d := newCommands()

	for _, rating := range []float64{-0.5, 10.1, 42} {
		_, err := svc.AddReview(ctx, ReviewInput{UserID: 1, Kind: "tv", TitleID: 3, Rating: rating})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Contains(t, apperr.MessageOf(err), "rating")
	}
	d.reviews.AssertNotCalled(t, "Upsert")
}

func TestAddReviewRejectsUnknownKind(t *testing.T) {
	svc, _ := newCommands()
	_, err := svc.AddReview(ctx, ReviewInput{UserID: 1, Kind: "anime", TitleID: 3, Rating: 5})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.MessageOf(err), "kind must be one of")
}

func TestAddReviewNamesMissingReference(t *testing.T) {
	svc, d := newCommands()
	fk := &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row: a foreign key constraint fails (`db`.`reviews`, CONSTRAINT `fk_reviews_user` FOREIGN KEY (`user_id`) REFERENCES `users` (`id`))"}
	d.reviews.On("Upsert", mock.Anything, uint64(99), mock.Anything, 7.0, "").
		Return(uint64(0), false, fmt.Errorf("upsert review: %w", database.Classify(fk)))

	_, err := svc.AddReview(ctx, ReviewInput{UserID: 99, Kind: "movie", TitleID: 3, Rating: 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "user not found", apperr.MessageOf(err))
}

func TestWatchlistAddAndRemoveAreIdempotent(t *testing.T) {
	svc, d := newCommands()
	subj := model.Subject{Kind: model.KindTV, ID: 5}
	d.watchlist.On("Add", mock.Anything, uint64(2), subj).Return(true, nil).Once()
	d.watchlist.On("Add", mock.Anything, uint64(2), subj).Return(false, nil).Once()
	d.watchlist.On("Remove", mock.Anything, uint64(2), subj).Return(false, nil)

	in := WatchlistInput{UserID: 2, Kind: "tv", TitleID: 5}
	added, err := svc.AddToWatchlist(ctx, in)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = svc.AddToWatchlist(ctx, in)
	require.NoError(t, err)
	assert.False(t, added)

	removed, err := svc.RemoveFromWatchlist(ctx, in)
	require.NoError(t, err)
	assert.False(t, removed)
	d.watchlist.AssertExpectations(t)
}

func TestWatchlistRequiresUser(t *testing.T) {
	svc, _ := newCommands()
	_, err := svc.AddToWatchlist(ctx, WatchlistInput{Kind: "movie", TitleID: 1})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.MessageOf(err), "user_id is required")
}

func TestAddCommentReplyMustShareTitle(t *testing.T) {
	svc, d := newCommands()
	parent := uint64(40)
	d.comments.On("GetByID", mock.Anything, parent).
		Return(model.Comment{ID: parent, Subject: model.Subject{Kind: model.KindMovie, ID: 8}}, nil)

	_, err := svc.AddComment(ctx, CommentInput{UserID: 1, Kind: "movie", TitleID: 9, ParentID: &parent, Body: "agreed"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	d.comments.AssertNotCalled(t, "Create")
}

func TestAddCommentReply(t *testing.T) {
	svc, d := newCommands()
	parent := uint64(40)
	subj := model.Subject{Kind: model.KindMovie, ID: 8}
	d.comments.On("GetByID", mock.Anything, parent).Return(model.Comment{ID: parent, Subject: subj}, nil)
	d.comments.On("Create", mock.Anything, uint64(1), subj, &parent, "agreed").Return(uint64(41), nil)

	id, err := svc.AddComment(ctx, CommentInput{UserID: 1, Kind: "movie", TitleID: 8, ParentID: &parent, Body: "agreed"})
	require.NoError(t, err)
	assert.Equal(t, uint64(41), id)
}

func TestAddCommentMissingParent(t *testing.T) {
	svc, d := newCommands()
	parent := uint64(77)
	d.comments.On("GetByID", mock.Anything, parent).Return(model.Comment{}, apperr.NotFound("record not found"))

	_, err := svc.AddComment(ctx, CommentInput{UserID: 1, Kind: "tv", TitleID: 2, ParentID: &parent, Body: "hi"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "parent comment not found", apperr.MessageOf(err))
}

func TestAddCommentRequiresBody(t *testing.T) {
	svc, _ := newCommands()
	_, err := svc.AddComment(ctx, CommentInput{UserID: 1, Kind: "tv", TitleID: 2, Body: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRemoveTitlePassesConstraintThrough(t *testing.T) {
	svc, d := newCommands()
	subj := model.Subject{Kind: model.KindMovie, ID: 4}
	d.titles.On("Delete", mock.Anything, subj).
		Return(apperr.Constraint("fk_reviews_movie", "title has user reviews, watchlist entries or comments", nil))

	err := svc.RemoveTitle(ctx, subj)
	assert.ErrorIs(t, err, apperr.ErrConstraint)

	assert.ErrorIs(t, svc.RemoveTitle(ctx, model.Subject{Kind: "anime", ID: 4}), apperr.ErrValidation)
}

func TestRegisterUserNormalisesEmail(t *testing.T) {
	svc, d := newCommands()
	d.users.On("Create", mock.Anything, "ana", "ana@example.com", "s3cretpass", 4).Return(uint64(5), nil)

	id, err := svc.RegisterUser(ctx, RegisterInput{Handle: " ana ", Email: " Ana@Example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)

	_, err = svc.RegisterUser(ctx, RegisterInput{Handle: "bo", Email: "not-an-email", Password: "short"})
	require.Error(t, err)
	msg := apperr.MessageOf(err)
	assert.Contains(t, msg, "email must be a valid email address")
	assert.Contains(t, msg, "password must be at least 8 characters")
}

func TestAddReviewStatementTimeout(t *testing.T) {
	svc, d := newCommands()
	svc.WithStatementTimeout(20 * time.Millisecond)
	subj := model.Subject{Kind: model.KindMovie, ID: 1}
	d.reviews.On("Upsert", mock.Anything, uint64(7), subj, 8.0, "").
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return(uint64(0), false, fmt.Errorf("exec: %w", context.Canceled))

	start := time.Now()
	_, err := svc.AddReview(ctx, ReviewInput{UserID: 7, Kind: "movie", TitleID: 1, Rating: 8})
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
}

func TestRemoveTitleStatementTimeout(t *testing.T) {
	svc, d := newCommands()
	svc.WithStatementTimeout(20 * time.Millisecond)
	subj := model.Subject{Kind: model.KindTV, ID: 3}
	d.titles.On("Delete", mock.Anything, subj).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return(context.Canceled)

	err := svc.RemoveTitle(ctx, subj)
	assert.ErrorIs(t, err, apperr.ErrTimeout)
}
