// Package service holds the command and query layer between the HTTP
// adapter (or the CLI) and the repositories. Inputs are validated here;
// storage errors arrive already classified and are only given a
// user-facing message.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/database"
	"github.com/iliyamo/movie-tracker/internal/logging"
	"github.com/iliyamo/movie-tracker/internal/model"
)

type reviewStore interface {
	Upsert(ctx context.Context, userID uint64, s model.Subject, rating float64, body string) (uint64, bool, error)
}

type watchlistStore interface {
	Add(ctx context.Context, userID uint64, s model.Subject) (bool, error)
	Remove(ctx context.Context, userID uint64, s model.Subject) (bool, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.WatchlistEntry, error)
}

type commentStore interface {
	Create(ctx context.Context, userID uint64, s model.Subject, parentID *uint64, body string) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Comment, error)
}

type titleRemover interface {
	Delete(ctx context.Context, s model.Subject) error
}

type userStore interface {
	Create(ctx context.Context, handle, email, password string, cost int) (uint64, error)
}

// CommandService performs the mutations users and operators may request.
type CommandService struct {
	reviews    reviewStore
	watchlist  watchlistStore
	comments   commentStore
	titles     titleRemover
	users      userStore
	bcryptCost int
	timeout    time.Duration
	log        zerolog.Logger
}

func NewCommandService(reviews reviewStore, watchlist watchlistStore, comments commentStore, titles titleRemover, users userStore, bcryptCost int) *CommandService {
	return &CommandService{
		reviews:    reviews,
		watchlist:  watchlist,
		comments:   comments,
		titles:     titles,
		users:      users,
		bcryptCost: bcryptCost,
		log:        logging.Component("commands"),
	}
}

// WithStatementTimeout bounds the store work of every command.
func (s *CommandService) WithStatementTimeout(d time.Duration) *CommandService {
	s.timeout = d
	return s
}

type upsertResult struct {
	id      uint64
	created bool
}

// ReviewInput is the payload of AddReview.
type ReviewInput struct {
	UserID  uint64  `json:"user_id" validate:"required"`
	Kind    string  `json:"kind" validate:"required,oneof=movie tv"`
	TitleID uint64  `json:"title_id" validate:"required"`
	Rating  float64 `json:"rating" validate:"gte=0,lte=10"`
	Body    string  `json:"body" validate:"max=5000"`
}

// ReviewResult reports the stored review id and whether it was new.
type ReviewResult struct {
	ID      uint64 `json:"id"`
	Created bool   `json:"created"`
}

// AddReview writes the caller's review of a title. A second review of the
// same title replaces the first. Out-of-range ratings are rejected, not
// clamped.
func (s *CommandService) AddReview(ctx context.Context, in ReviewInput) (ReviewResult, error) {
	in.Body = strings.TrimSpace(in.Body)
	if err := validateStruct(in); err != nil {
		return ReviewResult{}, err
	}
	subj := model.Subject{Kind: model.Kind(in.Kind), ID: in.TitleID}
	res, err := database.Bounded(ctx, s.timeout, func(ctx context.Context) (upsertResult, error) {
		id, created, err := s.reviews.Upsert(ctx, in.UserID, subj, in.Rating, in.Body)
		return upsertResult{id, created}, err
	})
	if err != nil {
		return ReviewResult{}, referenceError(err)
	}
	s.log.Debug().Uint64("user_id", in.UserID).Str("kind", in.Kind).Uint64("title_id", in.TitleID).
		Bool("created", res.created).Msg("review stored")
	return ReviewResult{ID: res.id, Created: res.created}, nil
}

// WatchlistInput identifies a (user, title) pair.
type WatchlistInput struct {
	UserID  uint64 `json:"user_id" validate:"required"`
	Kind    string `json:"kind" validate:"required,oneof=movie tv"`
	TitleID uint64 `json:"title_id" validate:"required"`
}

func (in WatchlistInput) subject() model.Subject {
	return model.Subject{Kind: model.Kind(in.Kind), ID: in.TitleID}
}

// AddToWatchlist marks a title for the user. Adding a title already on the
// list succeeds and reports added=false.
func (s *CommandService) AddToWatchlist(ctx context.Context, in WatchlistInput) (bool, error) {
	if err := validateStruct(in); err != nil {
		return false, err
	}
	added, err := database.Bounded(ctx, s.timeout, func(ctx context.Context) (bool, error) {
		return s.watchlist.Add(ctx, in.UserID, in.subject())
	})
	if err != nil {
		return false, referenceError(err)
	}
	return added, nil
}

// RemoveFromWatchlist unmarks a title. Removing a title that is not on the
// list succeeds and reports removed=false.
func (s *CommandService) RemoveFromWatchlist(ctx context.Context, in WatchlistInput) (bool, error) {
	if err := validateStruct(in); err != nil {
		return false, err
	}
	return database.Bounded(ctx, s.timeout, func(ctx context.Context) (bool, error) {
		return s.watchlist.Remove(ctx, in.UserID, in.subject())
	})
}

// Watchlist lists the titles the user saved, newest first.
func (s *CommandService) Watchlist(ctx context.Context, userID uint64) ([]model.WatchlistEntry, error) {
	if userID == 0 {
		return nil, apperr.Validation("user_id is required")
	}
	return database.Bounded(ctx, s.timeout, func(ctx context.Context) ([]model.WatchlistEntry, error) {
		return s.watchlist.ListByUser(ctx, userID)
	})
}

// CommentInput is the payload of AddComment. ParentID answers an existing
// comment on the same title.
type CommentInput struct {
	UserID   uint64  `json:"user_id" validate:"required"`
	Kind     string  `json:"kind" validate:"required,oneof=movie tv"`
	TitleID  uint64  `json:"title_id" validate:"required"`
	ParentID *uint64 `json:"parent_id" validate:"omitempty,gt=0"`
	Body     string  `json:"body" validate:"required,max=2000"`
}

// AddComment posts a comment or a reply and returns its id.
func (s *CommandService) AddComment(ctx context.Context, in CommentInput) (uint64, error) {
	in.Body = strings.TrimSpace(in.Body)
	if err := validateStruct(in); err != nil {
		return 0, err
	}
	subj := model.Subject{Kind: model.Kind(in.Kind), ID: in.TitleID}
	return database.Bounded(ctx, s.timeout, func(ctx context.Context) (uint64, error) {
		if in.ParentID != nil {
			parent, err := s.comments.GetByID(ctx, *in.ParentID)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindNotFound {
					return 0, apperr.NotFound("parent comment not found")
				}
				return 0, err
			}
			if parent.Subject != subj {
				return 0, apperr.Validation("parent comment belongs to another title")
			}
		}
		id, err := s.comments.Create(ctx, in.UserID, subj, in.ParentID, in.Body)
		if err != nil {
			return 0, referenceError(err)
		}
		return id, nil
	})
}

// RemoveTitle deletes a title with its seasons, episodes, credits and genre
// links. Titles that users reviewed, saved or discussed cannot be removed.
func (s *CommandService) RemoveTitle(ctx context.Context, subj model.Subject) error {
	if subj.Kind != model.KindMovie && subj.Kind != model.KindTV {
		return apperr.Validation("kind must be one of [movie tv]")
	}
	if subj.ID == 0 {
		return apperr.Validation("id is required")
	}
	if err := database.BoundedExec(ctx, s.timeout, func(ctx context.Context) error {
		return s.titles.Delete(ctx, subj)
	}); err != nil {
		return err
	}
	s.log.Info().Str("kind", string(subj.Kind)).Uint64("id", subj.ID).Msg("title removed")
	return nil
}

// RegisterInput is the payload of RegisterUser.
type RegisterInput struct {
	Handle   string `json:"handle" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// RegisterUser creates a user with a bcrypt password hash. A taken email is
// a constraint violation.
func (s *CommandService) RegisterUser(ctx context.Context, in RegisterInput) (uint64, error) {
	in.Handle = strings.TrimSpace(in.Handle)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return 0, err
	}
	return database.Bounded(ctx, s.timeout, func(ctx context.Context) (uint64, error) {
		return s.users.Create(ctx, in.Handle, in.Email, in.Password, s.bcryptCost)
	})
}

// referenceError names the missing row behind a foreign key failure.
func referenceError(err error) error {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind != apperr.KindNotFound {
		return err
	}
	switch {
	case strings.HasSuffix(e.Constraint, "_user"):
		return apperr.Wrap(apperr.KindNotFound, "user not found", err)
	case strings.HasSuffix(e.Constraint, "_movie"), strings.HasSuffix(e.Constraint, "_show"):
		return apperr.Wrap(apperr.KindNotFound, "title not found", err)
	case strings.HasSuffix(e.Constraint, "_parent"):
		return apperr.Wrap(apperr.KindNotFound, "parent comment not found", err)
	}
	return err
}
