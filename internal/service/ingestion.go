package service

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/iliyamo/movie-tracker/internal/apperr"
	"github.com/iliyamo/movie-tracker/internal/ingest"
	"github.com/iliyamo/movie-tracker/internal/model"
)

type ingestRunner interface {
	Run(ctx context.Context, ro ingest.RunOptions) (ingest.Summary, error)
}

// ErrIngestionRunning rejects a run requested while another is in progress
// in this process.
var ErrIngestionRunning = apperr.New(apperr.KindConstraint, "an ingestion run is already in progress")

// IngestionService starts ingestion runs on request, one at a time.
type IngestionService struct {
	engine   ingestRunner
	maxPages int
	running  atomic.Bool
}

func NewIngestionService(engine ingestRunner, maxPages int) *IngestionService {
	if maxPages < 1 {
		maxPages = 500
	}
	return &IngestionService{engine: engine, maxPages: maxPages}
}

// IngestRequest is the payload of Run. Kinds is a comma separated list;
// empty means movie and tv.
type IngestRequest struct {
	Pages int    `json:"pages" validate:"gte=1"`
	Kinds string `json:"kinds"`
}

// Run executes one ingestion run synchronously and returns its summary. The
// summary is returned alongside a fatal or context error.
func (s *IngestionService) Run(ctx context.Context, req IngestRequest) (ingest.Summary, error) {
	if err := validateStruct(req); err != nil {
		return ingest.Summary{}, err
	}
	if req.Pages > s.maxPages {
		return ingest.Summary{}, apperr.Validation("pages is above the configured maximum")
	}
	kinds, err := ParseKinds(req.Kinds)
	if err != nil {
		return ingest.Summary{}, err
	}
	if !s.running.CompareAndSwap(false, true) {
		return ingest.Summary{}, ErrIngestionRunning
	}
	defer s.running.Store(false)

	return s.engine.Run(ctx, ingest.RunOptions{Pages: req.Pages, Kinds: kinds})
}

// ParseKinds reads a comma separated kind list such as "movie,tv".
func ParseKinds(s string) ([]model.Kind, error) {
	var out []model.Kind
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, err := model.ParseKind(part)
		if err != nil {
			return nil, apperr.Validation("kinds must list movie and/or tv")
		}
		out = append(out, k)
	}
	return out, nil
}
