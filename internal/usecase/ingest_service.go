package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reelscout/backend/internal/domain"
)

const (
	productIDField = "@productId"
	titleField     = "title"
)

// IngestReport counts what one ingestion run did.
type IngestReport struct {
	Pages   int `json:"pages"`
	Seen    int `json:"seen"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Matched int `json:"matched"`
}

// IngestConfig holds configuration for the ingest service
type IngestConfig struct {
	// MaxPages stops paging early; 0 pages until the catalog runs out.
	MaxPages int
}

// IngestService downloads the product catalog and enriches new records with ratings.
type IngestService struct {
	catalog  domain.CatalogSource
	ratings  domain.RatingsSource
	store    domain.CatalogRepository
	matcher  *TitleMatcher
	lock     domain.IngestLock
	maxPages int
	logger   *slog.Logger
}

// NewIngestService creates a new ingest service with dependencies.
// lock may be nil when the caller already guarantees a single run.
func NewIngestService(
	catalog domain.CatalogSource,
	ratings domain.RatingsSource,
	store domain.CatalogRepository,
	matcher *TitleMatcher,
	lock domain.IngestLock,
	config IngestConfig,
	logger *slog.Logger,
) *IngestService {
	if matcher == nil {
		matcher = NewTitleMatcher(DefaultMatchThreshold)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		catalog:  catalog,
		ratings:  ratings,
		store:    store,
		matcher:  matcher,
		lock:     lock,
		maxPages: config.MaxPages,
		logger:   logger.With("component", "ingest"),
	}
}

// Ingest pages through the catalog and stores every product not stored yet.
// Existing ids are skipped, so a failed run can simply be repeated.
func (s *IngestService) Ingest(ctx context.Context) (*IngestReport, error) {
	if s.lock != nil {
		locked, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire ingest lock: %w", err)
		}
		if !locked {
			return nil, domain.ErrIngestInProgress
		}
		defer func() {
			if err := s.lock.Unlock(); err != nil {
				s.logger.Warn("release ingest lock", "error", err)
			}
		}()
	}

	report := &IngestReport{}
	for page := 1; s.maxPages == 0 || page <= s.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		s.logger.Info("fetching catalog page", "page", page)
		items, err := s.catalog.FetchCatalogPage(ctx, page)
		if err != nil {
			return report, fmt.Errorf("catalog page %d: %w", page, err)
		}
		if len(items) == 0 {
			break
		}
		report.Pages++

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := s.ingestItem(ctx, item, report); err != nil {
				return report, err
			}
		}
	}

	s.logger.Info("catalog download complete",
		"pages", report.Pages,
		"created", report.Created,
		"skipped", report.Skipped,
		"matched", report.Matched,
	)
	return report, nil
}

func (s *IngestService) ingestItem(ctx context.Context, item domain.CatalogItem, report *IngestReport) error {
	report.Seen++

	id := fieldString(item, productIDField)
	if id == "" {
		s.logger.Warn("catalog item without product id")
		report.Skipped++
		return nil
	}

	_, err := s.store.GetByID(ctx, id)
	switch {
	case err == nil:
		report.Skipped++
		return nil
	case !errors.Is(err, domain.ErrMovieNotFound):
		return fmt.Errorf("look up movie %s: %w", id, err)
	}

	movie := buildMovie(id, item)
	logger := s.logger.With("product_id", id)
	logger.Info("saving metadata", "title", movie.Title)

	if candidate, ok := s.matchRating(ctx, logger, movie.Title); ok {
		movie.ApplyRating(*candidate)
		report.Matched++
	} else {
		movie.MarkUnrated()
	}

	if err := s.store.Put(ctx, movie); err != nil {
		return fmt.Errorf("save movie %s: %w", id, err)
	}
	report.Created++
	return nil
}

// matchRating searches the ratings source; any failure there counts as no candidates.
func (s *IngestService) matchRating(ctx context.Context, logger *slog.Logger, title string) (*domain.RatingCandidate, bool) {
	query := NormalizeTitle(title)
	if query == "" {
		return nil, false
	}
	candidates, err := s.ratings.SearchRatings(ctx, query)
	if err != nil {
		logger.Error("could not retrieve ratings", "title", title, "error", err)
		return nil, false
	}
	return s.matcher.Match(title, candidates)
}

// buildMovie copies the flat fields of a catalog item into a record. Field names
// are lower-cased; nested objects and arrays are dropped.
func buildMovie(id string, item domain.CatalogItem) *domain.Movie {
	movie := &domain.Movie{
		ID:         id,
		Title:      fieldString(item, titleField),
		Attributes: domain.NewAttributes(),
	}
	for _, f := range item.Fields {
		key := strings.ToLower(f.Key)
		if key == titleField || key == strings.ToLower(productIDField) {
			continue
		}
		value, ok := f.Scalar()
		if !ok {
			continue
		}
		movie.Attributes.Set(key, value)
	}
	return movie
}

func fieldString(item domain.CatalogItem, name string) string {
	raw, ok := item.Lookup(name)
	if !ok {
		return ""
	}
	s, err := domain.ScalarString(raw)
	if err != nil {
		return ""
	}
	return s
}
