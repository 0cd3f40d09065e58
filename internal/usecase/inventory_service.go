package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/reelscout/backend/internal/domain"
)

// Defaults for InventoryConfig.
const (
	DefaultMaxKiosks  = 5
	DefaultMaxResults = 50
)

// InventoryConfig holds configuration for the inventory service
type InventoryConfig struct {
	MaxKiosks  int
	MaxResults int
}

// InventoryService builds the ranked list of titles in stock near a location.
type InventoryService struct {
	kiosks     domain.KioskSource
	store      domain.CatalogRepository
	maxKiosks  int
	maxResults int
	logger     *slog.Logger
}

// NewInventoryService creates a new inventory service with dependencies
func NewInventoryService(
	kiosks domain.KioskSource,
	store domain.CatalogRepository,
	config InventoryConfig,
	logger *slog.Logger,
) *InventoryService {
	if config.MaxKiosks <= 0 {
		config.MaxKiosks = DefaultMaxKiosks
	}
	if config.MaxResults <= 0 {
		config.MaxResults = DefaultMaxResults
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryService{
		kiosks:     kiosks,
		store:      store,
		maxKiosks:  config.MaxKiosks,
		maxResults: config.MaxResults,
		logger:     logger.With("component", "inventory"),
	}
}

// Aggregate returns the titles in stock at the kiosks nearest to location, one
// entry per title at its closest kiosk, highest score first.
// Flow: nearby kiosks -> inventories -> join catalog -> dedupe -> sort -> truncate
func (s *InventoryService) Aggregate(ctx context.Context, location string) ([]domain.StockEntry, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("%w: location is required", domain.ErrInvalidRequest)
	}

	s.logger.Info("fetching kiosks", "location", location)
	kiosks, err := s.kiosks.NearbyKiosks(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("kiosks near %s: %w", location, err)
	}
	if len(kiosks) > s.maxKiosks {
		kiosks = kiosks[:s.maxKiosks]
	}

	inventories, err := s.fetchInventories(ctx, kiosks)
	if err != nil {
		return nil, err
	}

	var entries []domain.StockEntry
	for i, kiosk := range kiosks {
		if inventories[i] == nil {
			continue
		}
		// Items are still looked up without a distance so incomplete records
		// at this kiosk get purged.
		distance, distErr := kiosk.Distance()
		if distErr != nil {
			s.logger.Warn("skipping kiosk without usable distance", "store_id", kiosk.StoreID, "error", distErr)
		}
		for _, item := range inventories[i] {
			if !item.InStock() {
				continue
			}
			movie, ok, err := s.lookup(ctx, item.ProductID)
			if err != nil {
				return nil, err
			}
			if !ok || distErr != nil {
				continue
			}
			entries = append(entries, domain.StockEntry{
				Movie:           movie,
				StoreID:         kiosk.StoreID,
				Distance:        distance,
				ReservationLink: s.kiosks.ReservationLink(item.ProductID, kiosk.StoreID),
			})
		}
	}

	results := closestPerTitle(entries)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score() > results[j].Score()
	})
	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}
	return results, nil
}

// fetchInventories loads every kiosk inventory in parallel. A slot stays nil
// when its fetch failed so the caller can skip that kiosk.
func (s *InventoryService) fetchInventories(ctx context.Context, kiosks []domain.Kiosk) ([][]domain.InventoryItem, error) {
	inventories := make([][]domain.InventoryItem, len(kiosks))
	g, gctx := errgroup.WithContext(ctx)
	for i, kiosk := range kiosks {
		g.Go(func() error {
			s.logger.Debug("looking up inventory", "store_id", kiosk.StoreID)
			items, err := s.kiosks.Inventory(gctx, kiosk.StoreID)
			if err != nil {
				s.logger.Error("could not retrieve inventory", "store_id", kiosk.StoreID, "error", err)
				return nil
			}
			if items == nil {
				items = []domain.InventoryItem{}
			}
			inventories[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return inventories, nil
}

// lookup loads a catalog record for an inventory line. Records that never got
// a score are deleted and reported as absent.
func (s *InventoryService) lookup(ctx context.Context, productID string) (*domain.Movie, bool, error) {
	movie, err := s.store.GetByID(ctx, productID)
	if errors.Is(err, domain.ErrMovieNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("look up movie %s: %w", productID, err)
	}
	if !movie.HasScore() {
		s.logger.Error("purging incomplete record", "product_id", productID, "error", domain.ErrDataIntegrity)
		if err := s.store.DeleteByID(ctx, productID); err != nil {
			s.logger.Error("could not delete incomplete record", "product_id", productID, "error", err)
		}
		return nil, false, nil
	}
	return movie, true, nil
}

// closestPerTitle keeps one entry per title, the one with the smallest
// distance. Entries keep the position of their title's first appearance.
func closestPerTitle(entries []domain.StockEntry) []domain.StockEntry {
	index := make(map[string]int, len(entries))
	unique := make([]domain.StockEntry, 0, len(entries))
	for _, e := range entries {
		pos, seen := index[e.Title()]
		if !seen {
			index[e.Title()] = len(unique)
			unique = append(unique, e)
			continue
		}
		if e.Distance < unique[pos].Distance {
			unique[pos] = e
		}
	}
	return unique
}
