package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/reelscout/backend/internal/domain"
)

// MockCatalogRepository is an in-memory domain.CatalogRepository
type MockCatalogRepository struct {
	mu      sync.Mutex
	movies  map[string]*domain.Movie
	puts    int
	deleted []string
	getErr  error
}

func NewMockCatalogRepository(movies ...*domain.Movie) *MockCatalogRepository {
	m := &MockCatalogRepository{movies: make(map[string]*domain.Movie)}
	for _, movie := range movies {
		m.movies[movie.ID] = movie
	}
	return m
}

func (m *MockCatalogRepository) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	movie, ok := m.movies[id]
	if !ok {
		return nil, domain.ErrMovieNotFound
	}
	return movie, nil
}

func (m *MockCatalogRepository) Put(ctx context.Context, movie *domain.Movie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.movies[movie.ID] = movie
	return nil
}

func (m *MockCatalogRepository) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	delete(m.movies, id)
	return nil
}

// MockCatalogSource serves fixed catalog pages, 1-based
type MockCatalogSource struct {
	pages   [][]domain.CatalogItem
	failAt  int
	fetched []int
}

func (m *MockCatalogSource) FetchCatalogPage(ctx context.Context, page int) ([]domain.CatalogItem, error) {
	m.fetched = append(m.fetched, page)
	if m.failAt == page {
		return nil, &domain.StatusError{Source: "kiosk", StatusCode: 500}
	}
	if page > len(m.pages) {
		return nil, nil
	}
	return m.pages[page-1], nil
}

// MockRatingsSource returns canned candidates per query
type MockRatingsSource struct {
	results map[string][]domain.RatingCandidate
	err     error
	queries []string
}

func (m *MockRatingsSource) SearchRatings(ctx context.Context, title string) ([]domain.RatingCandidate, error) {
	m.queries = append(m.queries, title)
	if m.err != nil {
		return nil, m.err
	}
	return m.results[title], nil
}

// MockKioskSource serves kiosks and inventories from maps
type MockKioskSource struct {
	mu           sync.Mutex
	kiosks       []domain.Kiosk
	nearbyErr    error
	inventories  map[string][]domain.InventoryItem
	inventoryErr map[string]error
	requested    []string
}

func (m *MockKioskSource) NearbyKiosks(ctx context.Context, postalCode string) ([]domain.Kiosk, error) {
	if m.nearbyErr != nil {
		return nil, m.nearbyErr
	}
	return m.kiosks, nil
}

func (m *MockKioskSource) Inventory(ctx context.Context, storeID string) ([]domain.InventoryItem, error) {
	m.mu.Lock()
	m.requested = append(m.requested, storeID)
	m.mu.Unlock()
	if err := m.inventoryErr[storeID]; err != nil {
		return nil, err
	}
	return m.inventories[storeID], nil
}

func (m *MockKioskSource) ReservationLink(productID, storeID string) string {
	return fmt.Sprintf("http://reserve.test?titleID=%s&StoreGUID=%s", productID, storeID)
}

// MockIngestLock is a domain.IngestLock that can be pre-held
type MockIngestLock struct {
	held     bool
	unlocked int
}

func (m *MockIngestLock) TryLock() (bool, error) {
	if m.held {
		return false, nil
	}
	m.held = true
	return true, nil
}

func (m *MockIngestLock) Unlock() error {
	m.held = false
	m.unlocked++
	return nil
}

// catalogItem builds a catalog item from a JSON object literal
func catalogItem(object string) domain.CatalogItem {
	fields, err := domain.DecodeOrderedObject([]byte(object))
	if err != nil {
		panic(err)
	}
	return domain.CatalogItem{Fields: fields}
}

func scoredMovie(id, title string, score int) *domain.Movie {
	return &domain.Movie{ID: id, Title: title, Attributes: domain.NewAttributes(), Score: &score}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
