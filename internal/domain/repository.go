package domain

import (
	"context"
	"net/http"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogRepository is the persistent store of catalog records.
// GetByID returns ErrMovieNotFound when the id is absent.
type CatalogRepository interface {
	GetByID(ctx context.Context, id string) (*Movie, error)
	Put(ctx context.Context, movie *Movie) error
	DeleteByID(ctx context.Context, id string) error
}

// FetchResponse is the status and raw body of an upstream GET.
type FetchResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

// OK reports a 2xx status.
func (r *FetchResponse) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher performs cached GET requests.
type Fetcher interface {
	Fetch(ctx context.Context, url string, header http.Header) (*FetchResponse, error)
}

// CatalogSource pages through the external product catalog.
// An empty page marks the end of the catalog.
type CatalogSource interface {
	FetchCatalogPage(ctx context.Context, page int) ([]CatalogItem, error)
}

// RatingsSource searches the ratings provider by free-text title.
type RatingsSource interface {
	SearchRatings(ctx context.Context, title string) ([]RatingCandidate, error)
}

// KioskSource finds kiosks near a postal code and lists their stock.
type KioskSource interface {
	NearbyKiosks(ctx context.Context, postalCode string) ([]Kiosk, error)
	Inventory(ctx context.Context, storeID string) ([]InventoryItem, error)
	ReservationLink(productID, storeID string) string
}

// IngestLock keeps catalog ingestion single-flight.
type IngestLock interface {
	TryLock() (bool, error)
	Unlock() error
}
