package kiosk

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/reelscout/backend/internal/domain"
)

const sourceName = "kiosk"

// DefaultReservationURL is the cart page a reservation link points at.
const DefaultReservationURL = "http://www.redbox.com/externalcart"

// Client talks to the kiosk operator API: the product catalog, store search and
// per-store inventory. All requests go through the shared cached fetcher.
type Client struct {
	fetcher        domain.Fetcher
	apiKey         string
	baseURL        string
	reservationURL string
	pageSize       int
	logger         *slog.Logger
}

var (
	_ domain.CatalogSource = (*Client)(nil)
	_ domain.KioskSource   = (*Client)(nil)
)

// Config holds the client settings.
type Config struct {
	APIKey         string
	BaseURL        string
	ReservationURL string
	PageSize       int
}

// NewClient creates a kiosk API client.
func NewClient(fetcher domain.Fetcher, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	reservationURL := cfg.ReservationURL
	if reservationURL == "" {
		reservationURL = DefaultReservationURL
	}
	return &Client{
		fetcher:        fetcher,
		apiKey:         cfg.APIKey,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		reservationURL: reservationURL,
		pageSize:       pageSize,
		logger:         logger.With("component", "kiosk"),
	}
}

// get fetches reqURL and turns a non-2xx status into a *domain.StatusError.
func (c *Client) get(ctx context.Context, reqURL string, header http.Header) ([]byte, error) {
	resp, err := c.fetcher.Fetch(ctx, reqURL, header)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &domain.StatusError{Source: sourceName, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// FetchCatalogPage returns one page of the movie catalog, 1-based.
func (c *Client) FetchCatalogPage(ctx context.Context, page int) ([]domain.CatalogItem, error) {
	params := url.Values{}
	params.Add("pageSize", strconv.Itoa(c.pageSize))
	params.Add("pageNum", strconv.Itoa(page))
	params.Add("apiKey", c.apiKey)
	reqURL := fmt.Sprintf("%s/v3/products/movies?%s", c.baseURL, params.Encode())

	c.logger.Info("fetching catalog page", "page", page)
	body, err := c.get(ctx, reqURL, http.Header{"Accept": []string{"application/json"}})
	if err != nil {
		return nil, fmt.Errorf("catalog page %d: %w", page, err)
	}

	items, err := decodeCatalogPage(body)
	if err != nil {
		return nil, fmt.Errorf("catalog page %d: %w", page, err)
	}
	return items, nil
}

// NearbyKiosks lists stores near postalCode in the order the API returns them.
func (c *Client) NearbyKiosks(ctx context.Context, postalCode string) ([]domain.Kiosk, error) {
	params := url.Values{}
	params.Add("apiKey", c.apiKey)
	reqURL := fmt.Sprintf("%s/stores/postalcode/%s?%s", c.baseURL, url.PathEscape(postalCode), params.Encode())

	c.logger.Info("fetching kiosks", "postal_code", postalCode)
	body, err := c.get(ctx, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("kiosks near %s: %w", postalCode, err)
	}

	kiosks, err := decodeStores(body)
	if err != nil {
		return nil, fmt.Errorf("kiosks near %s: %w", postalCode, err)
	}
	return kiosks, nil
}

// Inventory lists the product lines stocked at storeID.
func (c *Client) Inventory(ctx context.Context, storeID string) ([]domain.InventoryItem, error) {
	params := url.Values{}
	params.Add("apiKey", c.apiKey)
	reqURL := fmt.Sprintf("%s/v3/inventory/stores/%s?%s", c.baseURL, url.PathEscape(storeID), params.Encode())

	c.logger.Info("fetching inventory", "store_id", storeID)
	body, err := c.get(ctx, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("inventory for store %s: %w", storeID, err)
	}

	items, err := decodeInventory(body)
	if err != nil {
		return nil, fmt.Errorf("inventory for store %s: %w", storeID, err)
	}
	return items, nil
}

// ReservationLink builds the pass-through cart link for a title at a store.
func (c *Client) ReservationLink(productID, storeID string) string {
	return fmt.Sprintf("%s?titleID=%s&StoreGUID=%s",
		c.reservationURL,
		url.QueryEscape(strings.ToLower(productID)),
		url.QueryEscape(strings.ToLower(storeID)))
}
