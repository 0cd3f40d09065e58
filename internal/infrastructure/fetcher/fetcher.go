// Package fetcher issues upstream GET requests through a shared response cache.
//
// Responses are keyed by a fingerprint of the URL and the request headers and
// kept for a fixed TTL whatever their status. The fetcher never retries and never
// interprets status codes; callers decide what a non-2xx response means.
package fetcher

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/reelscout/backend/internal/domain"
)

// DefaultTTL is how long a fetched response stays cached.
const DefaultTTL = time.Hour

const userAgent = "ReelScout/1.0"

// Config tunes a Fetcher.
type Config struct {
	TTL time.Duration
	// RequestsPerHour caps outbound requests; zero disables the limiter.
	RequestsPerHour int
	Burst           int
}

// Fetcher is a caching HTTP GET client.
type Fetcher struct {
	cache       domain.CacheRepository
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	ttl         time.Duration
	group       singleflight.Group
	logger      *slog.Logger
}

var _ domain.Fetcher = (*Fetcher)(nil)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Fetcher backed by cache.
func New(cache domain.CacheRepository, cfg Config, opts ...Option) *Fetcher {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	f := &Fetcher{
		cache:      cache,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		ttl:        ttl,
		logger:     slog.Default(),
	}

	if cfg.RequestsPerHour > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 10
		}
		f.rateLimiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerHour)/3600.0), burst)
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fingerprint derives the cache key for a request: the MD5 of the URL followed
// by the headers in sorted order.
func Fingerprint(url string, header http.Header) string {
	var b strings.Builder
	b.WriteString(url)

	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, http.CanonicalHeaderKey(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n")
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(strings.Join(header.Values(k), ","))
	}

	sum := md5.Sum([]byte(b.String()))
	return "fetch:" + hex.EncodeToString(sum[:])
}

// Fetch returns the cached response for url, or performs the request and caches it.
func (f *Fetcher) Fetch(ctx context.Context, url string, header http.Header) (*domain.FetchResponse, error) {
	key := Fingerprint(url, header)

	if resp, ok := f.lookup(ctx, key); ok {
		return resp, nil
	}

	// The shared request outlives any single caller; each caller only stops
	// waiting when its own context ends.
	ch := f.group.DoChan(key, func() (interface{}, error) {
		sharedCtx, cancel := f.detach(ctx)
		defer cancel()
		resp, err := f.do(sharedCtx, url, header)
		if err != nil {
			return nil, err
		}
		f.store(sharedCtx, key, resp)
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.FetchResponse), nil
	}
}

// detach drops the caller's cancellation but keeps its values, bounded by the
// HTTP client timeout.
func (f *Fetcher) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if f.httpClient.Timeout > 0 {
		return context.WithTimeout(detached, f.httpClient.Timeout)
	}
	return context.WithCancel(detached)
}

func (f *Fetcher) do(ctx context.Context, url string, header http.Header) (*domain.FetchResponse, error) {
	if f.rateLimiter != nil {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrTransport, err)
	}

	f.logger.Debug("upstream fetch", "status", resp.StatusCode, "bytes", len(body))
	return &domain.FetchResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

// lookup decodes a cached response. Cache values are stored as a JSON string so
// every backend hands back the same shape.
func (f *Fetcher) lookup(ctx context.Context, key string) (*domain.FetchResponse, bool) {
	value, err := f.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	encoded, ok := value.(string)
	if !ok {
		return nil, false
	}
	var resp domain.FetchResponse
	if err := json.Unmarshal([]byte(encoded), &resp); err != nil {
		f.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	return &resp, true
}

func (f *Fetcher) store(ctx context.Context, key string, resp *domain.FetchResponse) {
	encoded, err := json.Marshal(resp)
	if err != nil {
		f.logger.Warn("failed to encode response for cache", "key", key, "error", err)
		return
	}
	if err := f.cache.Set(ctx, key, string(encoded), f.ttl); err != nil {
		f.logger.Warn("failed to cache response", "key", key, "error", err)
	}
}
