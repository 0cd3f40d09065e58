package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/reelscout/backend/internal/domain"
	"github.com/reelscout/backend/internal/infrastructure/jobs"
)

// Version is reported by the health endpoint.
var Version = "1.0.0"

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// Aggregator builds the in-stock list for a location.
type Aggregator interface {
	Aggregate(ctx context.Context, location string) ([]domain.StockEntry, error)
}

// JobQueue queues and reports background jobs.
type JobQueue interface {
	Enqueue(kind jobs.Kind) (jobs.Job, error)
	Get(id string) (jobs.Job, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	inventory Aggregator
	catalog   domain.CatalogRepository
	jobs      JobQueue
	logger    *slog.Logger
}

// NewHandler creates a new HTTP handler. Any dependency may be nil; its
// endpoints then answer 503.
func NewHandler(inventory Aggregator, catalog domain.CatalogRepository, queue JobQueue, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		inventory: inventory,
		catalog:   catalog,
		jobs:      queue,
		logger:    logger.With("component", "http"),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "reelscout-backend",
		"version": Version,
	})
}

// NearbyMovies lists the titles in stock near a five digit ZIP code.
func (h *Handler) NearbyMovies(c *gin.Context) {
	if h.inventory == nil {
		notConfigured(c, "inventory lookup")
		return
	}

	zip := c.Param("zip")
	if !zipPattern.MatchString(zip) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "zip must be five digits"})
		return
	}

	results, err := h.inventory.Aggregate(c.Request.Context(), zip)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if results == nil {
		results = []domain.StockEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"location": zip,
		"count":    len(results),
		"results":  results,
	})
}

// QueueIngest queues a catalog download and returns the job.
func (h *Handler) QueueIngest(c *gin.Context) {
	if h.jobs == nil {
		notConfigured(c, "ingestion")
		return
	}

	job, err := h.jobs.Enqueue(jobs.KindIngest)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("inventory download queued", "job_id", job.ID)
	c.JSON(http.StatusAccepted, job)
}

// GetJob reports the state of a queued job.
func (h *Handler) GetJob(c *gin.Context) {
	if h.jobs == nil {
		notConfigured(c, "ingestion")
		return
	}

	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetMovie returns one stored catalog record.
func (h *Handler) GetMovie(c *gin.Context) {
	if h.catalog == nil {
		notConfigured(c, "catalog")
		return
	}

	movie, err := h.catalog.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, movie)
}

func notConfigured(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " is not configured"})
}

// writeError maps domain errors to HTTP status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrMovieNotFound), errors.Is(err, domain.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrIngestInProgress):
		status = http.StatusConflict
	case errors.Is(err, jobs.ErrQueueFull):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrUpstreamStatus),
		errors.Is(err, domain.ErrTransport),
		errors.Is(err, domain.ErrDecode):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
