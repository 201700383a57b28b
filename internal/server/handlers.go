// Package server provides the HTTP surface that registers the nakdan
// operations as routes with structured success/failure responses.
package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"nakdan/config"
	"nakdan/internal/core"
	"nakdan/internal/nakdan"
	"nakdan/internal/status"
)

// Handler holds the HTTP handlers and their collaborators.
type Handler struct {
	client         *nakdan.Client
	tracker        *status.Tracker
	settings       *config.SettingsStore
	defaultRetries int
	logger         *slog.Logger
}

// NewHandler creates a handler around the shared client instance.
func NewHandler(client *nakdan.Client, tracker *status.Tracker, settings *config.SettingsStore, defaultRetries int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		client:         client,
		tracker:        tracker,
		settings:       settings,
		defaultRetries: defaultRetries,
		logger:         logger,
	}
}

type nikudRequest struct {
	Text       string `json:"text"`
	Genre      string `json:"genre"`
	MaxRetries *int   `json:"max_retries"`
}

// GetNikud handles POST /v1/nikud.
func (h *Handler) GetNikud(c echo.Context) error {
	var req nikudRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, failureBody("invalid request body: "+err.Error()))
	}
	if req.Genre == "" {
		req.Genre = core.GenreModern
	}
	maxRetries := h.defaultRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	result, err := h.client.Lookup(c.Request().Context(), req.Text, req.Genre, maxRetries)
	if err != nil {
		h.tracker.RecordFailure(req.Text, h.client.Stats())
		return h.failure(c, err)
	}

	stats := h.client.Stats()
	h.tracker.RecordSuccess(req.Text, result.Text, stats)

	return c.JSON(http.StatusOK, map[string]any{
		"success":       true,
		"original_text": req.Text,
		"nikud_text":    result.Text,
		"response_time": result.ResponseTime,
		"attempts":      result.Attempts,
		"cache_stats":   stats,
	})
}

// ClearCache handles POST /v1/cache/clear.
func (h *Handler) ClearCache(c echo.Context) error {
	statsBefore := h.client.Stats()
	cleared := h.client.ClearCache()

	return c.JSON(http.StatusOK, map[string]any{
		"success":            true,
		"cleared_entries":    cleared,
		"cache_stats_before": statsBefore,
	})
}

// GetConfig handles GET /v1/config.
func (h *Handler) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.client.CurrentConfig())
}

// UpdateConfig handles POST /v1/config. Any subset of the settings may be
// supplied; sweeps and trims triggered by the change complete before the
// response is written, and the new settings are persisted.
func (h *Handler) UpdateConfig(c echo.Context) error {
	var update core.SettingsUpdate
	if err := c.Bind(&update); err != nil {
		return c.JSON(http.StatusBadRequest, failureBody("invalid request body: "+err.Error()))
	}

	before, after, err := h.client.UpdateSettings(update)
	if err != nil {
		return h.failure(c, err)
	}

	if err := h.settings.Save(after); err != nil {
		h.logger.Warn("failed to persist settings", "error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":       true,
		"config_before": before,
		"config_after":  after,
		"cache_stats":   h.client.Stats(),
	})
}

// GetStats handles GET /v1/stats.
func (h *Handler) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.client.Stats())
}

// GetStatus handles GET /v1/status.
func (h *Handler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.tracker.Snapshot())
}

// Health handles GET /health.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// failure maps service errors to structured failure responses. Raw
// transport faults never reach this boundary; a lookup that exhausted its
// retries arrives as core.ErrNoResult.
func (h *Handler) failure(c echo.Context, err error) error {
	var svcErr *core.ServiceError
	if errors.As(err, &svcErr) {
		return c.JSON(svcErr.HTTPStatusCode(), failureBody(svcErr.Message))
	}
	if errors.Is(err, core.ErrNoResult) {
		return h.failure(c, core.NewUpstreamError(err))
	}

	h.logger.Error("unexpected error", "error", err)
	return c.JSON(http.StatusInternalServerError, failureBody("an unexpected error occurred"))
}

func failureBody(message string) map[string]any {
	return map[string]any{
		"success": false,
		"error":   message,
	}
}
