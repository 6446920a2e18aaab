package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"gradwatch/internal/flags"
	"gradwatch/internal/models"
	"gradwatch/internal/storage"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Scanner is the slice of the watcher the HTTP handlers need.
type Scanner interface {
	ScanForGraduations(ctx context.Context, policy models.FilterPolicy) ([]models.GraduationCandidate, error)
	ScanFreshGraduations(ctx context.Context, policy models.FilterPolicy) ([]models.GraduationCandidate, error)
	ScanAllGraduations(ctx context.Context, maxAgeMinutes float64) ([]models.GraduationCandidate, error)
}

// SchedulerControl exposes the autopost scheduler to the status and trigger
// endpoints.
type SchedulerControl interface {
	IsRunning() bool
	ScanAndNotify(ctx context.Context) error
}

// Digester summarizes recent call history on demand.
type Digester interface {
	Digest(ctx context.Context) (string, error)
}

// FlagStore is the runtime toggle store surfaced by the ops API.
type FlagStore interface {
	List(ctx context.Context) ([]*flags.Flag, error)
	Get(ctx context.Context, key string) (*flags.Flag, error)
	Upsert(ctx context.Context, key string, value bool) (*flags.Flag, error)
	Delete(ctx context.Context, key string) error
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Scanner   Scanner
	Store     storage.Store
	Scheduler SchedulerControl // optional
	Digester  Digester         // optional
	Flags     FlagStore        // optional
	DevMode   bool             // Enable detailed error responses in development
	Logger    *logrus.Logger   // Structured logger

	Policy         models.FilterPolicy
	GlobalMinScore float64
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health reports liveness plus the store's reachability
func (h *Handlers) Health(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{OK: true, Store: "ok"}
	if err := h.Store.Ping(ctx); err != nil {
		resp.Store = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// Status reports the scheduler and recipient state
func (h *Handlers) Status(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	recipients, err := h.Store.GetActiveRecipients(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to load recipients", map[string]any{"err": err.Error()})
	}

	running := false
	if h.Scheduler != nil {
		running = h.Scheduler.IsRunning()
	}

	return c.JSON(http.StatusOK, StatusResponse{
		SchedulerRunning: running,
		ActiveRecipients: len(recipients),
		Policy:           h.Policy.Name,
		GlobalMinScore:   h.GlobalMinScore,
	})
}

// Graduations runs a scan and returns the candidates as JSON
// Accepts mode (scan|fresh|all), policy (default|aggressive|conservative) and
// limit query parameters
func (h *Handlers) Graduations(c echo.Context) error {
	mode := c.QueryParam("mode")
	if mode == "" {
		mode = "scan"
	}

	policy := h.Policy
	if name := c.QueryParam("policy"); name != "" {
		policy = models.PolicyByName(name)
	}

	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 100"})
		}
		limit = n
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	var (
		candidates []models.GraduationCandidate
		err        error
	)
	switch mode {
	case "scan":
		candidates, err = h.Scanner.ScanForGraduations(ctx, policy)
	case "fresh":
		candidates, err = h.Scanner.ScanFreshGraduations(ctx, policy)
	case "all":
		candidates, err = h.Scanner.ScanAllGraduations(ctx, float64(policy.MaxAgeMinutes))
	default:
		return h.err(c, http.StatusBadRequest, "invalid mode", map[string]any{"mode": "must be scan, fresh or all"})
	}
	if err != nil {
		return h.err(c, http.StatusBadGateway, "scan failed", map[string]any{"err": err.Error()})
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return c.JSON(http.StatusOK, ScanResponse{
		Mode:       mode,
		Policy:     policy.Name,
		Count:      len(candidates),
		Candidates: candidates,
	})
}

// TriggerCycle runs one autopost cycle out of band
func (h *Handlers) TriggerCycle(c echo.Context) error {
	if h.Scheduler == nil {
		return h.err(c, http.StatusBadRequest, "autopost is not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	if err := h.Scheduler.ScanAndNotify(ctx); err != nil {
		return h.err(c, http.StatusBadGateway, "cycle failed", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// Calls returns the recent call log for one chat
func (h *Handlers) Calls(c echo.Context) error {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid chat_id", map[string]any{"chat_id": "must be an integer"})
	}

	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil || n < 1 || n > 200 {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
		}
		limit = n
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	logs, err := h.Store.GetCallLogs(ctx, chatID, limit)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get call logs", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": logs})
}

// FlagsList returns all runtime toggles
func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsGet retrieves one toggle, 404 when unset
func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsUpsert creates or updates a toggle
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsDelete removes a toggle, 204 on success
func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// Digest summarizes recent call history with the configured model
func (h *Handlers) Digest(c echo.Context) error {
	if h.Digester == nil {
		return h.err(c, http.StatusBadRequest, "digest is not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()
	summary, err := h.Digester.Digest(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "digest failed", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, DigestResponse{Summary: summary, TookMs: time.Since(start).Milliseconds()})
}
