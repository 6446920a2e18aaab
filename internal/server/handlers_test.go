package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gradwatch/internal/flags"
	"gradwatch/internal/models"
	"gradwatch/internal/storage"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScanner struct {
	candidates []models.GraduationCandidate
	err        error
	lastPolicy models.FilterPolicy
}

func (s *stubScanner) ScanForGraduations(ctx context.Context, policy models.FilterPolicy) ([]models.GraduationCandidate, error) {
	s.lastPolicy = policy
	return s.candidates, s.err
}

func (s *stubScanner) ScanFreshGraduations(ctx context.Context, policy models.FilterPolicy) ([]models.GraduationCandidate, error) {
	s.lastPolicy = policy
	return s.candidates, s.err
}

func (s *stubScanner) ScanAllGraduations(ctx context.Context, maxAgeMinutes float64) ([]models.GraduationCandidate, error) {
	return s.candidates, s.err
}

type stubScheduler struct {
	running  bool
	cycleErr error
	cycles   int
}

func (s *stubScheduler) IsRunning() bool { return s.running }

func (s *stubScheduler) ScanAndNotify(ctx context.Context) error {
	s.cycles++
	return s.cycleErr
}

func newTestHandlers(scanner *stubScanner, sched *stubScheduler) *Handlers {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &Handlers{
		Scanner:        scanner,
		Store:          storage.NewMemoryStore(),
		Scheduler:      sched,
		Logger:         logger,
		Policy:         models.DefaultPolicy(),
		GlobalMinScore: 6.5,
	}
}

func doRequest(t *testing.T, h *Handlers, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	RegisterRoutes(e, h, ServerConfig{})
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestHandlers(&stubScanner{}, &stubScheduler{})
	rec := doRequest(t, h, http.MethodGet, "/v1/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "ok", resp.Store)
}

func TestStatus(t *testing.T) {
	h := newTestHandlers(&stubScanner{}, &stubScheduler{running: true})
	require.NoError(t, h.Store.SaveRecipient(context.Background(),
		models.RecipientConfig{ChatID: 1, AutopostEnabled: true}))

	rec := doRequest(t, h, http.MethodGet, "/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.SchedulerRunning)
	assert.Equal(t, 1, resp.ActiveRecipients)
	assert.Equal(t, "default", resp.Policy)
}

func TestGraduations(t *testing.T) {
	scanner := &stubScanner{candidates: []models.GraduationCandidate{
		{Graduation: models.Graduation{Mint: "m1"}, Score: 8},
		{Graduation: models.Graduation{Mint: "m2"}, Score: 7},
	}}
	h := newTestHandlers(scanner, &stubScheduler{})

	rec := doRequest(t, h, http.MethodGet, "/v1/graduations?policy=aggressive&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "scan", resp.Mode)
	assert.Equal(t, "aggressive", resp.Policy)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "aggressive", scanner.lastPolicy.Name)
}

func TestGraduations_BadInput(t *testing.T) {
	h := newTestHandlers(&stubScanner{}, &stubScheduler{})

	rec := doRequest(t, h, http.MethodGet, "/v1/graduations?mode=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/v1/graduations?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraduations_UpstreamFailure(t *testing.T) {
	h := newTestHandlers(&stubScanner{err: errors.New("dexscreener down")}, &stubScheduler{})
	rec := doRequest(t, h, http.MethodGet, "/v1/graduations")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTriggerCycle(t *testing.T) {
	sched := &stubScheduler{}
	h := newTestHandlers(&stubScanner{}, sched)

	rec := doRequest(t, h, http.MethodPost, "/v1/autopost/cycle")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sched.cycles)
}

func TestCalls(t *testing.T) {
	h := newTestHandlers(&stubScanner{}, &stubScheduler{})
	require.NoError(t, h.Store.AppendCallLog(context.Background(),
		models.CallLog{ChatID: 5, Mint: "m1", Delivered: true}))

	rec := doRequest(t, h, http.MethodGet, "/v1/calls/5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "m1")

	rec = doRequest(t, h, http.MethodGet, "/v1/calls/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeFlagStore struct {
	m map[string]*flags.Flag
}

func newFakeFlagStore() *fakeFlagStore {
	return &fakeFlagStore{m: make(map[string]*flags.Flag)}
}

func (f *fakeFlagStore) List(ctx context.Context) ([]*flags.Flag, error) {
	out := make([]*flags.Flag, 0, len(f.m))
	for _, fl := range f.m {
		out = append(out, fl)
	}
	return out, nil
}

func (f *fakeFlagStore) Get(ctx context.Context, key string) (*flags.Flag, error) {
	fl, ok := f.m[key]
	if !ok {
		return nil, flags.ErrNotFound
	}
	return fl, nil
}

func (f *fakeFlagStore) Upsert(ctx context.Context, key string, value bool) (*flags.Flag, error) {
	fl := &flags.Flag{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	f.m[key] = fl
	return fl, nil
}

func (f *fakeFlagStore) Delete(ctx context.Context, key string) error {
	delete(f.m, key)
	return nil
}

func TestFlagsCRUD(t *testing.T) {
	h := newTestHandlers(&stubScanner{}, &stubScheduler{})
	h.Flags = newFakeFlagStore()
	e := echo.New()
	RegisterRoutes(e, h, ServerConfig{})

	// Unset flag is a 404.
	req := httptest.NewRequest(http.MethodGet, "/v1/flags/autopost.paused", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Upsert.
	req = httptest.NewRequest(http.MethodPost, "/v1/flags",
		strings.NewReader(`{"key":"autopost.paused","value":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/flags/autopost.paused", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":true`)

	req = httptest.NewRequest(http.MethodGet, "/v1/flags", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "autopost.paused")

	req = httptest.NewRequest(http.MethodDelete, "/v1/flags/autopost.paused", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Bad key is rejected before hitting the store.
	req = httptest.NewRequest(http.MethodGet, "/v1/flags/bad%20key", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFlags_NotConfigured(t *testing.T) {
	h := newTestHandlers(&stubScanner{}, &stubScheduler{})
	rec := doRequest(t, h, http.MethodGet, "/v1/flags")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDigest_NotConfigured(t *testing.T) {
	h := newTestHandlers(&stubScanner{}, &stubScheduler{})
	rec := doRequest(t, h, http.MethodPost, "/v1/digest")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	h := newTestHandlers(&stubScanner{}, &stubScheduler{})
	e := echo.New()
	RegisterRoutes(e, h, ServerConfig{APIKey: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusOK, rec.Code, "request without key must be rejected")

	req = httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJSONErrorHandler(t *testing.T) {
	h := newTestHandlers(&stubScanner{}, &stubScheduler{})
	rec := doRequest(t, h, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	// Method mismatch on a registered path goes through the same handler.
	rec = doRequest(t, h, http.MethodDelete, "/v1/health")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}
