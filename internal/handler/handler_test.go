package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FloodMonitorAPI/internal/config"
	"FloodMonitorAPI/internal/database"
	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/middleware"
	"FloodMonitorAPI/internal/models"
	"FloodMonitorAPI/internal/repository"
	"FloodMonitorAPI/internal/service"
)

type countingNotifier struct {
	sent []string
}

func (n *countingNotifier) Send(ctx context.Context, text string) error {
	n.sent = append(n.sent, text)
	return nil
}

type testEnv struct {
	router   *mux.Router
	readings *repository.ReadingRepository
	notifier *countingNotifier
}

func newTestEnv(t *testing.T, jwtSecret string) *testEnv {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "flood.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.Discard()
	readings := repository.NewReadingRepository(db)
	alerts := repository.NewAlertRepository(db)
	n := &countingNotifier{}

	policy := service.NewAlertPolicy(models.DefaultAlertConfig, n, log, service.WithHistory(alerts))
	stats := service.NewStatsService(readings, log)
	ingest := service.NewIngestService(readings, policy, log)

	r := mux.NewRouter()
	NewReadingHandler(ingest, stats, log).RegisterRoutes(r)
	NewStatsHandler(stats, log).RegisterRoutes(r)
	NewAlertHandler(policy, alerts, jwtSecret, log).RegisterRoutes(r)
	NewHealthHandler(db, readings, nil, log).RegisterRoutes(r)
	NewReportHandler(stats, alerts, models.DefaultAlertConfig.Threshold, time.UTC, log).RegisterRoutes(r)

	return &testEnv{router: r, readings: readings, notifier: n}
}

func (e *testEnv) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestIngestEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodPost, "/data", `{"device_id":"river-1","ultrasonic_cm":42.5,"level_percent":30}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.IngestResponse
	decode(t, rec, &resp)
	assert.True(t, resp.OK)
	assert.Equal(t, "river-1", resp.Received.DeviceID)
	assert.Equal(t, 30, resp.Received.LevelPercent)
	assert.Equal(t, 42.5, resp.Received.UltrasonicCM)

	count, err := env.readings.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIngestEndpointRejectsBadPayloads(t *testing.T) {
	env := newTestEnv(t, "")

	for _, body := range []string{`not json`, `{"level_percent":101}`, `[1,2]`} {
		rec := env.do(http.MethodPost, "/data", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)

		var resp ErrorResponse
		decode(t, rec, &resp)
		assert.False(t, resp.OK)
		assert.NotEmpty(t, resp.Error)
	}

	count, err := env.readings.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngestEndpointTriggersAlertOnce(t *testing.T) {
	env := newTestEnv(t, "")

	for range 3 {
		rec := env.do(http.MethodPost, "/data", `{"device_id":"river-1","final_level_percent":91}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Len(t, env.notifier.sent, 1)

	rec := env.do(http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		OK     bool                `json:"ok"`
		Alerts []models.AlertEvent `json:"alerts"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, 91, resp.Alerts[0].LevelPercent)
}

func TestLogsEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	for _, body := range []string{
		`{"device_id":"a","level_percent":10}`,
		`{"device_id":"b","level_percent":20}`,
		`{"device_id":"a","level_percent":30}`,
	} {
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/data", body).Code)
	}

	rec := env.do(http.MethodGet, "/api/logs?device_id=a&limit=5&hours=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []models.Reading
	decode(t, rec, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, 30, rows[0].LevelPercent)
	assert.Equal(t, 10, rows[1].LevelPercent)
}

func TestLogsEndpointEmptyIsArray(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodGet, "/api/logs", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestLogsEndpointIgnoresUnusableHours(t *testing.T) {
	env := newTestEnv(t, "")
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/data", `{"level_percent":10}`).Code)

	for _, hours := range []string{"NaN", "Inf", "-Inf", "1e300", "-1", "soon"} {
		rec := env.do(http.MethodGet, "/api/logs?hours="+hours, "")
		require.Equal(t, http.StatusOK, rec.Code, hours)

		var rows []models.Reading
		decode(t, rec, &rows)
		assert.Len(t, rows, 1, hours)
	}
}

func TestStatsEndpointFallsBackToDefaultWindow(t *testing.T) {
	env := newTestEnv(t, "")
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/data", `{"level_percent":60}`).Code)

	for _, hours := range []string{"NaN", "-3", "Inf"} {
		rec := env.do(http.MethodGet, "/api/stats?hours="+hours, "")
		require.Equal(t, http.StatusOK, rec.Code, hours)

		var resp models.StatsResponse
		decode(t, rec, &resp)
		require.NotNil(t, resp.Stats, hours)
		assert.Equal(t, 1, resp.Stats.Count, hours)
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"count":0,"data":{}}`, rec.Body.String())

	for _, level := range []string{"70", "80", "90"} {
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/data", `{"level_percent":`+level+`}`).Code)
	}

	rec = env.do(http.MethodGet, "/api/stats?hours=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.StatsResponse
	decode(t, rec, &resp)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 3, resp.Stats.Count)
	assert.Equal(t, 90, resp.Stats.Current)
	assert.Equal(t, 80.0, resp.Stats.Mean)
	assert.Equal(t, 90, resp.Stats.Max)
	assert.Equal(t, 70, resp.Stats.Min)
	assert.InDelta(t, 10.0, resp.Stats.Std, 1e-9)
}

func TestAlertTestEndpointOpen(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodGet, "/api/alert_test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"alert_sent":true}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/alert_test?level=99", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"alert_sent":false}`, rec.Body.String())

	require.Len(t, env.notifier.sent, 1)
	assert.Contains(t, env.notifier.sent[0], testDeviceID)
}

func TestAlertTestEndpointBelowThreshold(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodGet, "/api/alert_test?level=10", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"alert_sent":false}`, rec.Body.String())
	assert.Empty(t, env.notifier.sent)
}

func TestAlertTestEndpointRequiresToken(t *testing.T) {
	const secret = "operator-secret"
	env := newTestEnv(t, secret)

	rec := env.do(http.MethodGet, "/api/alert_test", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/api/alert_test", "", "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := middleware.IssueOperatorToken(secret, "ops", time.Minute)
	require.NoError(t, err)

	rec = env.do(http.MethodGet, "/api/alert_test", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.notifier.sent, 1)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, "")
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/data", `{"level_percent":5}`).Code)

	rec := env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.HealthResponse
	decode(t, rec, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.Services.Database)
	assert.Nil(t, resp.Services.MQTT)
	assert.Equal(t, int64(1), resp.Readings)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/ready", "").Code)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodGet, "/data", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReportEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	for _, body := range []string{`{"level_percent":40}`, `{"level_percent":90}`} {
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/data", body).Code)
	}

	rec := env.do(http.MethodGet, "/api/report?hours=6", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "flood-report-")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}
