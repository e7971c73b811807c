package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nummix/backoffice/internal/accounting/reports"
	"github.com/nummix/backoffice/internal/auth"
	"github.com/nummix/backoffice/internal/budget"
	"github.com/nummix/backoffice/internal/observability"
	"github.com/nummix/backoffice/internal/payments"
	"github.com/nummix/backoffice/internal/payroll"
	"github.com/nummix/backoffice/internal/shared"
	"github.com/nummix/backoffice/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 6, cfg.MonthlyTrendWindow)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.Empty(t, cfg.AMQPURL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("MONTHLY_TREND_WINDOW", "0")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", AppEnv: "production"}, &buf).Info("hello")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "production", line["env"])

	buf.Reset()
	newLogger(&Config{LogFormat: "pretty", AppEnv: "production"}, &buf).Debug("hidden")
	assert.Empty(t, buf.String())
}

type stubDashboard struct {
	stats reports.DashboardStats
	err   error
}

func (s stubDashboard) Dashboard(context.Context, uuid.UUID) (reports.DashboardStats, error) {
	return s.stats, s.err
}

type stubBudgets struct{ report budget.UsageReport }

func (s stubBudgets) Report(context.Context, uuid.UUID, budget.Filter) (budget.UsageReport, error) {
	return s.report, nil
}

type stubSchedule struct{ schedule payments.Schedule }

func (s stubSchedule) Schedule(context.Context, uuid.UUID) (payments.Schedule, error) {
	return s.schedule, nil
}

func TestOverviewLoad(t *testing.T) {
	stats := reports.DashboardStats{TotalIncome: decimal.NewFromInt(100), TotalExpense: decimal.NewFromInt(40), NetIncome: decimal.NewFromInt(60)}
	h := NewOverviewHandler(nil, stubDashboard{stats: stats}, stubBudgets{report: budget.UsageReport{UsageRate: "0%"}}, stubSchedule{})
	out, err := h.Load(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, out.Dashboard.NetIncome.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "0%", out.Budgets.UsageRate)

	boom := errors.New("boom")
	h = NewOverviewHandler(nil, stubDashboard{err: boom}, stubBudgets{}, stubSchedule{})
	_, err = h.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, boom)
}

func TestRouterRequiresAuthentication(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionStore(client, time.Hour)
	authHandler := auth.NewHandler(nil, auth.NewService(nil, sessions))
	overview := NewOverviewHandler(nil, stubDashboard{}, stubBudgets{}, stubSchedule{})

	router := NewRouter(RouterParams{
		Config:          &Config{RateLimitPerMinute: 1000},
		Metrics:         observability.NewMetrics(),
		AuthHandler:     authHandler,
		PayrollHandler:  payroll.NewHandler(nil),
		OverviewHandler: overview,
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/overview", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := sessions.Create(context.Background(), uuid.New())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/overview", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "nummix_http_requests_total")
}

func TestRefreshTestModeTracksEnvironment(t *testing.T) {
	t.Cleanup(RefreshTestMode)
	t.Setenv("NUMMIX_TEST_MODE", "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv("NUMMIX_TEST_MODE", "0")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

type stubEnqueuer struct{}

func (stubEnqueuer) EnqueueLedgerIntegrity(context.Context) (*asynq.TaskInfo, error) {
	return &asynq.TaskInfo{ID: "t1", Queue: jobs.QueueDefault, Type: jobs.TaskLedgerIntegrity}, nil
}

func (stubEnqueuer) EnqueuePaymentsRefresh(context.Context) (*asynq.TaskInfo, error) {
	return &asynq.TaskInfo{ID: "t2", Queue: jobs.QueueDefault, Type: jobs.TaskPaymentsRefreshStatus}, nil
}

func TestRouterJobTriggersRequireAuthentication(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionStore(client, time.Hour)

	router := NewRouter(RouterParams{
		Config:      &Config{RateLimitPerMinute: 1000},
		AuthHandler: auth.NewHandler(nil, auth.NewService(nil, sessions)),
		JobHandler:  jobs.NewHandler(nil, stubEnqueuer{}, nil),
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/payments-refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := sessions.Create(context.Background(), uuid.New())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/jobs/payments-refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), jobs.TaskPaymentsRefreshStatus)
}
