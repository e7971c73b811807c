package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nummix/backoffice/internal/accounting"
	jobmetrics "github.com/nummix/backoffice/internal/jobs"
	"github.com/nummix/backoffice/internal/payments"
)

type stubChecker struct {
	report accounting.IntegrityReport
	err    error
}

func (s stubChecker) CheckIntegrity(context.Context) (accounting.IntegrityReport, error) {
	return s.report, s.err
}

type stubRefresher struct {
	result payments.RefreshResult
	err    error
}

func (s stubRefresher) RefreshStatuses(context.Context) (payments.RefreshResult, error) {
	return s.result, s.err
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestTaskConstructors(t *testing.T) {
	at := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)
	task, err := NewLedgerIntegrityTask(at)
	require.NoError(t, err)
	assert.Equal(t, TaskLedgerIntegrity, task.Type())
	payload, err := decodeScheduled(task)
	require.NoError(t, err)
	assert.True(t, payload.ScheduledFor.Equal(at))

	task, err = NewPaymentsRefreshTask(at)
	require.NoError(t, err)
	assert.Equal(t, TaskPaymentsRefreshStatus, task.Type())

	_, err = decodeScheduled(asynq.NewTask(TaskLedgerIntegrity, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLedgerIntegrityJobCountsFindings(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	report := accounting.IntegrityReport{
		Owners:       2,
		Transactions: 5,
		Findings: []accounting.IntegrityFinding{
			{Owner: uuid.New(), TransactionID: uuid.New(), Reason: "accounting: entries must balance"},
			{Owner: uuid.New(), TransactionID: uuid.New(), Reason: "accounting: unknown account"},
		},
	}
	job := NewLedgerIntegrityJob(stubChecker{report: report}, nil, metrics)
	task, err := NewLedgerIntegrityTask(time.Now())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	count, err := counterTotal(reg, "nummix_ledger_imbalances_total")
	require.NoError(t, err)
	assert.Equal(t, float64(2), count)
}

func TestLedgerIntegrityJobPropagatesFailure(t *testing.T) {
	boom := errors.New("db down")
	job := NewLedgerIntegrityJob(stubChecker{err: boom}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, nil))
	assert.ErrorIs(t, err, boom)

	var unset *LedgerIntegrityJob
	assert.Error(t, unset.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, nil)))
}

func TestPaymentsRefreshJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := NewPaymentsRefreshJob(stubRefresher{result: payments.RefreshResult{Scanned: 4, Changed: 2, Overdue: 1}}, nil, metrics)
	task, err := NewPaymentsRefreshTask(time.Now())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	boom := errors.New("boom")
	job = NewPaymentsRefreshJob(stubRefresher{err: boom}, nil, metrics)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)

	count, err := counterTotal(reg, "nummix_jobs_failures_total")
	require.NoError(t, err)
	assert.Equal(t, float64(1), count)
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	assert.Error(t, err)
}

func TestHealthHandler(t *testing.T) {
	serve := func(h *Handler) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		h.MountRoutes(r)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rr
	}

	rr := serve(NewHandler(nil, nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, QueueDefault, body.Queue)

	rr = serve(NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1}}, nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Pending)
	assert.Equal(t, 1, body.Retry)

	rr = serve(NewHandler(stubInspector{err: errors.New("redis gone")}, nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

type stubEnqueuer struct {
	calls []string
	err   error
}

func (s *stubEnqueuer) EnqueueLedgerIntegrity(context.Context) (*asynq.TaskInfo, error) {
	return s.enqueue(TaskLedgerIntegrity)
}

func (s *stubEnqueuer) EnqueuePaymentsRefresh(context.Context) (*asynq.TaskInfo, error) {
	return s.enqueue(TaskPaymentsRefreshStatus)
}

func (s *stubEnqueuer) enqueue(typ string) (*asynq.TaskInfo, error) {
	s.calls = append(s.calls, typ)
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault, Type: typ}, nil
}

func TestTriggerRoutes(t *testing.T) {
	enq := &stubEnqueuer{}
	r := chi.NewRouter()
	NewHandler(nil, enq, nil).MountTriggerRoutes(r)

	for path, typ := range map[string]string{
		"/jobs/ledger-integrity": TaskLedgerIntegrity,
		"/jobs/payments-refresh": TaskPaymentsRefreshStatus,
	} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
		require.Equal(t, http.StatusAccepted, rr.Code, path)
		var body enqueued
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, typ, body.Type)
		assert.Equal(t, QueueDefault, body.Queue)
	}
	assert.ElementsMatch(t, []string{TaskLedgerIntegrity, TaskPaymentsRefreshStatus}, enq.calls)

	failing := chi.NewRouter()
	NewHandler(nil, &stubEnqueuer{err: errors.New("redis gone")}, nil).MountTriggerRoutes(failing)
	rr := httptest.NewRecorder()
	failing.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/ledger-integrity", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestTriggerRoutesDisabledWithoutEnqueuer(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil, nil).MountTriggerRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/ledger-integrity", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestClientEnqueuesOnDefaultQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	integrity, err := client.EnqueueLedgerIntegrity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TaskLedgerIntegrity, integrity.Type)
	assert.Equal(t, 3, integrity.MaxRetry)

	refresh, err := client.EnqueuePaymentsRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TaskPaymentsRefreshStatus, refresh.Type)

	pending, err := mr.List("asynq:{" + QueueDefault + "}:pending")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{integrity.ID, refresh.ID}, pending)
}

func counterTotal(reg *prometheus.Registry, name string) (float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total, nil
}
