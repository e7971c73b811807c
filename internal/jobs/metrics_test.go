package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestTrackerRecordsSuccessAndFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	if err := metrics.Track("payments:refresh_status").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := metrics.Track("payments:refresh_status").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := metricValue(t, families, "nummix_jobs_total", map[string]string{"job": "payments:refresh_status", "status": "success"}); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := metricValue(t, families, "nummix_jobs_failures_total", map[string]string{"job": "payments:refresh_status"}); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestCountersIgnoreNonPositive(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	metrics.AddImbalances(0)
	metrics.AddImbalances(2)
	metrics.AddOverdue(-1)
	metrics.AddOverdue(3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := metricValue(t, families, "nummix_ledger_imbalances_total", nil); got != 2 {
		t.Fatalf("expected 2 imbalances, got %v", got)
	}
	if got := metricValue(t, families, "nummix_payments_overdue_total", nil); got != 3 {
		t.Fatalf("expected 3 overdue, got %v", got)
	}
}

func TestNilMetricsTrackerIsNoop(t *testing.T) {
	var metrics *Metrics
	if err := metrics.Track("x").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	metrics.AddImbalances(1)
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) && fam.GetType() == dto.MetricType_COUNTER {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for key, want := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = lp.GetValue() == want
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
