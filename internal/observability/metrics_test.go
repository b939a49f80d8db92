package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRegenCollectorRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRegenCollector(reg)
	if err != nil {
		t.Fatalf("NewRegenCollector: %v", err)
	}

	collector.ObserveOutcome("done")
	collector.ObserveOutcome("done")
	collector.ObserveOutcome("unrecoverable")

	if got := testutil.ToFloat64(collector.RegenAttempts.WithLabelValues("done")); got != 2 {
		t.Fatalf("regen_attempts_total{outcome=done} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.RegenAttempts.WithLabelValues("unrecoverable")); got != 1 {
		t.Fatalf("regen_attempts_total{outcome=unrecoverable} = %v, want 1", got)
	}
}

func TestMetricsHandlerExposesRegenGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRegenCollector(reg)
	if err != nil {
		t.Fatalf("NewRegenCollector: %v", err)
	}
	collector.MembershipLinks.Set(7)
	collector.SubnetworkCount.Set(3)
	collector.RegenDegradations.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"regen_membership_links",
		"regen_subnetwork_count",
		"regen_degradations_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestRoutingCollectorRecordsLinkUtilization(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRoutingCollector(reg)
	if err != nil {
		t.Fatalf("NewRoutingCollector: %v", err)
	}

	collector.SetLinkUtilization(0, 0.5)
	collector.SetMaxLinkUtilization(0.5)
	collector.SetHyperPeriod(1_000_000)
	collector.IncFramesRouted()

	if got := testutil.ToFloat64(collector.LinkUtilization.WithLabelValues("0")); got != 0.5 {
		t.Fatalf("routing_link_utilization_ratio{link=0} = %v, want 0.5", got)
	}
	if got := testutil.ToFloat64(collector.FramesRouted); got != 1 {
		t.Fatalf("routing_frames_routed_total = %v, want 1", got)
	}

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if !containsMetric(metrics, "routing_hyper_period_nanoseconds") {
		t.Fatalf("expected routing_hyper_period_nanoseconds to be registered")
	}
}

func containsMetric(metrics []*dto.MetricFamily, name string) bool {
	for _, mf := range metrics {
		if mf.GetName() == name {
			return true
		}
	}
	return false
}
