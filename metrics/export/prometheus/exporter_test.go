package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goAccount "github.com/MrEthical07/goAccount"
)

type fakeSource struct {
	snapshot goAccount.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goAccount.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goAccount.MetricsSnapshot{
			Counters:   map[goAccount.MetricID]uint64{},
			Histograms: map[goAccount.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output, got:\n%s", got)
	}
}

func TestRenderCountersAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goAccount.MetricsSnapshot{
			Counters: map[goAccount.MetricID]uint64{
				goAccount.MetricSigninSuccess: 7,
				goAccount.MetricVerifyReplay:  1,
			},
			Histograms: map[goAccount.MetricID][]uint64{
				goAccount.MetricSigninLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"goaccount_signin_success_total 7",
		"goaccount_verify_replay_total 1",
		"goaccount_signup_requested_total 0",
		`goaccount_signin_latency_seconds_bucket{le="0.005"} 1`,
		`goaccount_signin_latency_seconds_bucket{le="+Inf"} 36`,
		"goaccount_signin_latency_seconds_count 36",
		"goaccount_audit_dropped_total 2",
		"# TYPE goaccount_signin_latency_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestRenderSkipsHistogramWhenLatencyDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goAccount.MetricsSnapshot{
			Counters:   map[goAccount.MetricID]uint64{goAccount.MetricSignout: 3},
			Histograms: map[goAccount.MetricID][]uint64{},
		},
	})

	out := exp.Render()
	if strings.Contains(out, "goaccount_signin_latency_seconds") {
		t.Fatalf("histogram must be absent, got:\n%s", out)
	}
	if !strings.Contains(out, "goaccount_signout_total 3") {
		t.Fatalf("missing signout counter:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goAccount.MetricsSnapshot{
			Counters:   map[goAccount.MetricID]uint64{goAccount.MetricSigninSuccess: 1},
			Histograms: map[goAccount.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected text/plain, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestNilExporterRendersNothing(t *testing.T) {
	var exp *Exporter
	if exp.Render() != "" {
		t.Fatal("nil exporter must render nothing")
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goAccount.MetricsSnapshot{
			Counters: map[goAccount.MetricID]uint64{
				goAccount.MetricSignupRequested: 1000,
				goAccount.MetricVerifySuccess:   900,
				goAccount.MetricSigninSuccess:   800,
				goAccount.MetricSigninFailure:   40,
			},
			Histograms: map[goAccount.MetricID][]uint64{
				goAccount.MetricSigninLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	for b.Loop() {
		_ = exp.Render()
	}
}
