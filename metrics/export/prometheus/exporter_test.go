package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authcore "github.com/shopapi/authcore"
	"github.com/shopapi/authcore/metrics/export/internaldefs"
)

type stubSource struct {
	snapshot authcore.MetricsSnapshot
	dropped  uint64
}

func (s *stubSource) MetricsSnapshot() authcore.MetricsSnapshot {
	return s.snapshot
}

func (s *stubSource) AuditDropped() uint64 {
	return s.dropped
}

func sampleSource() *stubSource {
	return &stubSource{
		snapshot: authcore.MetricsSnapshot{
			Counters: map[authcore.MetricID]uint64{
				authcore.MetricLoginSuccess:   3,
				authcore.MetricRefreshRevoked: 7,
			},
			Histograms: map[authcore.MetricID][]uint64{
				authcore.MetricValidateLatency: {4, 2, 0, 0, 0, 0, 0, 1},
			},
		},
		dropped: 5,
	}
}

func TestRenderCounters(t *testing.T) {
	exporter := NewPrometheusExporterFromSource(sampleSource())
	out := exporter.Render()

	for _, want := range []string{
		"# HELP authcore_login_success_total",
		"# TYPE authcore_login_success_total counter",
		"authcore_login_success_total 3",
		"authcore_refresh_revoked_total 7",
		"authcore_logout_total 0",
		"authcore_audit_dropped_total 5",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHistogramIsCumulative(t *testing.T) {
	exporter := NewPrometheusExporterFromSource(sampleSource())
	out := exporter.Render()

	for _, want := range []string{
		"# TYPE authcore_validate_latency_seconds histogram",
		`authcore_validate_latency_seconds_bucket{le="0.005"} 4`,
		`authcore_validate_latency_seconds_bucket{le="0.01"} 6`,
		`authcore_validate_latency_seconds_bucket{le="0.5"} 6`,
		`authcore_validate_latency_seconds_bucket{le="+Inf"} 7`,
		"authcore_validate_latency_seconds_count 7",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmptySourceIsEmpty(t *testing.T) {
	exporter := NewPrometheusExporterFromSource(&stubSource{
		snapshot: authcore.MetricsSnapshot{
			Counters:   map[authcore.MetricID]uint64{},
			Histograms: map[authcore.MetricID][]uint64{},
		},
	})

	if out := exporter.Render(); out != "" {
		t.Fatalf("expected empty output, got:\n%s", out)
	}
}

func TestRenderMissingHistogramDefaultsToZero(t *testing.T) {
	exporter := NewPrometheusExporterFromSource(&stubSource{
		snapshot: authcore.MetricsSnapshot{
			Counters:   map[authcore.MetricID]uint64{authcore.MetricLoginSuccess: 1},
			Histograms: map[authcore.MetricID][]uint64{},
		},
	})
	out := exporter.Render()

	if !strings.Contains(out, "authcore_validate_latency_seconds_count 0") {
		t.Fatalf("expected zeroed histogram:\n%s", out)
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	exporter := NewPrometheusExporterFromSource(sampleSource())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "authcore_login_success_total 3") {
		t.Fatalf("body missing counter:\n%s", rec.Body.String())
	}
}

func TestCumulativeBuckets(t *testing.T) {
	raw := [8]uint64{1, 2, 0, 0, 3, 0, 0, 1}
	got := internaldefs.CumulativeBuckets(raw)
	want := [8]uint64{1, 3, 3, 3, 6, 6, 6, 7}
	if got != want {
		t.Fatalf("CumulativeBuckets = %v, want %v", got, want)
	}
}

func TestCounterDefNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, def := range internaldefs.CounterDefs {
		if seen[def.Name] {
			t.Fatalf("duplicate counter name %q", def.Name)
		}
		seen[def.Name] = true
		if !strings.HasPrefix(def.Name, "authcore_") {
			t.Fatalf("counter %q missing namespace prefix", def.Name)
		}
		if !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q missing _total suffix", def.Name)
		}
	}
}
