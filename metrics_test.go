package authcore

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricRefreshRevoked)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("MetricLoginSuccess = %d, want 2", got)
	}
	if got := m.Value(MetricRefreshRevoked); got != 1 {
		t.Fatalf("MetricRefreshRevoked = %d, want 1", got)
	}
	if got := m.Value(MetricLogout); got != 0 {
		t.Fatalf("MetricLogout = %d, want 0", got)
	}
}

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("disabled metrics recorded a count: %d", got)
	}

	snapshot := m.Snapshot()
	if len(snapshot.Counters) != 0 || len(snapshot.Histograms) != 0 {
		t.Fatalf("disabled snapshot must be empty, got %+v", snapshot)
	}
}

func TestMetricsIgnoresOutOfRangeIDs(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricID(10000))
	if got := m.Value(MetricID(10000)); got != 0 {
		t.Fatalf("out-of-range id recorded a count: %d", got)
	}
}

func TestMetricsSnapshotIsDeepCopy(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)

	snapshot := m.Snapshot()
	snapshot.Counters[MetricLoginSuccess] = 999
	snapshot.Histograms[MetricValidateLatency][0] = 999

	if got := m.Value(MetricLoginSuccess); got != 1 {
		t.Fatalf("snapshot mutation leaked into live counters: %d", got)
	}

	fresh := m.Snapshot()
	if fresh.Histograms[MetricValidateLatency][0] == 999 {
		t.Fatal("snapshot mutation leaked into live histogram")
	}
}

func TestMetricsObserveBucketBoundaries(t *testing.T) {
	cases := []struct {
		d      time.Duration
		bucket int
	}{
		{d: 0, bucket: 0},
		{d: 5 * time.Millisecond, bucket: 0},
		{d: 6 * time.Millisecond, bucket: 1},
		{d: 10 * time.Millisecond, bucket: 1},
		{d: 25 * time.Millisecond, bucket: 2},
		{d: 50 * time.Millisecond, bucket: 3},
		{d: 100 * time.Millisecond, bucket: 4},
		{d: 250 * time.Millisecond, bucket: 5},
		{d: 500 * time.Millisecond, bucket: 6},
		{d: time.Second, bucket: 7},
	}

	for _, tc := range cases {
		if got := bucketIndex(tc.d); got != tc.bucket {
			t.Fatalf("bucketIndex(%v) = %d, want %d", tc.d, got, tc.bucket)
		}
	}
}

func TestMetricsObserveRequiresLatencyEnabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: false})
	m.Observe(MetricValidateLatency, time.Millisecond)

	snapshot := m.Snapshot()
	if len(snapshot.Histograms) != 0 {
		t.Fatalf("expected no histogram data, got %+v", snapshot.Histograms)
	}
}

func TestMetricsObserveOnlyAcceptsLatencyID(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snapshot := m.Snapshot()
	for _, b := range snapshot.Histograms[MetricValidateLatency] {
		if b != 0 {
			t.Fatal("observation landed in the latency histogram")
		}
	}
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("observation mutated a counter: %d", got)
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricValidateSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricValidateSuccess); got != workers*perWorker {
		t.Fatalf("MetricValidateSuccess = %d, want %d", got, workers*perWorker)
	}
}
