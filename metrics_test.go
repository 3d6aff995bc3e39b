package goBarber

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricSignInSuccess)

	if got := m.Value(MetricSignInSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricSignInSuccess)
	m.Inc(MetricSignInSuccess)
	m.Inc(MetricSignInSuccess)

	if got := m.Value(MetricSignInSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricSignOut)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricSignOut); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricSignInLatency, d)
	}
	// Counters have no histogram.
	m.Observe(MetricSignOut, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricSignInLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Histograms[MetricSignOut]; ok {
		t.Fatal("unexpected histogram for a counter")
	}
}

func TestMetricsSnapshotDisabledIsEmpty(t *testing.T) {
	var m *Metrics
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
	m.Inc(MetricSignOut)
}

func TestStoreMetricsTrackLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bootstrap(t)
	env.signIn(t, "john@x.com")
	_ = env.store.SignIn(context.Background(), Credentials{Email: "john@x.com", Password: "bad"})
	_ = env.store.UpdateUser(context.Background(), User{ID: "someone-else"})
	if err := env.store.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	snap := env.store.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricBootstrapAnonymous: 1,
		MetricSignInSuccess:      1,
		MetricSignInFailure:      1,
		MetricUserUpdateRejected: 1,
		MetricSignOut:            1,
		MetricPersistenceFailure: 0,
	}
	for id, v := range want {
		if snap.Counters[id] != v {
			t.Fatalf("metric %d: expected %d, got %d", id, v, snap.Counters[id])
		}
	}
}
