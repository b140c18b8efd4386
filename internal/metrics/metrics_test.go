package metrics

import (
	"context"
	"testing"
	"time"
	"yardops/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.Observe(context.Background(), "collect_container", true, 5*time.Millisecond)
	r.Observe(context.Background(), "collect_container", false, time.Millisecond)
	r.Observe(context.Background(), "collect_container", false, time.Millisecond)

	if got := testutil.ToFloat64(r.operations.WithLabelValues("collect_container", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(r.errors.WithLabelValues("collect_container")); got != 2 {
		t.Fatalf("expected 2 errors, got %v", got)
	}
	if n := testutil.CollectAndCount(r.duration); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
}

func TestCacheAndPublishMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.CacheApplied(domain.KindContainer, 3)
	r.CacheApplied(domain.KindContainer, 2)
	r.PublishFailed()

	if got := testutil.ToFloat64(r.cacheRecords.WithLabelValues("containers")); got != 2 {
		t.Fatalf("expected gauge 2, got %v", got)
	}
	if got := testutil.ToFloat64(r.snapshots.WithLabelValues("containers")); got != 2 {
		t.Fatalf("expected 2 snapshots, got %v", got)
	}
	if got := testutil.ToFloat64(r.publishFails); got != 1 {
		t.Fatalf("expected 1 publish failure, got %v", got)
	}
}
