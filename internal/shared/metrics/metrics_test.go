package metrics

import (
	"strings"
	"testing"
)

func TestRenderIncludesCounters(t *testing.T) {
	IncSubmissionStarted()
	IncAnalyzerCall()
	ObserveAnalyzerDurationMs(750)

	out := Render()
	for _, name := range []string{
		"submission_started_total",
		"submission_completed_total",
		"submission_failed_total",
		"analyzer_call_total",
		"analyzer_call_failed_total",
		"submission_duration_ms_bucket",
		"analyzer_duration_ms_count",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %q in output:\n%s", name, out)
		}
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100, 1000})
	h.Observe(5)
	h.Observe(50)
	h.Observe(50)
	h.Observe(5000)

	snap := h.Snapshot()
	if snap.count != 4 {
		t.Fatalf("expected count 4, got %d", snap.count)
	}

	var cumulative uint64
	expected := []uint64{1, 3, 3}
	for i := range snap.buckets {
		cumulative += snap.counts[i]
		if cumulative != expected[i] {
			t.Fatalf("bucket %d: expected cumulative %d, got %d", i, expected[i], cumulative)
		}
	}
	if snap.sum != 5105 {
		t.Fatalf("expected sum 5105, got %v", snap.sum)
	}
}
