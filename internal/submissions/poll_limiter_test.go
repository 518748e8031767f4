package submissions

import (
	"testing"
	"time"
)

func TestPollLimiterWindow(t *testing.T) {
	current := time.Unix(1700000000, 0)
	limiter := newPollLimiter(time.Second, func() time.Time { return current })

	if !limiter.Allow("user-1", "job-1") {
		t.Fatalf("first poll should pass")
	}
	if limiter.Allow("user-1", "job-1") {
		t.Fatalf("second poll inside the window should be limited")
	}

	current = current.Add(500 * time.Millisecond)
	if limiter.Allow("user-1", "job-1") {
		t.Fatalf("poll at 500ms should still be limited")
	}

	current = current.Add(600 * time.Millisecond)
	if !limiter.Allow("user-1", "job-1") {
		t.Fatalf("poll after the window should pass")
	}
}

func TestPollLimiterIsPerUserAndJob(t *testing.T) {
	current := time.Unix(1700000000, 0)
	limiter := newPollLimiter(time.Second, func() time.Time { return current })

	if !limiter.Allow("user-1", "job-1") {
		t.Fatalf("first poll should pass")
	}
	if !limiter.Allow("user-2", "job-1") {
		t.Fatalf("another user polling the same job should pass")
	}
	if !limiter.Allow("user-1", "job-2") {
		t.Fatalf("the same user polling another job should pass")
	}
}

func TestPollLimiterSweepsStaleEntries(t *testing.T) {
	current := time.Unix(1700000000, 0)
	limiter := newPollLimiter(time.Second, func() time.Time { return current })

	for i := 0; i < 5; i++ {
		if !limiter.Allow("user-1", string(rune('a'+i))) {
			t.Fatalf("poll %d should pass", i)
		}
	}
	if got := len(limiter.lastHit); got != 5 {
		t.Fatalf("expected 5 tracked entries, got %d", got)
	}

	// The next poll past the sweep interval drops everything stale.
	current = current.Add(pollSweepInterval)
	if !limiter.Allow("user-1", "job-new") {
		t.Fatalf("poll after sweep interval should pass")
	}
	if got := len(limiter.lastHit); got != 1 {
		t.Fatalf("expected only the fresh entry after sweep, got %d", got)
	}
	if _, ok := limiter.lastHit["user-1|job-new"]; !ok {
		t.Fatalf("fresh entry should survive the sweep")
	}
}

func TestPollLimiterRetryAfter(t *testing.T) {
	limiter := newPollLimiter(2*time.Second, nil)
	if got := limiter.RetryAfterSeconds(); got != 2 {
		t.Fatalf("expected 2 seconds, got %d", got)
	}
}
