package submissions

import (
	"sync"
	"time"
)

const (
	pollLimitWindow   = 1 * time.Second
	pollSweepInterval = 1 * time.Minute
)

// pollLimiter throttles status polls per user and job. Clients poll through
// the whole analysis window, so one poll per second per job is plenty. Stale
// entries are swept on the fly so the map stays bounded by recent pollers.
type pollLimiter struct {
	mu        sync.Mutex
	lastHit   map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
	window    time.Duration
}

func newPollLimiter(window time.Duration, now func() time.Time) *pollLimiter {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = pollLimitWindow
	}
	return &pollLimiter{
		lastHit:   make(map[string]time.Time),
		lastSweep: now(),
		now:       now,
		window:    window,
	}
}

func (l *pollLimiter) Allow(userID, jobID string) bool {
	if l == nil {
		return true
	}
	key := userID + "|" + jobID
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)
	if last, ok := l.lastHit[key]; ok {
		if now.Sub(last) < l.window {
			return false
		}
	}
	l.lastHit[key] = now
	return true
}

// sweepLocked drops entries already outside the window. Callers hold l.mu.
func (l *pollLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < pollSweepInterval {
		return
	}
	for key, hit := range l.lastHit {
		if now.Sub(hit) >= l.window {
			delete(l.lastHit, key)
		}
	}
	l.lastSweep = now
}

func (l *pollLimiter) RetryAfterSeconds() int {
	if l == nil {
		return int(pollLimitWindow.Seconds())
	}
	return int(l.window.Seconds())
}
