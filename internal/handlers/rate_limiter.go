package handlers

import (
	"strings"
	"sync"
	"time"
)

// authThrottle limits authentication attempts per key (normally the email,
// falling back to the remote address) over a sliding window. It exists to
// slow credential stuffing against the merged register-or-login endpoint.
type authThrottle struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newAuthThrottle(limit int, window time.Duration, clock func() time.Time) *authThrottle {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &authThrottle{
		limit:    limit,
		window:   window,
		clock:    clock,
		attempts: make(map[string][]time.Time),
	}
}

// Allow records an attempt for key and reports whether it stays within the
// limit. A nil throttle allows everything.
func (t *authThrottle) Allow(key string) bool {
	if t == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := t.clock()
	horizon := now.Add(-t.window)

	t.mu.Lock()
	defer t.mu.Unlock()

	recent := trimBefore(t.attempts[key], horizon)
	if len(recent) >= t.limit {
		t.attempts[key] = recent
		return false
	}
	t.attempts[key] = append(recent, now)

	if len(t.attempts) > 2*t.limit {
		t.dropStaleLocked(horizon)
	}
	return true
}

func trimBefore(stamps []time.Time, horizon time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(horizon) {
		idx++
	}
	return stamps[idx:]
}

func (t *authThrottle) dropStaleLocked(horizon time.Time) {
	for key, stamps := range t.attempts {
		if len(trimBefore(stamps, horizon)) == 0 {
			delete(t.attempts, key)
		}
	}
}
