package httpapi

import (
	"testing"
	"time"
)

func TestLoginLimiterBurstThenRefill(t *testing.T) {
	l := newLoginLimiter()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		if !l.Allow("ip:1.2.3.4", now) {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("ip:1.2.3.4", now) {
		t.Fatalf("11th attempt should be limited")
	}
	if !l.Allow("ip:5.6.7.8", now) {
		t.Fatalf("other keys are independent")
	}
	if !l.Allow("ip:1.2.3.4", now.Add(31*time.Second)) {
		t.Fatalf("a token should refill after 30s")
	}
}

func TestLoginLimiterDropsIdleEntries(t *testing.T) {
	l := newLoginLimiter()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.Allow("a", now)
	l.Allow("b", now.Add(11*time.Minute))
	if _, ok := l.entries["a"]; ok {
		t.Fatalf("idle entry should be dropped")
	}
}

func TestLoginLimiterSweepsOnInterval(t *testing.T) {
	l := newLoginLimiter()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.Allow("a", now)
	l.Allow("b", now.Add(5*time.Minute))

	// "a" is idle past the window but no sweep is due yet.
	l.Allow("c", now.Add(9*time.Minute))
	l.entries["a"].seen = now.Add(-time.Hour)
	l.Allow("c", now.Add(9*time.Minute+time.Second))
	if _, ok := l.entries["a"]; !ok {
		t.Fatalf("entries should only be swept once the interval has passed")
	}

	l.Allow("c", now.Add(10*time.Minute))
	if _, ok := l.entries["a"]; ok {
		t.Fatalf("idle entry should be dropped by the scheduled sweep")
	}
	if _, ok := l.entries["b"]; !ok {
		t.Fatalf("recent entry should survive the sweep")
	}
	if !l.nextSweep.Equal(now.Add(20 * time.Minute)) {
		t.Fatalf("unexpected next sweep: %v", l.nextSweep)
	}
}
