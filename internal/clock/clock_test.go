package clock

import (
	"testing"
	"time"
)

func TestSystemClockIsUTC(t *testing.T) {
	now := System().Now()
	if now.Location() != time.UTC {
		t.Fatalf("expected UTC, got %s", now.Location())
	}
	if time.Since(now) > time.Minute {
		t.Fatalf("system clock drifted: %s", now)
	}
}

func TestManualClock(t *testing.T) {
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	c := NewManual(start)
	if !c.Now().Equal(start) {
		t.Fatalf("expected %s, got %s", start, c.Now())
	}

	got := c.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !got.Equal(want) || !c.Now().Equal(want) {
		t.Fatalf("expected advance to %s, got %s", want, got)
	}

	later := start.AddDate(0, 0, 2)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Fatalf("expected set to %s, got %s", later, c.Now())
	}
}
