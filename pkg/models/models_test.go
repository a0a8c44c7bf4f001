package models

import (
	"testing"
	"time"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("upcoming shows")
	b := Fingerprint("upcoming shows")
	if a != b {
		t.Errorf("same text produced different fingerprints: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(a))
	}
	if Fingerprint("upcoming shows ") == a {
		t.Error("different text should produce a different fingerprint")
	}
}

func TestSource_Locked(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stale := 10 * time.Minute

	tests := []struct {
		name    string
		started *time.Time
		want    bool
	}{
		{"no lock", nil, false},
		{"fresh lock", timePtr(now.Add(-2 * time.Minute)), true},
		{"stale lock", timePtr(now.Add(-15 * time.Minute)), false},
		{"exactly at threshold", timePtr(now.Add(-10 * time.Minute)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Source{ScrapingStartedAt: tt.started}
			if got := s.Locked(now, stale); got != tt.want {
				t.Errorf("Locked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSource_DueAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	never := Source{ScrapeIntervalHours: 6}
	if !never.DueAt(now) {
		t.Error("source never scraped should be due")
	}

	recent := Source{ScrapeIntervalHours: 6, LastScrapedAt: timePtr(now.Add(-1 * time.Hour))}
	if recent.DueAt(now) {
		t.Error("source scraped 1h ago with 6h interval should not be due")
	}

	overdue := Source{ScrapeIntervalHours: 6, LastScrapedAt: timePtr(now.Add(-7 * time.Hour))}
	if !overdue.DueAt(now) {
		t.Error("source scraped 7h ago with 6h interval should be due")
	}

	// Zero interval falls back to daily.
	zero := Source{LastScrapedAt: timePtr(now.Add(-2 * time.Hour))}
	if zero.DueAt(now) {
		t.Error("zero interval should default to 24h")
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
