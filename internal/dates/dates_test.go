package dates

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // empty means nil expected
	}{
		{"rfc3339", "2026-04-18T19:30:00Z", "2026-04-18"},
		{"rfc3339 with offset", "2026-04-18T19:30:00+02:00", "2026-04-18"},
		{"bare date", "2026-04-18", "2026-04-18"},
		{"no timezone timestamp", "2026-04-18T19:30:00", "2026-04-18"},
		{"long month", "April 18, 2026", "2026-04-18"},
		{"short month", "Apr 18, 2026", "2026-04-18"},
		{"slashes", "04/18/2026", "2026-04-18"},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"garbage", "next friday probably", ""},
		{"invalid calendar date", "2099-13-40", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if tt.want == "" {
				if got != nil {
					t.Errorf("Parse(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Parse(%q) = nil, want %s", tt.input, tt.want)
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.input, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestParse_BareDateIsLocalMidnight(t *testing.T) {
	got := Parse("2026-04-18")
	if got == nil {
		t.Fatal("expected a parse result")
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("bare date should anchor to midnight, got %v", got)
	}
	if got.Location() != time.Local {
		t.Errorf("bare date should be local, got %v", got.Location())
	}
}

func TestValidStart(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"2026-04-18", true},
		{"2026-04-18T19:30:00Z", true},
		{"2099-13-40", false},
		{"2099-13-40T00:00:00Z", false},
		{"tomorrow", false},
		{"", false},
		{"2026-4-8", false},
	}

	for _, tt := range tests {
		if got := ValidStart(tt.input); got != tt.want {
			t.Errorf("ValidStart(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
