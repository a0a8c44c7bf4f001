package pipeline

import "testing"

func TestShouldExtract(t *testing.T) {
	abc := "abc"
	empty := ""

	tests := []struct {
		name   string
		new    string
		stored *string
		force  bool
		want   bool
	}{
		{"first scrape", "abc", nil, false, true},
		{"empty stored hash", "abc", &empty, false, true},
		{"unchanged", "abc", &abc, false, false},
		{"changed", "def", &abc, false, true},
		{"unchanged but forced", "abc", &abc, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldExtract(tt.new, tt.stored, tt.force); got != tt.want {
				t.Errorf("ShouldExtract(%q, %v, %v) = %v, want %v", tt.new, tt.stored, tt.force, got, tt.want)
			}
		})
	}
}
