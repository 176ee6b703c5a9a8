package feeds

import (
	"testing"
	"time"
)

func TestParseRelativeTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		label string
		want  time.Time
	}{
		{"3h ago", now.Add(-3 * time.Hour)},
		{"45 mins ago", now.Add(-45 * time.Minute)},
		{"2 days ago", now.Add(-48 * time.Hour)},
		{"Just now", now},
		{"yesterday", now.Add(-24 * time.Hour)},
		{"30 August 2026", time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		got := ParseRelativeTime(tc.label, now)
		if got == nil {
			t.Fatalf("%q: expected timestamp, got nil", tc.label)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%q: got %v, want %v", tc.label, got, tc.want)
		}
	}
}

func TestParseRelativeTimeUnrecognized(t *testing.T) {
	t.Parallel()

	for _, label := range []string{"", "soon", "last week sometime", "h3 ago"} {
		if got := ParseRelativeTime(label, time.Now()); got != nil {
			t.Fatalf("%q: expected nil, got %v", label, got)
		}
	}
}
