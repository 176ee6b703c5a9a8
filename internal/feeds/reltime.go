package feeds

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeExpr = regexp.MustCompile(`(?i)^(\d+)\s*(m|min|mins|minute|minutes|h|hr|hrs|hour|hours|d|day|days)\s*(?:ago)?$`)

// absoluteLayouts cover the formats listing pages print when they do show a
// real date.
var absoluteLayouts = []string{
	time.RFC3339,
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02/01/2006",
	"2006-01-02",
}

// ParseRelativeTime turns a listing label like "3h ago" or "2 days ago" into
// an absolute timestamp relative to now. Absolute-looking labels are parsed
// directly. Unrecognized labels return nil; callers drop the entry rather
// than guess.
func ParseRelativeTime(label string, now time.Time) *time.Time {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}

	if strings.EqualFold(label, "just now") || strings.EqualFold(label, "now") {
		ts := now.UTC()
		return &ts
	}
	if strings.EqualFold(label, "yesterday") {
		ts := now.Add(-24 * time.Hour).UTC()
		return &ts
	}

	if m := relativeExpr.FindStringSubmatch(label); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		var unit time.Duration
		switch strings.ToLower(m[2])[0] {
		case 'm':
			unit = time.Minute
		case 'h':
			unit = time.Hour
		case 'd':
			unit = 24 * time.Hour
		}
		ts := now.Add(-time.Duration(n) * unit).UTC()
		return &ts
	}

	for _, layout := range absoluteLayouts {
		if ts, err := time.Parse(layout, label); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}

	return nil
}
