package domain

import "time"

// instantLayouts are the timestamp shapes observed in wallet documents,
// most specific first. Older exports wrote bare dates.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999Z0700",
	"2006-01-02",
}

// ParseInstant parses an ISO timestamp string. Returns ok=false for empty
// or unparseable input; callers default to epoch zero (conflict arbitration)
// or skip the record (recurrence), never abort.
func ParseInstant(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatInstant renders a timestamp in the document's wire shape.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Midnight truncates a time to the start of its UTC day. Recurrence is
// day-granular; time-of-day is not tracked.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Clock abstracts wall-clock reads so engines and operations can be driven
// deterministically in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IDSource generates opaque unique identifiers. Implemented by UUIDSource
// (production) and testutil.SeqIDs (tests).
type IDSource interface {
	NewID() string
}
