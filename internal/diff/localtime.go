package diff

import (
	"fmt"
	"strings"
	"time"
)

// LocalEditLayout is the timezone-naive form used while editing, the same
// shape an HTML datetime-local input produces.
const LocalEditLayout = "2006-01-02T15:04"

var localInputLayouts = []string{
	LocalEditLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ToLocalEdit renders t in loc at minute precision. The zero time renders as "".
func ToLocalEdit(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(location(loc)).Format(LocalEditLayout)
}

// FromLocalEdit parses a local edit string as wall time in loc. Seconds are
// accepted and dropped so that the result always has minute precision.
func FromLocalEdit(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyTime
	}
	for _, layout := range localInputLayouts {
		if t, err := time.ParseInLocation(layout, s, location(loc)); err == nil {
			return t.Truncate(time.Minute), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
