package availability

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether a and b intersect. Touching boundaries do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// IsAvailable reports whether no busy interval overlaps window.
func IsAvailable(window Interval, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(window, b) {
			return false
		}
	}
	return true
}
