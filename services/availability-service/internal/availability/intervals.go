package availability

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/payload"
	"github.com/tidwall/gjson"
)

// Unix-second values are only trusted strictly inside this range.
const (
	minUnixSeconds = 1_000_000_000
	maxUnixSeconds = 99_999_999_999
)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// fallbackContainers are tried in order when the usage map has nothing for a resource.
var fallbackContainers = []payload.Accessor{
	payload.Path("data", "periods"),
	payload.Path("data", "bookings"),
	payload.Path("data", "reservations"),
	payload.Path("data", "usage"),
	payload.Path("result", "periods"),
	payload.Path("result", "bookings"),
	payload.Path("periods"),
	payload.Path("bookings"),
	payload.Path("reservations"),
	payload.Path("usage"),
}

var boundaryFields = [][2]string{
	{"start", "end"},
	{"from", "to"},
	{"start_time", "end_time"},
}

// BusyIntervals extracts the busy periods of resourceID from a usage payload.
// The primary path is data.usage[resourceID]; then the fallback containers;
// then DeepScanIntervals. An unrecognised payload yields no intervals.
func BusyIntervals(root gjson.Result, resourceID string) []Interval {
	if busy := usageIntervals(root, resourceID); len(busy) > 0 {
		return busy
	}
	if busy := containerIntervals(root); len(busy) > 0 {
		return busy
	}
	return DeepScanIntervals(root, resourceID)
}

func usageIntervals(root gjson.Result, resourceID string) []Interval {
	v, ok := payload.Path("data", "usage", resourceID)(root)
	if !ok {
		return nil
	}
	var out []Interval
	for _, entry := range payload.Entries(v) {
		if iv, ok := unixInterval(entry, "from", "to"); ok {
			out = append(out, iv)
		}
	}
	return out
}

func containerIntervals(root gjson.Result) []Interval {
	for _, container := range fallbackContainers {
		v, ok := container(root)
		if !ok {
			continue
		}
		var out []Interval
		for _, item := range payload.Entries(v) {
			if iv, ok := itemInterval(item); ok {
				out = append(out, iv)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// itemInterval accepts ISO dates first, then Unix seconds, for each known field pair.
func itemInterval(obj gjson.Result) (Interval, bool) {
	for _, f := range boundaryFields {
		if iv, ok := isoInterval(obj, f[0], f[1]); ok {
			return iv, true
		}
		if iv, ok := unixInterval(obj, f[0], f[1]); ok {
			return iv, true
		}
	}
	return Interval{}, false
}

func isoInterval(obj gjson.Result, startKey, endKey string) (Interval, bool) {
	s, ok1 := stringField(obj, startKey)
	e, ok2 := stringField(obj, endKey)
	if !ok1 || !ok2 {
		return Interval{}, false
	}
	start, ok1 := ParseISO(s)
	end, ok2 := ParseISO(e)
	if !ok1 || !ok2 || !start.Before(end) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

func unixInterval(obj gjson.Result, startKey, endKey string) (Interval, bool) {
	sv, _ := payload.Get(obj, startKey)
	ev, _ := payload.Get(obj, endKey)
	start, ok1 := UnixSeconds(sv)
	end, ok2 := UnixSeconds(ev)
	if !ok1 || !ok2 || !start.Before(end) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

func stringField(obj gjson.Result, key string) (string, bool) {
	v, ok := payload.Get(obj, key)
	if !ok || v.Type != gjson.String {
		return "", false
	}
	s := strings.TrimSpace(v.String())
	return s, s != ""
}

// ParseISO parses an ISO-8601 date or date-time. Values without a zone are UTC.
func ParseISO(s string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// UnixSeconds interprets v as a Unix timestamp in seconds when it is an integer
// (or integer string) strictly between minUnixSeconds and maxUnixSeconds.
func UnixSeconds(v gjson.Result) (time.Time, bool) {
	var raw string
	switch v.Type {
	case gjson.Number:
		raw = v.Raw
	case gjson.String:
		raw = v.String()
	default:
		return time.Time{}, false
	}
	raw = strings.TrimSpace(raw)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != math.Trunc(f) || math.Abs(f) >= maxExactFloat {
			return time.Time{}, false
		}
		n = int64(f)
	}
	if n <= minUnixSeconds || n >= maxUnixSeconds {
		return time.Time{}, false
	}
	return time.Unix(n, 0).UTC(), true
}
