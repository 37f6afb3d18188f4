package availability

import (
	"math"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/payload"
	"github.com/tidwall/gjson"
)

var reasonKeys = []string{"reasons", "unavailable_reasons"}

// integral floats above this lose digits, so they are not trusted as ids
const maxExactFloat = 1 << 53

// CanonicalID turns an upstream id value into its string form. Strings are
// opaque and kept as trimmed. Integer numbers keep their original digits;
// integral numbers written as floats (8.0, 1e1) are normalised to integer text.
func CanonicalID(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.String:
		return CanonicalKey(v.String())
	case gjson.Number:
		return numberID(strings.TrimSpace(v.Raw))
	default:
		return "", false
	}
}

// CanonicalKey normalises an id that arrived as text, such as an object key.
func CanonicalKey(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

func numberID(raw string) (string, bool) {
	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return raw, true
	}
	if isDigits(raw) {
		// beyond int64; the text is already canonical
		return raw, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= maxExactFloat {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AvailableIDs lists the resource ids found in the search results collection,
// deduplicated in first-seen order. A missing collection yields an empty list.
func AvailableIDs(root gjson.Result) []string {
	out := []string{}
	results, ok := payload.Lookup(root, "results")
	if !ok {
		return out
	}
	seen := map[string]struct{}{}
	for _, entry := range payload.Entries(results) {
		id, ok := entryID(entry)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func entryID(entry gjson.Result) (string, bool) {
	v, ok := payload.FirstMatch(entry, payload.Path("id"), payload.Path("resource_id"))
	if !ok {
		return "", false
	}
	return CanonicalID(v)
}

// Reasons returns the upstream's human readable "not listed" reasons keyed by resource id.
func Reasons(root gjson.Result) map[string]string {
	out := map[string]string{}
	var accessors []payload.Accessor
	for _, k := range reasonKeys {
		accessors = append(accessors, payload.Aliases(k)...)
	}
	v, ok := payload.FirstMatch(root, accessors...)
	if !ok || !v.IsObject() {
		return out
	}
	v.ForEach(func(k, reason gjson.Result) bool {
		id, ok := CanonicalKey(k.String())
		if !ok {
			return true
		}
		switch reason.Type {
		case gjson.String:
			out[id] = reason.String()
		case gjson.Number:
			out[id] = reason.Raw
		}
		return true
	})
	return out
}

// Unlisted returns the ids of requested that are absent from available, in requested order.
func Unlisted(requested, available []string) []string {
	listed := make(map[string]struct{}, len(available))
	for _, id := range available {
		listed[id] = struct{}{}
	}
	out := []string{}
	for _, id := range requested {
		if _, ok := listed[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
