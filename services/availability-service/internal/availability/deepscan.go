package availability

import (
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/payload"
	"github.com/tidwall/gjson"
)

// DeepScanIntervals is a best-effort last resort for payloads that nest the
// per-resource usage somewhere unexpected. It walks the whole document for an
// object key equal to resourceID and collects every object beneath it that
// carries Unix-second from/to values. Results are not guaranteed to be complete.
func DeepScanIntervals(root gjson.Result, resourceID string) []Interval {
	var out []Interval
	var walk func(v gjson.Result, inResource bool, depth int)
	walk = func(v gjson.Result, inResource bool, depth int) {
		if depth > payload.MaxDepth {
			return
		}
		switch {
		case v.IsObject():
			if inResource {
				if iv, ok := unixInterval(v, "from", "to"); ok {
					out = append(out, iv)
					return
				}
			}
			v.ForEach(func(k, child gjson.Result) bool {
				walk(child, inResource || k.String() == resourceID, depth+1)
				return true
			})
		case v.IsArray():
			v.ForEach(func(_, child gjson.Result) bool {
				walk(child, inResource, depth+1)
				return true
			})
		}
	}
	walk(root, false, 0)
	return out
}
