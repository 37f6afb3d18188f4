// Package payload validates loosely typed upstream JSON and reads it through
// ordered alias paths. Values are gjson results, so object members are visited
// in document order and numbers keep their original text.
package payload

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// MaxDepth is the deepest object/array nesting accepted from the upstream.
const MaxDepth = 512

var ErrInvalidJSON = errors.New("invalid JSON")

// Decode checks data is a single well-formed JSON value no deeper than MaxDepth.
func Decode(data []byte) (gjson.Result, error) {
	if err := checkDepth(data, MaxDepth); err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, ErrInvalidJSON
	}
	return gjson.ParseBytes(data), nil
}

// checkDepth scans data without recursion, tracking nesting outside of strings.
func checkDepth(data []byte, limit int) error {
	depth := 0
	inString, escaped := false, false
	for _, c := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
			if depth > limit {
				return fmt.Errorf("%w: nesting deeper than %d", ErrInvalidJSON, limit)
			}
		case '}', ']':
			depth--
		}
	}
	return nil
}

// Get returns the member key of obj. Non-objects never match.
func Get(obj gjson.Result, key string) (gjson.Result, bool) {
	if !obj.IsObject() {
		return gjson.Result{}, false
	}
	var found gjson.Result
	ok := false
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}

// Entries yields the members of a collection that may be an array or an
// id-keyed object, in document order.
func Entries(v gjson.Result) []gjson.Result {
	switch {
	case v.IsArray():
		return v.Array()
	case v.IsObject():
		var out []gjson.Result
		v.ForEach(func(_, item gjson.Result) bool {
			out = append(out, item)
			return true
		})
		return out
	default:
		return nil
	}
}

// TopLevelKeys lists the keys of root in document order, or nil if root is not an object.
func TopLevelKeys(root gjson.Result) []string {
	if !root.IsObject() {
		return nil
	}
	var keys []string
	root.ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	return keys
}

// Preview returns at most n runes of raw.
func Preview(raw []byte, n int) string {
	return Truncate(string(raw), n)
}

func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
