package payload

import "github.com/tidwall/gjson"

// Accessor extracts one candidate value from a decoded payload.
type Accessor func(root gjson.Result) (gjson.Result, bool)

// Path walks nested objects by key. Missing keys, non-object steps and JSON null all miss.
func Path(keys ...string) Accessor {
	return func(root gjson.Result) (gjson.Result, bool) {
		cur := root
		for _, k := range keys {
			next, ok := Get(cur, k)
			if !ok {
				return gjson.Result{}, false
			}
			cur = next
		}
		if cur.Type == gjson.Null {
			return gjson.Result{}, false
		}
		return cur, true
	}
}

// FirstMatch tries accessors in order and returns the first non-null hit.
func FirstMatch(root gjson.Result, accessors ...Accessor) (gjson.Result, bool) {
	for _, a := range accessors {
		if v, ok := a(root); ok {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// Aliases returns the standard lookup order for key: data.key, result.key, key.
func Aliases(key string) []Accessor {
	return []Accessor{
		Path("data", key),
		Path("result", key),
		Path(key),
	}
}

// Lookup resolves key through Aliases.
func Lookup(root gjson.Result, key string) (gjson.Result, bool) {
	return FirstMatch(root, Aliases(key)...)
}
