package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// CacheDirective is the CDN cache policy attached to every JSON response.
const CacheDirective = "s-maxage=60, stale-while-revalidate=300"

type errorBody struct {
	Error string `json:"error"`
}

// WriteJSON writes v with the fixed content type and cache headers.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", CacheDirective)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorBody{Error: msg})
}

// MethodNotAllowed answers 405 with an Allow header listing allowed.
func MethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}
