package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
	// Strict rejects requests whose Origin header is present but not allowlisted.
	Strict bool
}

type originRejection struct {
	Error          string   `json:"error"`
	Origin         string   `json:"origin"`
	AllowedOrigins []string `json:"allowedOrigins"`
}

// WithCORS adds allowlist based CORS handling. If AllowedOrigins is empty, it is a no-op.
// Preflight requests are always answered with 204, whether or not the origin matched.
func WithCORS(cfg CORSPolicy) Middleware {
	if len(cfg.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	allowedOrigins := normalizeList(cfg.AllowedOrigins)
	allowedMethods := strings.Join(normalizeList(cfg.AllowedMethods), ", ")
	allowedHeaders := strings.Join(normalizeList(cfg.AllowedHeaders), ", ")
	maxAge := int(cfg.MaxAge.Seconds())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			headers := w.Header()
			headers.Add("Vary", "Origin")

			allowOrigin, ok := "", false
			if origin != "" {
				allowOrigin, ok = matchOrigin(origin, allowedOrigins, cfg.AllowCredentials)
			}
			if ok {
				headers.Set("Access-Control-Allow-Origin", allowOrigin)
				if cfg.AllowCredentials {
					headers.Set("Access-Control-Allow-Credentials", "true")
				}
				if allowedMethods != "" {
					headers.Set("Access-Control-Allow-Methods", allowedMethods)
				}
				if allowedHeaders != "" {
					headers.Set("Access-Control-Allow-Headers", allowedHeaders)
				}
				if maxAge > 0 {
					headers.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if origin != "" && !ok && cfg.Strict {
				WriteJSON(w, http.StatusForbidden, originRejection{
					Error:          "Origin not allowed",
					Origin:         origin,
					AllowedOrigins: allowedOrigins,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func matchOrigin(origin string, allowed []string, allowCredentials bool) (string, bool) {
	for _, candidate := range allowed {
		if candidate == "*" {
			if allowCredentials {
				return origin, true
			}
			return "*", true
		}
		if strings.EqualFold(candidate, origin) {
			return origin, true
		}
	}
	return "", false
}
