package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/availbridge/libs/httpx"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/payload"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/query"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/upstream"
)

const rawPreviewLimit = 1000

// Upstream is the part of the upstream client the handlers need.
type Upstream interface {
	Configured() bool
	SearchResources(ctx context.Context, p upstream.SearchParams) (*upstream.Response, error)
	ResourceUsage(ctx context.Context, resourceID, start, end string) (*upstream.Response, error)
}

type AvailabilityHandler struct {
	client      Upstream
	logger      *slog.Logger
	concurrency int
}

func NewAvailabilityHandler(client Upstream, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		client:      client,
		logger:      logger,
		concurrency: availability.Concurrency,
	}
}

type debugInfo struct {
	TopLevelKeys []string `json:"topLevelKeys"`
	RawPreview   string   `json:"rawPreview"`
}

func newDebugInfo(resp *upstream.Response) *debugInfo {
	keys := payload.TopLevelKeys(resp.Body)
	if keys == nil {
		keys = []string{}
	}
	return &debugInfo{
		TopLevelKeys: keys,
		RawPreview:   payload.Preview(resp.Raw, rawPreviewLimit),
	}
}

// begin handles the checks shared by both endpoints. It returns false when a
// response has already been written.
func (h *AvailabilityHandler) begin(w http.ResponseWriter, r *http.Request, mode query.Mode) (query.Request, bool) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return query.Request{}, false
	default:
		httpx.MethodNotAllowed(w, http.MethodGet, http.MethodOptions)
		return query.Request{}, false
	}

	if !h.client.Configured() {
		httpx.WriteError(w, http.StatusInternalServerError, "Missing env var "+upstream.APIKeyEnv)
		return query.Request{}, false
	}

	req, err := query.Parse(r.URL.Query(), mode)
	if err != nil {
		if query.IsValidationError(err) {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return query.Request{}, false
		}
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return query.Request{}, false
	}
	return req, true
}

func (h *AvailabilityHandler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", httpx.RequestIDFromContext(r.Context()), "path", r.URL.Path)
}
