package handlers

import (
	"context"
	"net/http"

	"github.com/md-rashed-zaman/availbridge/libs/httpx"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/query"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/upstream"
)

type usageMeta struct {
	Checked     int  `json:"checked"`
	Concurrency int  `json:"concurrency"`
	Debug       bool `json:"debug"`
}

type usageDebugResult struct {
	ResourceID   string                  `json:"resourceId"`
	Available    bool                    `json:"available"`
	BusyCount    int                     `json:"busyCount"`
	Cached       bool                    `json:"cached"`
	TopLevelKeys []string                `json:"topLevelKeys"`
	RawPreview   string                  `json:"rawPreview"`
	Error        *upstream.ResponseError `json:"error,omitempty"`
}

type usageResponse struct {
	Start                  string                             `json:"start"`
	End                    string                             `json:"end"`
	AvailableResourceIDs   []string                           `json:"availableResourceIds"`
	UnavailableResourceIDs []string                           `json:"unavailableResourceIds"`
	ErrorsByResourceID     map[string]*upstream.ResponseError `json:"errorsByResourceId"`
	Meta                   usageMeta                          `json:"meta"`
	DebugResults           []usageDebugResult                 `json:"debugResults,omitempty"`
}

// usageOutcome is the classified usage of one resource.
type usageOutcome struct {
	resourceID string
	available  bool
	busyCount  int
	appErr     *upstream.ResponseError
	resp       *upstream.Response
}

// Usage looks up each requested resource's busy periods and classifies it against [start, end).
// A resource whose lookup carries an upstream response code is reported unavailable.
func (h *AvailabilityHandler) Usage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.begin(w, r, query.ModeUsage)
	if !ok {
		return
	}
	logger := h.requestLogger(r)
	window := availability.Interval{Start: req.StartTime, End: req.EndTime}

	results := availability.FanOut(r.Context(), req.ResourceIDs, h.concurrency, func(ctx context.Context, id string) (usageOutcome, error) {
		return h.lookupUsage(ctx, id, req, window)
	})

	var firstErr error
	outcomes := make([]usageOutcome, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			logger.Warn("upstream usage lookup failed", "resource_id", res.ID, "err", res.Err)
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		outcomes = append(outcomes, res.Value)
	}
	if firstErr != nil {
		httpx.WriteError(w, http.StatusInternalServerError, firstErr.Error())
		return
	}

	out := usageResponse{
		Start:                  req.Start,
		End:                    req.End,
		AvailableResourceIDs:   []string{},
		UnavailableResourceIDs: []string{},
		ErrorsByResourceID:     map[string]*upstream.ResponseError{},
		Meta: usageMeta{
			Checked:     len(req.ResourceIDs),
			Concurrency: h.concurrency,
			Debug:       req.Debug,
		},
	}
	for _, o := range outcomes {
		if o.available {
			out.AvailableResourceIDs = append(out.AvailableResourceIDs, o.resourceID)
		} else {
			out.UnavailableResourceIDs = append(out.UnavailableResourceIDs, o.resourceID)
		}
		if o.appErr != nil {
			logger.Info("upstream usage returned response code", "resource_id", o.resourceID, "code", o.appErr.Code, "message", o.appErr.Message)
			out.ErrorsByResourceID[o.resourceID] = o.appErr
		}
		if req.Debug {
			dbg := newDebugInfo(o.resp)
			out.DebugResults = append(out.DebugResults, usageDebugResult{
				ResourceID:   o.resourceID,
				Available:    o.available,
				BusyCount:    o.busyCount,
				Cached:       o.resp.Cached,
				TopLevelKeys: dbg.TopLevelKeys,
				RawPreview:   dbg.RawPreview,
				Error:        o.appErr,
			})
		}
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *AvailabilityHandler) lookupUsage(ctx context.Context, id string, req query.Request, window availability.Interval) (usageOutcome, error) {
	resp, err := h.client.ResourceUsage(ctx, id, req.Start, req.End)
	if err != nil {
		return usageOutcome{}, err
	}
	if appErr := resp.ResponseError(); appErr != nil {
		return usageOutcome{resourceID: id, appErr: appErr, resp: resp}, nil
	}
	busy := availability.BusyIntervals(resp.Body, id)
	return usageOutcome{
		resourceID: id,
		available:  availability.IsAvailable(window, busy),
		busyCount:  len(busy),
		resp:       resp,
	}, nil
}
