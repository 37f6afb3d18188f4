package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/availbridge/libs/httpx"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/query"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/upstream"
)

type searchMeta struct {
	RequestedFilterCount int  `json:"requestedFilterCount"`
	ReturnedCount        int  `json:"returnedCount"`
	ReasonsCount         int  `json:"reasonsCount"`
	Debug                bool `json:"debug"`
}

type searchResponse struct {
	Start                  string                  `json:"start"`
	End                    string                  `json:"end"`
	Quantity               float64                 `json:"quantity"`
	AvailableResourceIDs   []string                `json:"availableResourceIds"`
	UnavailableResourceIDs []string                `json:"unavailableResourceIds"`
	ReasonsByResourceID    map[string]string       `json:"reasonsByResourceId"`
	Meta                   searchMeta              `json:"meta"`
	Error                  *upstream.ResponseError `json:"error,omitempty"`
	Debug                  *debugInfo              `json:"debug,omitempty"`
}

// Search answers which resources the upstream reports free for [start, end).
// An upstream application error still yields 200, with every filtered id unavailable.
func (h *AvailabilityHandler) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := h.begin(w, r, query.ModeSearch)
	if !ok {
		return
	}
	logger := h.requestLogger(r)

	resp, err := h.client.SearchResources(r.Context(), upstream.SearchParams{
		Start:       req.Start,
		End:         req.End,
		Quantity:    req.Quantity,
		ResourceIDs: req.ResourceIDs,
	})
	if err != nil {
		logger.Warn("upstream search failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := searchResponse{
		Start:               req.Start,
		End:                 req.End,
		Quantity:            req.Quantity,
		ReasonsByResourceID: availability.Reasons(resp.Body),
	}

	if appErr := resp.ResponseError(); appErr != nil {
		logger.Info("upstream search returned response code", "code", appErr.Code, "message", appErr.Message)
		out.Error = appErr
		out.AvailableResourceIDs = []string{}
		out.UnavailableResourceIDs = append([]string{}, req.ResourceIDs...)
	} else {
		out.AvailableResourceIDs = availability.AvailableIDs(resp.Body)
		out.UnavailableResourceIDs = availability.Unlisted(req.ResourceIDs, out.AvailableResourceIDs)
	}

	out.Meta = searchMeta{
		RequestedFilterCount: len(req.ResourceIDs),
		ReturnedCount:        len(out.AvailableResourceIDs),
		ReasonsCount:         len(out.ReasonsByResourceID),
		Debug:                req.Debug,
	}
	if req.Debug {
		out.Debug = newDebugInfo(resp)
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}
