package upstream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/payload"
	"github.com/tidwall/gjson"
)

const (
	httpErrorExcerpt  = 300
	parseErrorExcerpt = 200
)

// HTTPError is a non-2xx response from the upstream API.
type HTTPError struct {
	StatusCode int
	Body       string
	ResourceID string
}

func (e *HTTPError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("upstream HTTP %d for resource %s: %s", e.StatusCode, e.ResourceID, e.Body)
	}
	return fmt.Sprintf("upstream HTTP %d: %s", e.StatusCode, e.Body)
}

// ParseError is a response body that is not valid JSON.
type ParseError struct {
	Body       string
	ResourceID string
	Err        error
}

func (e *ParseError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("upstream returned non-JSON for resource %s: %s", e.ResourceID, e.Body)
	}
	return fmt.Sprintf("upstream returned non-JSON: %s", e.Body)
}

func (e *ParseError) Unwrap() error { return e.Err }

// BodyTooLargeError is a response body that exceeded the read limit.
type BodyTooLargeError struct {
	Limit      int64
	ResourceID string
}

func (e *BodyTooLargeError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("upstream body too large for resource %s (over %d bytes)", e.ResourceID, e.Limit)
	}
	return fmt.Sprintf("upstream body too large (over %d bytes)", e.Limit)
}

// ResponseError is an application-level failure reported inside a well-formed body.
type ResponseError struct {
	Code    int64  `json:"response_code"`
	Message string `json:"response_message"`
}

// responseError reads response_code/response_message from root. A zero, missing
// or unparseable code means success.
func responseError(root gjson.Result) *ResponseError {
	v, ok := payload.Lookup(root, "response_code")
	if !ok {
		return nil
	}
	var code int64
	switch v.Type {
	case gjson.Number:
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			n = int64(v.Float())
		}
		code = n
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return nil
		}
		code = n
	default:
		return nil
	}
	if code == 0 {
		return nil
	}
	msg := ""
	if m, ok := payload.Lookup(root, "response_message"); ok {
		switch m.Type {
		case gjson.String:
			msg = m.Str
		case gjson.Number:
			msg = m.Raw
		}
	}
	return &ResponseError{Code: code, Message: msg}
}
