// Package query validates the inbound availability query string.
package query

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidRange       = errors.New("invalid range")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrMissingResourceIDs = errors.New("missing resource ids")
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type Mode int

const (
	// ModeSearch asks the upstream which resources are free; ids are an optional filter.
	ModeSearch Mode = iota
	// ModeUsage reads busy periods of each listed resource; ids are required.
	ModeUsage
)

type Request struct {
	Start       string
	End         string
	StartTime   time.Time
	EndTime     time.Time
	Quantity    float64
	ResourceIDs []string
	Debug       bool
}

// IsValidationError reports whether err came from Parse.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrMissingResourceIDs)
}

func Parse(values url.Values, mode Mode) (Request, error) {
	var req Request
	var err error

	req.Start = strings.TrimSpace(values.Get("start"))
	req.End = strings.TrimSpace(values.Get("end"))
	if req.StartTime, err = parseDate("start", req.Start); err != nil {
		return Request{}, err
	}
	if req.EndTime, err = parseDate("end", req.End); err != nil {
		return Request{}, err
	}
	if mode == ModeUsage && !req.StartTime.Before(req.EndTime) {
		return Request{}, fmt.Errorf("%w: start must be before end", ErrInvalidRange)
	}

	req.Quantity = 1
	if raw := strings.TrimSpace(values.Get("quantity")); raw != "" {
		q, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(q) || math.IsInf(q, 0) || q <= 0 {
			return Request{}, fmt.Errorf("%w: quantity must be a positive number", ErrInvalidQuantity)
		}
		req.Quantity = q
	}

	req.ResourceIDs = ParseIDs(values.Get("resourceIds"))
	if mode == ModeUsage && len(req.ResourceIDs) == 0 {
		return Request{}, fmt.Errorf("%w: resourceIds is required", ErrMissingResourceIDs)
	}

	req.Debug = values.Get("debug") == "1"
	return req, nil
}

// ParseIDs splits a comma separated id list, trimming entries and dropping
// blanks and repeats. Order of first appearance is kept.
func ParseIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		id := strings.TrimSpace(p)
		if id == "" {
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

func parseDate(name, v string) (time.Time, error) {
	if !datePattern.MatchString(v) {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidDate, name)
	}
	t, err := time.ParseInLocation(DateLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s is not a calendar date", ErrInvalidDate, name)
	}
	return t, nil
}
