package query

import (
	"errors"
	"net/url"
	"testing"
	"time"
)

func values(pairs ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

func TestParse_SearchDefaults(t *testing.T) {
	req, err := Parse(values("start", "2026-03-01", "end", "2026-03-04"), ModeSearch)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.Quantity != 1 {
		t.Fatalf("expected default quantity 1, got %v", req.Quantity)
	}
	if len(req.ResourceIDs) != 0 {
		t.Fatalf("expected no filter, got %v", req.ResourceIDs)
	}
	if !req.StartTime.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", req.StartTime)
	}
	if req.Debug {
		t.Fatal("debug should be off")
	}
}

func TestParse_InvalidDate(t *testing.T) {
	cases := []url.Values{
		values("end", "2026-03-04"),
		values("start", "2026-3-1", "end", "2026-03-04"),
		values("start", "2026-02-30", "end", "2026-03-04"),
		values("start", "2026-03-01", "end", "tomorrow"),
	}
	for _, c := range cases {
		if _, err := Parse(c, ModeSearch); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%v: expected ErrInvalidDate, got %v", c, err)
		}
	}
}

func TestParse_RangeOnlyCheckedForUsage(t *testing.T) {
	v := values("start", "2026-03-04", "end", "2026-03-04", "resourceIds", "10")
	if _, err := Parse(v, ModeUsage); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := Parse(v, ModeSearch); err != nil {
		t.Fatalf("search mode should not check range: %v", err)
	}
}

func TestParse_Quantity(t *testing.T) {
	for _, q := range []string{"0", "-1", "abc", "NaN", "Inf"} {
		_, err := Parse(values("start", "2026-03-01", "end", "2026-03-02", "quantity", q), ModeSearch)
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("quantity %q: expected ErrInvalidQuantity, got %v", q, err)
		}
		if !IsValidationError(err) {
			t.Fatalf("quantity %q: expected validation error", q)
		}
	}
	req, err := Parse(values("start", "2026-03-01", "end", "2026-03-02", "quantity", "2.5"), ModeSearch)
	if err != nil || req.Quantity != 2.5 {
		t.Fatalf("expected 2.5, got %v (%v)", req.Quantity, err)
	}
}

func TestParse_UsageRequiresIDs(t *testing.T) {
	_, err := Parse(values("start", "2026-03-01", "end", "2026-03-02", "resourceIds", " , ,"), ModeUsage)
	if !errors.Is(err, ErrMissingResourceIDs) {
		t.Fatalf("expected ErrMissingResourceIDs, got %v", err)
	}
}

func TestParseIDs(t *testing.T) {
	got := ParseIDs(" 8, 9,,8 ,123456789012345678901 ")
	want := []string{"8", "9", "123456789012345678901"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
