package availability

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/payload"
	"github.com/tidwall/gjson"
)

func mustDecode(t *testing.T, raw string) gjson.Result {
	t.Helper()
	v, err := payload.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps_HalfOpen(t *testing.T) {
	a := Interval{Start: day(1), End: day(3)}
	touching := Interval{Start: day(3), End: day(5)}
	inside := Interval{Start: day(2), End: day(4)}

	if Overlaps(a, touching) || Overlaps(touching, a) {
		t.Fatal("touching intervals must not overlap")
	}
	if !Overlaps(a, inside) || !Overlaps(inside, a) {
		t.Fatal("expected overlap")
	}
}

func TestOverlaps_SymmetricAndDisjoint(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	base := day(1)
	for i := 0; i < 500; i++ {
		a0, b0 := r.Intn(48), r.Intn(48)
		a := Interval{Start: base.Add(time.Duration(a0) * time.Hour), End: base.Add(time.Duration(a0+1+r.Intn(12)) * time.Hour)}
		b := Interval{Start: base.Add(time.Duration(b0) * time.Hour), End: base.Add(time.Duration(b0+1+r.Intn(12)) * time.Hour)}
		if Overlaps(a, b) != Overlaps(b, a) {
			t.Fatalf("overlap not symmetric for %v %v", a, b)
		}
		if (!a.End.After(b.Start) || !b.End.After(a.Start)) && Overlaps(a, b) {
			t.Fatalf("disjoint intervals reported overlapping: %v %v", a, b)
		}
	}
}

func TestIsAvailable(t *testing.T) {
	window := Interval{Start: day(10), End: day(12)}
	if !IsAvailable(window, nil) {
		t.Fatal("no busy intervals means available")
	}
	if IsAvailable(window, []Interval{{Start: day(11), End: day(13)}}) {
		t.Fatal("overlapping booking means unavailable")
	}
	if !IsAvailable(window, []Interval{{Start: day(8), End: day(10)}, {Start: day(12), End: day(14)}}) {
		t.Fatal("bookings touching the window leave it available")
	}
}

func TestAvailableIDs_ObjectCollection(t *testing.T) {
	root := mustDecode(t, `{"data":{"results":{"8":{"id":"8"},"18":{"id":"18"}}}}`)
	got := AvailableIDs(root)
	if len(got) != 2 || got[0] != "8" || got[1] != "18" {
		t.Fatalf("expected [8 18], got %v", got)
	}
}

func TestAvailableIDs_AliasesAndCoercion(t *testing.T) {
	root := mustDecode(t, `{"result":{"results":[
		{"resource_id":12345678901234567890},
		{"id":"7"},
		{"id":7},
		{"id":7.0},
		{"id":" abc-1 "},
		{"id":1e1},
		{"id":8.5},
		{"id":""},
		{"name":"no id"},
		"junk"
	]}}`)
	got := AvailableIDs(root)
	want := []string{"12345678901234567890", "7", "abc-1", "10"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAvailableIDs_FloatAndOpaqueIDsMatchFilter(t *testing.T) {
	root := mustDecode(t, `{"results":[{"id":8.0},{"id":"abc-1"},{"id":"18"}]}`)
	got := AvailableIDs(root)
	if len(got) != 3 || got[0] != "8" || got[1] != "abc-1" || got[2] != "18" {
		t.Fatalf("expected [8 abc-1 18], got %v", got)
	}
	if un := Unlisted([]string{"8", "abc-1", "9"}, got); len(un) != 1 || un[0] != "9" {
		t.Fatalf("expected only 9 unlisted, got %v", un)
	}
}

func TestAvailableIDs_MissingCollection(t *testing.T) {
	got := AvailableIDs(mustDecode(t, `{"response_code":0}`))
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestUnlisted(t *testing.T) {
	got := Unlisted([]string{"8", "9"}, []string{"8"})
	if len(got) != 1 || got[0] != "9" {
		t.Fatalf("expected [9], got %v", got)
	}
}

func TestReasons(t *testing.T) {
	root := mustDecode(t, `{"data":{"reasons":{"9":"Fully booked","room-a":"Closed","10":3,"11":{"nested":true}}}}`)
	got := Reasons(root)
	if len(got) != 3 || got["9"] != "Fully booked" || got["room-a"] != "Closed" || got["10"] != "3" {
		t.Fatalf("unexpected reasons %v", got)
	}
	if len(Reasons(mustDecode(t, `{}`))) != 0 {
		t.Fatal("expected no reasons")
	}
}

func TestBusyIntervals_UsageMap(t *testing.T) {
	t0 := day(10).Unix()
	t1 := day(11).Unix()
	root := mustDecode(t, `{"data":{"usage":{"10":{"0":{"from":`+strconv.FormatInt(t0, 10)+`,"to":`+strconv.FormatInt(t1, 10)+`}}}}}`)

	busy := BusyIntervals(root, "10")
	if len(busy) != 1 || !busy[0].Start.Equal(day(10)) || !busy[0].End.Equal(day(11)) {
		t.Fatalf("unexpected intervals %v", busy)
	}
	if IsAvailable(Interval{Start: day(10), End: day(12)}, busy) {
		t.Fatal("expected unavailable")
	}
	if !IsAvailable(Interval{Start: day(11), End: day(12)}, busy) {
		t.Fatal("expected available")
	}
	if len(BusyIntervals(root, "11")) != 0 {
		t.Fatal("other resources must not pick up resource 10's usage")
	}
}

func TestBusyIntervals_FallbackContainers(t *testing.T) {
	root := mustDecode(t, `{"periods":[
		{"start":"2026-03-05","end":"2026-03-07"},
		{"from":"1772841600","to":"1772928000"},
		{"start":"bogus","end":"2026-03-07"}
	]}`)
	busy := BusyIntervals(root, "10")
	if len(busy) != 2 {
		t.Fatalf("expected 2 intervals, got %v", busy)
	}
	if !busy[0].Start.Equal(day(5)) || !busy[0].End.Equal(day(7)) {
		t.Fatalf("unexpected ISO interval %v", busy[0])
	}
	if !busy[1].Start.Equal(time.Unix(1772841600, 0).UTC()) {
		t.Fatalf("unexpected unix interval %v", busy[1])
	}
}

func TestBusyIntervals_NothingRecognisable(t *testing.T) {
	if got := BusyIntervals(mustDecode(t, `{"data":{"something":"else"}}`), "10"); len(got) != 0 {
		t.Fatalf("expected no intervals, got %v", got)
	}
}

// Best effort only: the deep scan is a last resort and callers should not rely on it.
func TestDeepScanIntervals_BestEffort(t *testing.T) {
	root := mustDecode(t, `{"payload":{"resources":{"10":{"blocks":[{"from":1772668800,"to":1772755200}]},"11":{"blocks":[{"from":1772755200,"to":1772841600}]}}}}`)
	busy := BusyIntervals(root, "10")
	if len(busy) != 1 || !busy[0].Start.Equal(time.Unix(1772668800, 0).UTC()) {
		t.Fatalf("unexpected deep scan result %v", busy)
	}
}

func TestUnixSeconds_Bounds(t *testing.T) {
	for _, raw := range []string{`"1000000000"`, `99999999999`, `12`, `"abc"`, `1500000000.5`, `null`} {
		if _, ok := UnixSeconds(gjson.Parse(raw)); ok {
			t.Fatalf("expected %s to be rejected", raw)
		}
	}
	for _, raw := range []string{`"1700000000"`, `1700000000`, `1.7e9`} {
		if _, ok := UnixSeconds(gjson.Parse(raw)); !ok {
			t.Fatalf("expected %s to be accepted", raw)
		}
	}
}

func TestDeepScanIntervals_DeepDocumentIsBounded(t *testing.T) {
	n := payload.MaxDepth
	raw := `{"10":` + strings.Repeat(`{"a":`, n-2) + `{"from":1772668800,"to":1772755200}` + strings.Repeat("}", n-2) + "}"
	root := mustDecode(t, raw)
	busy := DeepScanIntervals(root, "10")
	if len(busy) != 1 {
		t.Fatalf("expected the interval at the nesting limit, got %v", busy)
	}
}

func TestFanOut_OrderAndLimit(t *testing.T) {
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}

	var inFlight, peak int32
	var mu sync.Mutex
	got := FanOut(context.Background(), ids, 3, func(_ context.Context, id string) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		// later ids finish first
		n2, _ := strconv.Atoi(id)
		time.Sleep(time.Duration(20-n2) * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return "r" + id, nil
	})

	for i, id := range ids {
		if got[i].ID != id || got[i].Value != "r"+id || got[i].Err != nil {
			t.Fatalf("slot %d: unexpected result %+v", i, got[i])
		}
	}
	if peak > 3 {
		t.Fatalf("expected at most 3 in flight, saw %d", peak)
	}
}

func TestFanOut_DefaultLimit(t *testing.T) {
	got := FanOut(context.Background(), []string{"a", "b"}, 0, func(_ context.Context, id string) (int, error) {
		return len(id), nil
	})
	if len(got) != 2 || got[0].Value != 1 || got[1].Value != 1 {
		t.Fatalf("unexpected results %+v", got)
	}
}

func TestFanOut_PanicStaysInItsSlot(t *testing.T) {
	got := FanOut(context.Background(), []string{"10", "11", "12"}, 2, func(_ context.Context, id string) (string, error) {
		if id == "11" {
			panic("nil map write")
		}
		return "ok-" + id, nil
	})
	if got[1].Err == nil || !strings.Contains(got[1].Err.Error(), "nil map write") {
		t.Fatalf("expected panic converted to error, got %+v", got[1])
	}
	if got[0].Value != "ok-10" || got[2].Value != "ok-12" || got[0].Err != nil || got[2].Err != nil {
		t.Fatalf("siblings should resolve normally: %+v", got)
	}
}
