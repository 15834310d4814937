package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestServer(t *testing.T, requests *atomic.Int32, fail *atomic.Bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if got := r.URL.Query().Get("base"); got != "HKD" {
			t.Errorf("base query = %q, want HKD", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"HKD","rates":{"USD":0.128,"EUR":0.118}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRatesCachedWithinWindow(t *testing.T) {
	var requests atomic.Int32
	var fail atomic.Bool
	srv := newTestServer(t, &requests, &fail)

	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	clock := &now
	c := New(srv.URL, "HKD", WithClock(func() time.Time { return *clock }))

	first, err := c.Rates(context.Background())
	if err != nil {
		t.Fatalf("first Rates: %v", err)
	}
	if first["USD"] != 0.128 {
		t.Errorf("USD rate = %v, want 0.128", first["USD"])
	}

	// Inside the 12h window: served from cache, no second request.
	*clock = clock.Add(11 * time.Hour)
	if _, err := c.Rates(context.Background()); err != nil {
		t.Fatalf("cached Rates: %v", err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1 inside freshness window", n)
	}

	// Past the window: refetched.
	*clock = clock.Add(2 * time.Hour)
	if _, err := c.Rates(context.Background()); err != nil {
		t.Fatalf("refetched Rates: %v", err)
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("requests = %d, want 2 after window expired", n)
	}
}

func TestRatesStaleFallbackOnFailure(t *testing.T) {
	var requests atomic.Int32
	var fail atomic.Bool
	srv := newTestServer(t, &requests, &fail)

	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	clock := &now
	c := New(srv.URL, "HKD", WithClock(func() time.Time { return *clock }))

	if _, err := c.Rates(context.Background()); err != nil {
		t.Fatalf("warm-up Rates: %v", err)
	}

	*clock = clock.Add(13 * time.Hour)
	fail.Store(true)
	got, err := c.Rates(context.Background())
	if err != nil {
		t.Fatalf("stale fallback returned error: %v", err)
	}
	if got["EUR"] != 0.118 {
		t.Errorf("stale EUR rate = %v, want 0.118", got["EUR"])
	}
}

func TestRatesErrorWithoutCache(t *testing.T) {
	var requests atomic.Int32
	var fail atomic.Bool
	fail.Store(true)
	srv := newTestServer(t, &requests, &fail)

	c := New(srv.URL, "HKD")
	if _, err := c.Rates(context.Background()); err == nil {
		t.Error("expected error when provider fails with cold cache")
	}
}

func TestRatesResultIsACopy(t *testing.T) {
	var requests atomic.Int32
	var fail atomic.Bool
	srv := newTestServer(t, &requests, &fail)

	c := New(srv.URL, "HKD")
	first, err := c.Rates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	first["USD"] = 999

	second, err := c.Rates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second["USD"] != 0.128 {
		t.Errorf("cache poisoned through returned map: USD = %v", second["USD"])
	}
}
