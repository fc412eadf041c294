package proxy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hamclock-devserver/pkg/config"
	"github.com/hamclock-devserver/pkg/endpoints"
	"github.com/hamclock-devserver/pkg/metrics"
)

func newTestHandler(table endpoints.Table) *Handler {
	cfg := &config.Config{}
	cfg.SetDefaults()
	return NewHandler(table, cfg, metrics.NewCollector(func() int { return len(table) }))
}

func get(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestUnknownEndpoint(t *testing.T) {
	var calls int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer upstream.Close()

	h := newTestHandler(endpoints.Table{"kindex": upstream.URL})
	rec := get(t, h, "/api/nope")

	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/nope status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if body := rec.Body.String(); !strings.Contains(body, "nope") {
		t.Errorf("GET /api/nope body = %q, want it to name the unknown endpoint", body)
	}
	if n := atomic.LoadInt64(&calls); n != 0 {
		t.Errorf("upstream calls = %d, want 0", n)
	}
}

func TestRelaySuccess(t *testing.T) {
	const payload = `[{"spotId":1,"activator":"W1AW"}]`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(payload))
	}))
	defer upstream.Close()

	h := newTestHandler(endpoints.Table{"pota": upstream.URL})
	rec := get(t, h, "/api/pota")

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/pota status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != payload {
		t.Errorf("GET /api/pota body = %q, want %q", got, payload)
	}
	for header, want := range map[string]string{
		"Content-Type":                "application/json; charset=utf-8",
		"Access-Control-Allow-Origin": "*",
		"Cache-Control":               "max-age=60",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("GET /api/pota header %s = %q, want %q", header, got, want)
		}
	}
}

func TestRelayDefaultContentType(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Suppress Go's content-type sniffing so the response carries no
		// Content-Type at all.
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte(`{"flux":155}`))
	}))
	defer upstream.Close()

	h := newTestHandler(endpoints.Table{"solarflux": upstream.URL})
	rec := get(t, h, "/api/solarflux")

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/solarflux status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want %q", got, "application/json")
	}
}

func TestUpstreamErrorStatusRelayedAsOK(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	h := newTestHandler(endpoints.Table{"xray": upstream.URL})
	rec := get(t, h, "/api/xray")

	// An upstream response that could be read relays as 200, whatever its
	// own status code was.
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/xray status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); !strings.Contains(body, "upstream exploded") {
		t.Errorf("GET /api/xray body = %q, want upstream error body passed through", body)
	}
}

func TestQueryStringIgnored(t *testing.T) {
	var calls int64
	var gotQuery atomic.Value
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		gotQuery.Store(r.URL.RawQuery)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer upstream.Close()

	h := newTestHandler(endpoints.Table{"kindex": upstream.URL})
	rec := get(t, h, "/api/kindex?refresh=1&t=12345")

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/kindex?refresh=1 status = %d, want %d", rec.Code, http.StatusOK)
	}
	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
	if q := gotQuery.Load(); q != "" {
		t.Errorf("upstream query = %q, want empty", q)
	}
}

func TestOutboundUserAgent(t *testing.T) {
	var gotUA atomic.Value
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer upstream.Close()

	h := newTestHandler(endpoints.Table{"sunspots": upstream.URL})
	get(t, h, "/api/sunspots")

	if ua := gotUA.Load(); ua != "OpenHamClock/1.0" {
		t.Errorf("outbound User-Agent = %q, want %q", ua, "OpenHamClock/1.0")
	}
}

func TestUpstreamConnectionRefused(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := upstream.URL
	upstream.Close()

	h := newTestHandler(endpoints.Table{"bands": url})
	rec := get(t, h, "/api/bands")

	if rec.Code != http.StatusBadGateway {
		t.Errorf("GET /api/bands status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if body := rec.Body.String(); !strings.Contains(body, "Failed to fetch data") {
		t.Errorf("GET /api/bands body = %q, want fetch error text", body)
	}
}

func TestMalformedUpstreamURL(t *testing.T) {
	h := newTestHandler(endpoints.Table{"bad": "://not-a-url"})
	rec := get(t, h, "/api/bad")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("GET /api/bad status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestUpstreamTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("timeout test sleeps")
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer upstream.Close()

	cfg := &config.Config{}
	cfg.Proxy.FetchTimeout = 1
	cfg.SetDefaults()
	table := endpoints.Table{"kindex": upstream.URL}
	h := NewHandler(table, cfg, metrics.NewCollector(func() int { return len(table) }))

	rec := get(t, h, "/api/kindex")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("GET /api/kindex status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestConcurrentEndpointsDoNotInterfere(t *testing.T) {
	kindexUpstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"feed":"kindex"}`))
	}))
	defer kindexUpstream.Close()
	xrayUpstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"feed":"xray"}`))
	}))
	defer xrayUpstream.Close()

	h := newTestHandler(endpoints.Table{
		"kindex": kindexUpstream.URL,
		"xray":   xrayUpstream.URL,
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		name := "kindex"
		if i%2 == 1 {
			name = "xray"
		}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/"+name, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("GET /api/%s status = %d, want %d", name, rec.Code, http.StatusOK)
				return
			}
			want := `{"feed":"` + name + `"}`
			if got := rec.Body.String(); got != want {
				t.Errorf("GET /api/%s body = %q, want %q", name, got, want)
			}
		}(name)
	}
	wg.Wait()
}
