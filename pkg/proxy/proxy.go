// Package proxy implements the /api/ handler that forwards allow-listed
// requests to their upstream data feeds, adding permissive CORS and caching
// headers so a browser client can use them during local development.
package proxy

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hamclock-devserver/pkg/config"
	"github.com/hamclock-devserver/pkg/endpoints"
	"github.com/hamclock-devserver/pkg/logging"
	"github.com/hamclock-devserver/pkg/metrics"
)

// Prefix is the reserved path prefix that routes a request to the proxy
// instead of the static file server.
const Prefix = "/api/"

// Handler resolves GET /api/<name> against the endpoint table, performs a
// single outbound GET with a hard timeout and relays the result. Stateless
// between requests; the table and the http.Client are safe for concurrent use.
type Handler struct {
	table     endpoints.Table
	client    *http.Client
	userAgent string
	collector *metrics.Collector
}

// NewHandler creates a proxy handler over the given endpoint table.
func NewHandler(table endpoints.Table, cfg *config.Config, collector *metrics.Collector) *Handler {
	return &Handler{
		table:     table,
		client:    &http.Client{Timeout: cfg.GetFetchTimeout()},
		userAgent: cfg.Proxy.UserAgent,
		collector: collector,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The query string is ignored: upstream URLs are fixed and take no
	// caller input.
	name := strings.TrimPrefix(r.URL.Path, Prefix)

	url, ok := h.table.Resolve(name)
	if !ok {
		// Unknown names share one label value (unbounded cardinality otherwise).
		h.collector.RecordProxyFailure("other", metrics.ReasonUnknownEndpoint)
		http.Error(w, fmt.Sprintf("Unknown API endpoint: %s", name), http.StatusNotFound)
		return
	}

	h.collector.RecordProxyRequest(name)
	logging.Logf("Fetching: %s", url)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		h.collector.RecordProxyFailure(name, metrics.ReasonInternal)
		logging.Errorf("%v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	req.Header.Set("User-Agent", h.userAgent)

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.fetchError(w, name, err)
		return
	}
	defer resp.Body.Close()

	// Read the whole body before writing anything, so a mid-stream failure
	// surfaces as a clean 502 instead of a truncated 200.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.fetchError(w, name, err)
		return
	}
	h.collector.RecordProxyLatency(name, time.Since(start))

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	// Known quirk: the upstream status code is not forwarded. Any response
	// that could be read is relayed as 200, upstream 4xx/5xx included, with
	// the body passed through verbatim.
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "max-age=60")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// fetchError reports an upstream transport failure (DNS, connection refused,
// timeout, unreadable body) as 502.
func (h *Handler) fetchError(w http.ResponseWriter, name string, err error) {
	h.collector.RecordProxyFailure(name, metrics.ReasonUpstream)
	logging.Errorf("Failed to fetch %s: %v", name, err)
	http.Error(w, fmt.Sprintf("Failed to fetch data: %v", err), http.StatusBadGateway)
}
