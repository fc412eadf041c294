package metrics

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Failure reasons (low cardinality)
const (
	ReasonUnknownEndpoint = "unknown_endpoint"
	ReasonUpstream        = "upstream"
	ReasonInternal        = "internal"
)

// Version reported by the info metric.
const Version = "1.0"

// Collector Prometheus metrics collector
type Collector struct {
	GetEndpointCount func() int

	// Info metric (always 1)
	serverInfo *prometheus.Desc

	// Endpoint table metrics
	endpointsTotal *prometheus.Desc

	// Proxy metrics
	proxyRequestsTotal *prometheus.Desc
	proxyFailuresTotal *prometheus.Desc
	proxyLatencySum    *prometheus.Desc
	proxyLatencyCount  *prometheus.Desc

	// Static file metrics
	staticRequestsTotal *prometheus.Desc

	// Metrics counters (protected by mutex)
	metricsLock     sync.RWMutex
	requestsCount   map[string]float64
	failuresCount   map[string]float64 // keyed by "endpoint:reason"
	latencySumMap   map[string]float64
	latencyCountMap map[string]float64
	staticRequestsN float64
}

// NewCollector creates a new metrics collector
func NewCollector(getEndpointCount func() int) *Collector {
	return &Collector{
		GetEndpointCount: getEndpointCount,
		serverInfo: prometheus.NewDesc(
			"hamclock_devserver_info",
			"Development server info metric (always 1)",
			[]string{"version"},
			nil,
		),
		endpointsTotal: prometheus.NewDesc(
			"hamclock_devserver_endpoints",
			"Number of entries in the endpoint table",
			nil,
			nil,
		),
		proxyRequestsTotal: prometheus.NewDesc(
			"hamclock_devserver_proxy_requests_total",
			"Total proxy fetch attempts by endpoint name",
			[]string{"endpoint"},
			nil,
		),
		proxyFailuresTotal: prometheus.NewDesc(
			"hamclock_devserver_proxy_failures_total",
			"Total failed proxy requests by endpoint name and reason",
			[]string{"endpoint", "reason"},
			nil,
		),
		proxyLatencySum: prometheus.NewDesc(
			"hamclock_devserver_proxy_latency_seconds_sum",
			"Cumulative upstream fetch duration by endpoint name (successful fetches)",
			[]string{"endpoint"},
			nil,
		),
		proxyLatencyCount: prometheus.NewDesc(
			"hamclock_devserver_proxy_latency_seconds_count",
			"Number of successful upstream fetches by endpoint name",
			[]string{"endpoint"},
			nil,
		),
		staticRequestsTotal: prometheus.NewDesc(
			"hamclock_devserver_static_requests_total",
			"Total static file requests served",
			nil,
			nil,
		),
		requestsCount:   make(map[string]float64),
		failuresCount:   make(map[string]float64),
		latencySumMap:   make(map[string]float64),
		latencyCountMap: make(map[string]float64),
	}
}

// RecordProxyRequest records a resolved proxy fetch attempt
func (c *Collector) RecordProxyRequest(endpoint string) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.requestsCount[endpoint]++
}

// RecordProxyFailure records a failed proxy request
func (c *Collector) RecordProxyFailure(endpoint, reason string) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	key := fmt.Sprintf("%s:%s", endpoint, reason)
	c.failuresCount[key]++
}

// RecordProxyLatency records the duration of a successful upstream fetch
func (c *Collector) RecordProxyLatency(endpoint string, duration time.Duration) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.latencySumMap[endpoint] += duration.Seconds()
	c.latencyCountMap[endpoint]++
}

// RecordStaticRequest records a request served by the static file server
func (c *Collector) RecordStaticRequest() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.staticRequestsN++
}

// Describe implements prometheus.Collector interface
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.serverInfo
	ch <- c.endpointsTotal
	ch <- c.proxyRequestsTotal
	ch <- c.proxyFailuresTotal
	ch <- c.proxyLatencySum
	ch <- c.proxyLatencyCount
	ch <- c.staticRequestsTotal
}

// Collect implements prometheus.Collector interface
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		c.serverInfo,
		prometheus.GaugeValue,
		1,
		Version,
	)

	ch <- prometheus.MustNewConstMetric(
		c.endpointsTotal,
		prometheus.GaugeValue,
		float64(c.GetEndpointCount()),
	)

	// Collect metrics from counters
	c.metricsLock.RLock()
	defer c.metricsLock.RUnlock()

	for endpoint, value := range c.requestsCount {
		ch <- prometheus.MustNewConstMetric(
			c.proxyRequestsTotal,
			prometheus.CounterValue,
			value,
			endpoint,
		)
	}

	for key, value := range c.failuresCount {
		parts := strings.SplitN(key, ":", 2)
		if len(parts) != 2 {
			continue
		}
		ch <- prometheus.MustNewConstMetric(
			c.proxyFailuresTotal,
			prometheus.CounterValue,
			value,
			parts[0], parts[1],
		)
	}

	for endpoint, value := range c.latencySumMap {
		ch <- prometheus.MustNewConstMetric(
			c.proxyLatencySum,
			prometheus.CounterValue,
			value,
			endpoint,
		)
	}

	for endpoint, value := range c.latencyCountMap {
		ch <- prometheus.MustNewConstMetric(
			c.proxyLatencyCount,
			prometheus.CounterValue,
			value,
			endpoint,
		)
	}

	ch <- prometheus.MustNewConstMetric(
		c.staticRequestsTotal,
		prometheus.CounterValue,
		c.staticRequestsN,
	)
}
