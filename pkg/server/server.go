package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hamclock-devserver/pkg/config"
	"github.com/hamclock-devserver/pkg/endpoints"
	"github.com/hamclock-devserver/pkg/logging"
	"github.com/hamclock-devserver/pkg/metrics"
	"github.com/hamclock-devserver/pkg/proxy"
)

// DevServer serves the static client and the /api/ proxy from one listener.
type DevServer struct {
	cfg        *config.Config
	table      endpoints.Table
	collector  *metrics.Collector
	registry   *prometheus.Registry
	httpServer *http.Server
}

// NewDevServer creates a new development server
func NewDevServer(cfg *config.Config) (*DevServer, error) {
	registry := prometheus.NewRegistry()
	table := endpoints.Default()

	server := &DevServer{
		cfg:      cfg,
		table:    table,
		registry: registry,
	}

	collector := metrics.NewCollector(func() int {
		return len(table)
	})
	server.collector = collector
	registry.MustRegister(collector)

	// Requests under the reserved prefix go to the proxy, everything else
	// falls through to the static file server.
	router := mux.NewRouter()
	router.PathPrefix(proxy.Prefix).Handler(proxy.NewHandler(table, cfg, collector)).Methods("GET")
	router.PathPrefix("/").Handler(server.accessLog(http.FileServer(http.Dir(cfg.Server.Root)))).Methods("GET", "HEAD")

	server.httpServer = &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	return server, nil
}

// accessLog logs static requests. Proxy requests are logged inside the proxy
// handler (with the resolved upstream URL) and never reach this middleware,
// so they don't show up twice.
func (s *DevServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.collector.RecordStaticRequest()
		logging.Logf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// Run starts the listener and blocks until ctx is cancelled or the listener
// fails. A cancelled context triggers a graceful shutdown and a nil return.
func (s *DevServer) Run(ctx context.Context) error {
	s.printBanner()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Errorf("Shutdown: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to listen on %s: %v", s.httpServer.Addr, err)
	}

	logging.Log("Server stopped.")
	return nil
}

func (s *DevServer) printBanner() {
	root, err := filepath.Abs(s.cfg.Server.Root)
	if err != nil {
		root = s.cfg.Server.Root
	}

	rule := strings.Repeat("=", 50)
	fmt.Println(rule)
	fmt.Println("  OpenHamClock Development Server")
	fmt.Println(rule)
	fmt.Println()
	fmt.Printf("  Serving from: %s\n", root)
	fmt.Printf("  URL: http://localhost:%d\n", s.cfg.Server.Port)
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()
	fmt.Println("  Available API endpoints:")
	for _, name := range s.table.Names() {
		fmt.Printf("    %s%s\n", proxy.Prefix, name)
	}
	fmt.Println()
	fmt.Println(rule)
	fmt.Println()
}

// StartMetricsServer starts the telemetry listener
func (s *DevServer) StartMetricsServer(metricsAddr, metricsPath string) error {
	telemetry := http.NewServeMux()
	telemetry.Handle(metricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	telemetry.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	telemetry.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
<head><title>OpenHamClock Dev Server</title></head>
<body>
<h1>OpenHamClock Dev Server</h1>
<p><a href="` + metricsPath + `">Metrics</a></p>
</body>
</html>`))
	})

	logging.Logf("[listen] telemetry addr=%s path=%s health=/healthz", metricsAddr, metricsPath)
	return http.ListenAndServe(metricsAddr, telemetry)
}
