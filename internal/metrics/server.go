package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/busybox42/qstat/internal/logging"
)

// Server serves an exporter over HTTP.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     logging.Logger
}

// Handler builds the router exposing /metrics and /healthz.
func (e *Exporter) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})).Methods("GET")
	r.HandleFunc("/healthz", e.handleHealth).Methods("GET")
	return r
}

func (e *Exporter) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := map[string]interface{}{"status": "ok"}
	if last := e.LastPoll(); !last.IsZero() {
		status["last_poll"] = last.UTC().Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// StartServer binds addr and serves the exporter in the background. Bind
// failures are returned immediately.
func StartServer(addr string, exporter *Exporter, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener on %s: %w", addr, err)
	}

	s := &Server{
		httpServer: &http.Server{
			Handler:           exporter.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
		logger:   logger.WithField("component", "metrics"),
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", logging.F("error", err))
		}
	}()

	s.logger.Info("metrics server listening", logging.F("addr", ln.Addr().String()))
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
