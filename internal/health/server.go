package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/john/tmichat/internal/twitch"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is what the health endpoint reports on
type Status interface {
	State() twitch.State
	AwaitingAck() time.Duration
}

type report struct {
	State              string  `json:"state"`
	AwaitingAckSeconds float64 `json:"awaiting_ack_seconds"`
}

// Server provides HTTP health check and metrics endpoints
type Server struct {
	server *http.Server
}

// New creates a new health check server
func New(addr string, status Status) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		state := status.State()
		body := report{
			State:              state.String(),
			AwaitingAckSeconds: status.AwaitingAck().Seconds(),
		}

		w.Header().Set("Content-Type", "application/json")
		if state != twitch.Connected {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Printf("Error writing health response: %v", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the routes, for embedding or tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	log.Printf("Health check server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down health check server...")
	return s.server.Shutdown(ctx)
}
