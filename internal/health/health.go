package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

// Pinger checks bus connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status supplies the node details reported alongside connectivity.
type Status interface {
	InstanceName() string
	Counters() (delivered, failed int64)
}

// Server provides HTTP health check endpoints for a node.
type Server struct {
	pinger Pinger
	status Status
	addr   string
	server *http.Server
}

// NewServer creates a new health check server listening on addr.
func NewServer(pinger Pinger, status Status, addr string) *Server {
	return &Server{
		pinger: pinger,
		status: status,
		addr:   addr,
	}
}

// Handler returns the health mux, for embedding or tests.
func (h *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthCheckHandler)
	return mux
}

// Start binds the listener and serves in the background.
// Bind errors are returned; serve errors after that are logged.
func (h *Server) Start() error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to bind health server on %s: %w", h.addr, err)
	}

	h.server = &http.Server{
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] Health server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the health check server.
func (h *Server) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// Response is the JSON response structure for health checks.
type Response struct {
	Status    string `json:"status"`
	Instance  string `json:"instance"`
	Redis     string `json:"redis,omitempty"`
	Delivered int64  `json:"delivered"`
	Failed    int64  `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// healthCheckHandler handles GET /healthz requests.
// Returns 200 OK if Redis is accessible, 503 Service Unavailable otherwise.
func (h *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	delivered, failed := h.status.Counters()
	response := Response{
		Status:    "healthy",
		Instance:  h.status.InstanceName(),
		Redis:     "connected",
		Delivered: delivered,
		Failed:    failed,
	}
	code := http.StatusOK

	if err := h.pinger.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Redis = "disconnected"
		response.Error = err.Error()
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}
