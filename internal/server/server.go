package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/haguru/bookshelf/internal/interfaces"
)

var (
	ReadTimeout  = 10 * time.Second
	WriteTimeout = 10 * time.Second
	IdleTimeout  = 30 * time.Second
)

type Server struct {
	Port        string
	Host        string
	server      *http.Server
	mux         *http.ServeMux
	middlewares []func(http.Handler) http.Handler
	Logger      interfaces.Logger
}

// NewServer creates a new Server instance with the specified host and port.
func NewServer(host, port string, logger interfaces.Logger) interfaces.Server {
	mux := http.NewServeMux()
	server := &http.Server{
		Addr:         net.JoinHostPort(host, port),
		Handler:      mux,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	return &Server{
		Host:   host,
		Port:   port,
		server: server,
		mux:    mux,
		Logger: logger,
	}
}

// AddRoute registers handler for route, a ServeMux pattern such as "GET /books/{id}".
func (s *Server) AddRoute(route string, handler func(w http.ResponseWriter, r *http.Request)) error {
	if route == "" {
		return errors.New("route pattern is empty")
	}
	s.mux.HandleFunc(route, handler)
	s.Logger.Info("Route added", "route", route)
	return nil
}

// Use wraps every route in middleware. The first middleware added is the outermost.
func (s *Server) Use(middleware func(http.Handler) http.Handler) {
	s.middlewares = append(s.middlewares, middleware)

	var handler http.Handler = s.mux
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		handler = s.middlewares[i](handler)
	}
	s.server.Handler = handler
}

// ListenAndServe starts the HTTP server and blocks until it stops.
// A stop caused by Shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.Logger.Info("Starting server", "host", s.Host, "port", s.Port)
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.Logger.Error("Failed to start server", "error", err)
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("Shutting down server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// Handler returns the root handler, middlewares included.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
