package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haguru/bookshelf/pkg/zerolog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(name, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add(name, value)
			next.ServeHTTP(w, r)
		})
	}
}

func TestServer_RoutesAndMiddleware(t *testing.T) {
	s := NewServer("localhost", "0", zerolog.NewJSONLogger(io.Discard, "test")).(*Server)

	require.NoError(t, s.AddRoute("GET /books/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.PathValue("id")))
	}))
	assert.Error(t, s.AddRoute("", nil))

	s.Use(header("X-Order", "outer"))
	s.Use(header("X-Order", "inner"))

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/books/id1", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "id1", rr.Body.String())
	assert.Equal(t, []string{"outer", "inner"}, rr.Header().Values("X-Order"))
}

func TestNewServer_Addr(t *testing.T) {
	s := NewServer("localhost", "8080", zerolog.NewJSONLogger(io.Discard, "test")).(*Server)
	assert.Equal(t, "localhost:8080", s.server.Addr)
}

func TestServer_ShutdownBeforeServe(t *testing.T) {
	s := NewServer("localhost", "0", zerolog.NewJSONLogger(io.Discard, "test"))

	require.NoError(t, s.Shutdown(context.Background()))
	// a shut down server refuses to start, without reporting an error
	assert.NoError(t, s.ListenAndServe())
}
