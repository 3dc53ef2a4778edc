package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/MimeLyc/novel-chapter-translator/internal/events"
	"github.com/MimeLyc/novel-chapter-translator/internal/service"
)

// tickRunner lets operators force a scheduler pass without waiting for cron.
type tickRunner interface {
	Tick(ctx context.Context) error
}

type Server struct {
	jobs     *service.JobService
	ticker   tickRunner
	bus      *events.Bus
	apiToken string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithAPIToken enables bearer-token auth on every endpoint.
func WithAPIToken(token string) Option {
	return func(s *Server) {
		s.apiToken = token
	}
}

func NewServer(jobService *service.JobService, ticker tickRunner, bus *events.Bus, opts ...Option) *Server {
	s := &Server{
		jobs:   jobService,
		ticker: ticker,
		bus:    bus,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.authenticated(s.mux)
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/jobs", s.handleCreateJob)
	s.mux.HandleFunc("/api/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/api/jobs/", s.handleJobByID)
	s.mux.HandleFunc("/api/scheduler/tick", s.handleTick)
}

// authenticated enforces the configured bearer token. Without a token the
// API is open, which is only sensible behind a trusted proxy.
func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token != s.apiToken {
			writeError(w, http.StatusForbidden, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
