package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/receptionist-onboarding/internal/config"
	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
	"github.com/JakeFAU/receptionist-onboarding/internal/dispatcher"
	"github.com/JakeFAU/receptionist-onboarding/internal/metrics"
	"github.com/JakeFAU/receptionist-onboarding/internal/onboarding"
)

const (
	requestTimeout = 60 * time.Second
	enqueueTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

// ReadyFunc reports whether downstream dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

// Server wires HTTP handlers to the dispatcher and job store.
type Server struct {
	router     chi.Router
	jobStore   onboarding.JobStore
	dispatcher *dispatcher.Dispatcher
	idGen      onboarding.IDGenerator
	clock      onboarding.Clock
	cfg        config.Config
	ready      ReadyFunc
	logger     *zap.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithReadyCheck makes /readyz run check before reporting ready.
func WithReadyCheck(check ReadyFunc) Option {
	return func(s *Server) {
		s.ready = check
	}
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	jobStore onboarding.JobStore,
	dispatcher *dispatcher.Dispatcher,
	idGen onboarding.IDGenerator,
	clock onboarding.Clock,
	cfg config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		jobStore:   jobStore,
		dispatcher: dispatcher,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Route("/imports", func(r chi.Router) {
			r.Post("/", s.submitImport)
			r.Get("/{job_id}", s.getImport)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			s.writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type importRequest struct {
	BusinessID   string   `json:"business_id"`
	URL          string   `json:"url"`
	ForcedPaths  []string `json:"forced_paths"`
	ExcludePaths []string `json:"exclude_paths"`
	MaxPages     *int     `json:"max_pages"`
	MaxDepth     *int     `json:"max_depth"`
}

func (s *Server) submitImport(w http.ResponseWriter, r *http.Request) {
	var body importRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req, err := s.toRequest(body)
	if err != nil {
		if errors.Is(err, onboarding.ErrInvalidURL) {
			s.writeErrorCode(w, http.StatusBadRequest, onboarding.CodeInvalidURL, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobID, err := s.enqueueImport(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		s.logger.Error("enqueue import failed", zap.String("business_id", req.BusinessID), zap.Error(err))
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) getImport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, onboarding.ErrJobNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Error("get job failed", zap.String("job_id", jobID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) toRequest(body importRequest) (onboarding.Request, error) {
	businessID := strings.TrimSpace(body.BusinessID)
	if businessID == "" {
		return onboarding.Request{}, errors.New("business_id required")
	}
	if _, err := crawler.ParseBaseURL(body.URL); err != nil {
		return onboarding.Request{}, fmt.Errorf("%w: %w", onboarding.ErrInvalidURL, err)
	}
	maxPages := valueOrDefault(body.MaxPages, s.cfg.Crawler.MaxPagesDefault)
	maxDepth := valueOrDefault(body.MaxDepth, s.cfg.Crawler.MaxDepthDefault)
	if maxPages <= 0 {
		return onboarding.Request{}, errors.New("max_pages must be > 0")
	}
	if maxDepth < 0 {
		return onboarding.Request{}, errors.New("max_depth must be >= 0")
	}
	return onboarding.Request{
		BusinessID:   businessID,
		URL:          strings.TrimSpace(body.URL),
		ForcedPaths:  cloneStringSlice(body.ForcedPaths),
		ExcludePaths: cloneStringSlice(body.ExcludePaths),
		MaxPages:     maxPages,
		MaxDepth:     maxDepth,
	}, nil
}

func (s *Server) enqueueImport(ctx context.Context, req onboarding.Request) (string, error) {
	jobID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	now := s.clock.Now()
	job := onboarding.Job{
		ID:        jobID,
		Status:    onboarding.JobStatusQueued,
		Submitted: now,
		Request:   req,
	}
	if err := s.jobStore.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	item := onboarding.QueueItem{
		JobID:     jobID,
		Request:   req,
		Submitted: now.Unix(),
	}
	if err := s.dispatcher.Enqueue(queueCtx, item); err != nil {
		if uerr := s.jobStore.UpdateJobStatus(
			context.WithoutCancel(ctx),
			jobID,
			onboarding.JobStatusFailed,
			onboarding.CodeInternal,
			"enqueue failed",
			nil,
		); uerr != nil {
			s.logger.Warn("mark unqueued job failed", zap.String("job_id", jobID), zap.Error(uerr))
		}
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return jobID, nil
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

func cloneStringSlice(src []string) []string {
	if len(src) == 0 {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request id stored by the middleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("request_id", RequestID(r.Context())),
						zap.Any("panic", rec),
					)
					writeJSON(logger, w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeJSON(zap.NewNop(), w, http.StatusForbidden, errorBody{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorBody struct {
	Error string          `json:"error"`
	Code  onboarding.Code `json:"code,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(s.logger, w, status, payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(s.logger, w, status, errorBody{Error: msg})
}

func (s *Server) writeErrorCode(w http.ResponseWriter, status int, code onboarding.Code, msg string) {
	writeJSON(s.logger, w, status, errorBody{Error: msg, Code: code})
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}
