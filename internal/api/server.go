// Package api exposes the HTTP interface for the image gateway.
package api

import (
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"imagegate/internal/classify"
	"imagegate/internal/config"
	"imagegate/internal/metrics"
	"imagegate/internal/upload"
)

// formFieldImage is the multipart field both routes read the upload from.
const formFieldImage = "image"

// multipartOverhead is the slack allowed on top of the payload limit for
// multipart boundaries and part headers, so a payload of exactly the
// configured maximum is not rejected by the body cap.
const multipartOverhead = 64 << 10

// Server wires HTTP handlers to the validator and classifier adapter.
type Server struct {
	router    chi.Router
	validator *upload.Validator
	adapter   *classify.Adapter
	formatter *Formatter
	logger    *zap.Logger
	tmpl      *template.Template
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	validator *upload.Validator,
	adapter *classify.Adapter,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	metrics.Init()

	s := &Server{
		validator: validator,
		adapter:   adapter,
		formatter: NewFormatter(cfg.Upload.MaxBytes),
		logger:    logger,
		tmpl:      parsePageTemplate(),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.bodyLimitMiddleware)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/", s.index)
	r.Post("/", s.pagePredict)
	r.Post("/api/predict", s.apiPredict)

	r.NotFound(s.notFoundHandler)
	r.MethodNotAllowed(s.methodNotAllowedHandler)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// index renders the upload page with no result.
func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	s.renderPage(w, PageData{})
}

// pagePredict handles the form submission. The page policy always
// answers 200 with either a result or a curated error string.
func (s *Server) pagePredict(w http.ResponseWriter, r *http.Request) {
	v := s.validator.FromRequest(r, formFieldImage)
	if v.Kind != upload.Valid {
		s.rejectUpload(v.Kind)
		s.renderPage(w, s.formatter.PageRejection(v.Kind))
		return
	}

	out := s.adapter.Classify(r.Context(), v.Payload)
	metrics.ObserveClassification(out.Kind.String())
	s.renderPage(w, s.formatter.PageOutcome(out, v.Filename))
}

// apiPredict handles the JSON API. Statuses follow the API policy:
// 400/413 for rejected uploads, 200 for a classification, 400 for an
// anomalous image, 500 for a classifier failure.
func (s *Server) apiPredict(w http.ResponseWriter, r *http.Request) {
	v := s.validator.FromRequest(r, formFieldImage)
	if v.Kind != upload.Valid {
		s.rejectUpload(v.Kind)
		status, body := s.formatter.APIRejection(v.Kind)
		writeJSON(w, s.logger, status, body)
		return
	}

	out := s.adapter.Classify(r.Context(), v.Payload)
	metrics.ObserveClassification(out.Kind.String())
	status, body := s.formatter.APIOutcome(out)
	writeJSON(w, s.logger, status, body)
}

func (s *Server) rejectUpload(kind upload.Kind) {
	s.logger.Error(s.formatter.RejectionMessage(kind), zap.Stringer("reason", kind))
	metrics.ObserveUploadRejected(kind.String())
}

// bodyLimitMiddleware caps the request body so an oversized upload is
// rejected before it is fully buffered.
func (s *Server) bodyLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.validator.MaxBytes()+multipartOverhead)
		}
		next.ServeHTTP(w, r)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
