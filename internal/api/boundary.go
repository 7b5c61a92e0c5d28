package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// failureKind is the closed set of failures the boundary recognizes.
// Anything else falls through to failureInternal.
type failureKind int

const (
	failureNotFound failureKind = iota
	failureMethodNotAllowed
	failureTooLarge
	failureInternal
)

// failure is an HTTP-level failure escaping the normal handler flow.
type failure struct {
	kind    failureKind
	details string
}

// respondFailure is the last-resort interception point: it logs the
// failure and converts it into a uniform JSON error response. It never
// lets a bare unstructured failure reach the client.
func (s *Server) respondFailure(w http.ResponseWriter, f failure) {
	switch f.kind {
	case failureNotFound:
		// The original description is dropped on purpose.
		s.logger.Error("route not found", zap.String("details", f.details))
		writeJSON(w, s.logger, http.StatusNotFound, errorBody{Error: msgNotFound})
	case failureMethodNotAllowed:
		s.logger.Error("method not allowed", zap.String("details", f.details))
		writeJSON(w, s.logger, http.StatusMethodNotAllowed, errorBody{Error: "Method Not Allowed"})
	case failureTooLarge:
		s.logger.Error("request body too large", zap.String("details", f.details))
		writeJSON(w, s.logger, http.StatusRequestEntityTooLarge,
			errorBody{Error: s.formatter.tooLargeMessage()})
	default:
		s.logger.Error("unhandled failure", zap.String("details", f.details))
		writeJSON(w, s.logger, http.StatusInternalServerError,
			errorBody{Error: msgUnexpected, Details: f.details})
	}
}

// recoverMiddleware converts panics into the boundary's internal failure.
// The panic value's string form goes into the response; the stack trace
// only goes to the log.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
				)
				s.respondFailure(w, failure{kind: failureInternal, details: fmt.Sprint(rec)})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.respondFailure(w, failure{kind: failureNotFound, details: r.Method + " " + r.URL.Path})
}

func (s *Server) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	s.respondFailure(w, failure{kind: failureMethodNotAllowed, details: r.Method + " " + r.URL.Path})
}
