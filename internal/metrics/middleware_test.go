package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/api/predict", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/predict", nil))

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")); val < 1 {
		t.Errorf("expected GET 200 to be counted, got %f", val)
	}
	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "400")); val < 1 {
		t.Errorf("expected POST 400 to be counted, got %f", val)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSeconds); val <= 0 {
		t.Errorf("expected request durations to be observed, got %d", val)
	}
}

func TestGatewayCounters(t *testing.T) {
	Init()

	ObserveUploadRejected("too_large")
	ObserveUploadRejected("too_large")
	ObserveClassification("classified")

	if val := testutil.ToFloat64(uploadsRejectedTotal.WithLabelValues("too_large")); val < 2 {
		t.Errorf("expected rejection counter >= 2, got %f", val)
	}
	if val := testutil.ToFloat64(classificationsTotal.WithLabelValues("classified")); val < 1 {
		t.Errorf("expected classification counter >= 1, got %f", val)
	}
}
