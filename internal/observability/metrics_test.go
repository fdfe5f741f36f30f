package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddleware_CountsByStatusClass(t *testing.T) {
	before2xx := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, "2xx"))
	before4xx := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, "4xx"))

	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/ok", "/ok", "/missing"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	after2xx := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, "2xx"))
	after4xx := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, "4xx"))
	assert.Equal(t, float64(2), after2xx-before2xx)
	assert.Equal(t, float64(1), after4xx-before4xx)
}

func TestMetricsMiddleware_DefaultStatusIs200(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodPost, "2xx"))

	// Handler writes a body without an explicit WriteHeader.
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("ok"))
		require.NoError(t, err)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	after := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodPost, "2xx"))
	assert.Equal(t, float64(1), after-before)
}

func TestStatusWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.WriteHeader(http.StatusBadGateway)
	sw.WriteHeader(http.StatusOK)

	assert.Equal(t, http.StatusBadGateway, sw.status)
}
