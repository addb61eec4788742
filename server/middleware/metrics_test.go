package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/teilomillet/kotoba/server/metrics"
	"github.com/teilomillet/kotoba/server/middleware"
)

func TestPrometheusMetrics(t *testing.T) {
	m := metrics.NewMetrics()

	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectedCode   int
		expectedPath   string
		expectedStatus string
	}{
		{
			name: "success request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			expectedCode:   http.StatusOK,
			expectedPath:   "/",
			expectedStatus: "200",
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			expectedCode:   http.StatusBadRequest,
			expectedPath:   "/",
			expectedStatus: "400",
		},
		{
			name: "error request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectedCode:   http.StatusInternalServerError,
			expectedPath:   "/",
			expectedStatus: "500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.PrometheusMetrics(m)(tt.handler)
			server := httptest.NewServer(handler)
			defer server.Close()

			resp, err := http.Get(server.URL)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedCode, resp.StatusCode)

			requestCount := testutil.ToFloat64(m.RequestsTotal.WithLabelValues(tt.expectedPath, tt.expectedStatus))
			assert.Equal(t, float64(1), requestCount)

			// Active requests drop back to 0 once the request completes
			assert.Equal(t, float64(0), testutil.ToFloat64(m.ActiveRequests.WithLabelValues("all")))

			// Failed requests are counted by status only
			assert.Equal(t, 0, testutil.CollectAndCount(m.ErrorsTotal))
		})
	}
}

func TestPrometheusMetricsRoutePattern(t *testing.T) {
	m := metrics.NewMetrics()

	r := chi.NewRouter()
	r.Use(middleware.PrometheusMetrics(m))
	r.Post("/webhook", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/webhook", nil))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/wp-admin/login.php", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/webhook", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("unmatched", "404")))
}
