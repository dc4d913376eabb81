package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewHTTPMetrics("simrig", registry)

	r := chi.NewRouter()
	r.Use(HTTPObs{Metrics: metrics}.Middleware)
	r.Post("/api/v1/products/{id}/price", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/products/abc/price", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodPost, "/api/v1/products/{id}/price", "204"))
	require.Equal(t, float64(1), total)
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestNewHTTPMetricsReusesRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := NewHTTPMetrics("simrig", registry)
	second := NewHTTPMetrics("simrig", registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestRequestLoggerLevelsAndContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "debug")

	var sawCtxLogger bool
	h := RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawCtxLogger = zerolog.Ctx(r.Context()).GetLevel() != zerolog.Disabled
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/shipping/quote", nil))
	require.True(t, sawCtxLogger)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "warn", line["level"])
	require.Equal(t, float64(http.StatusUnprocessableEntity), line["status"])
	require.Equal(t, "/api/v1/shipping/quote", line["route"])
}

func TestDomainMetricsHelpers(t *testing.T) {
	registry := prometheus.NewRegistry()
	MustRegisterDomainMetrics("simrig_test", registry)

	ObservePricing("ok")
	ObserveShippingQuote("Baleares", "paid")
	ObserveReconciliation("mismatch")
	ObserveOrderPlaced()
	ObserveCatalogCache("zones", true)

	require.Equal(t, float64(1), testutil.ToFloat64(PricingSelectionsTotal.WithLabelValues("ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(ShippingQuotesTotal.WithLabelValues("Baleares", "paid")))
	require.Equal(t, float64(1), testutil.ToFloat64(OrderReconciliationsTotal.WithLabelValues("mismatch")))
	require.Equal(t, float64(1), testutil.ToFloat64(OrdersPlacedTotal))
	require.Equal(t, float64(1), testutil.ToFloat64(CatalogCacheTotal.WithLabelValues("zones", "hit")))
}

func TestPGXTracerWithoutProvider(t *testing.T) {
	ctx := PGXTracer{}.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	require.NotNil(t, ctx)
	PGXTracer{}.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})
}
