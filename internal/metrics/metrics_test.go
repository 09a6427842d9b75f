package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrument_CountsByRouteAndStatus(t *testing.T) {
	m := New(prometheus.NewRegistry())
	h := m.Instrument("DELETE /api/tax/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/tax/1", nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.httpRequests.WithLabelValues("DELETE /api/tax/{id}", "403")))
}

func TestDomainCounters(t *testing.T) {
	m := New(nil)
	m.TaxCalculated("corporation")
	m.FileUploaded(512)
	m.FileUploaded(512)
	m.OrphansSwept(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.taxCalculations.WithLabelValues("corporation")))
	assert.Equal(t, float64(1024), testutil.ToFloat64(m.uploadedBytes))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.sweptBlobs))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.TaxCalculated("individual")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `taxmanager_tax_calculations_total{type="individual"} 1`))
}

func TestInstrument_ExposesUnderlyingWriter(t *testing.T) {
	m := New(nil)
	h := m.Instrument("GET /api/files/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, http.NewResponseController(w).Flush())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/files/1", nil))

	assert.True(t, w.Flushed)
}
