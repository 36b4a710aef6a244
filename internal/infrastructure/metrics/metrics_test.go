package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(doorbellRings.WithLabelValues("deduplicated"))
	RecordDoorbellRing(true)
	assert.Equal(t, before+1, testutil.ToFloat64(doorbellRings.WithLabelValues("deduplicated")))

	routed := testutil.ToFloat64(doorbellRouted)
	RecordDoorbellRouted(3)
	assert.Equal(t, routed+3, testutil.ToFloat64(doorbellRouted))

	RecordDeviceCommand("esp", false)
	assert.GreaterOrEqual(t, testutil.ToFloat64(deviceCommands.WithLabelValues("esp", "false")), 1.0)
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	done := RequestStarted("GET", "/api/ping")
	done(200)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `estatehub_http_requests_total{method="GET",path="/api/ping",status="200"}`)
}
