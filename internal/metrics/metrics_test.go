package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getMetricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_New(t *testing.T) {
	m := New()
	assert.NotNil(t, m.DecisionsTotal)
	assert.NotNil(t, m.ConfigChangesTotal)
	assert.NotNil(t, m.ActiveTenants)
	assert.NotNil(t, m.RequestsTotal)
	assert.NotNil(t, m.ErrorsTotal)
	assert.NotNil(t, m.Registry())
}

func TestMetrics_RecordDecision(t *testing.T) {
	m := New()
	m.RecordDecision("transition", "ptw", "ok")
	m.RecordDecision("transition", "ptw", "ok")
	m.RecordDecision("action", "ims", "unauthorized")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `safety_decisions_total{kind="transition",module="ptw",outcome="ok"} 2`)
	assert.Contains(t, body, `safety_decisions_total{kind="action",module="ims",outcome="unauthorized"} 1`)
}

func TestMetrics_ConfigChanges(t *testing.T) {
	m := New()
	m.RecordConfigChange("published")
	m.SetActiveTenants(3)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `safety_config_changes_total{kind="published"} 1`)
	assert.Contains(t, body, `safety_config_tenants 3`)
}

func TestMetrics_HTTP(t *testing.T) {
	m := New()
	m.RecordRequest("/api/v1/escalation", "200")
	m.ObserveDuration("/api/v1/escalation", 0.01)
	m.RecordError("api", "bad_request")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `safety_http_requests_total{route="/api/v1/escalation",status="200"} 1`)
	assert.Contains(t, body, "safety_http_request_duration_seconds")
	assert.Contains(t, body, `safety_errors_total{component="api",type="bad_request"} 1`)
}
