package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m Metrics) string {
	t.Helper()
	srv := httptest.NewServer(NewMetricsHandler(m, slog.Default()))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()

	m.ObserveProviderRequest("models", 200)
	m.ObserveProviderRequest("models", 200)
	m.ObserveProviderRequest("run", 401)
	m.ObserveGeneration("ok", 12.5)
	m.ObserveGeneration("timeout", 100)
	m.ObserveCommand("start")
	m.SetSessions(3)

	body := scrape(t, m)
	assert.Contains(t, body, `painter_provider_requests_total{endpoint="models",status_code="200"} 2`)
	assert.Contains(t, body, `painter_provider_requests_total{endpoint="run",status_code="401"} 1`)
	assert.Contains(t, body, `painter_generation_total{result="ok"} 1`)
	assert.Contains(t, body, `painter_generation_total{result="timeout"} 1`)
	assert.Contains(t, body, `painter_generation_time_seconds_count 2`)
	assert.Contains(t, body, `painter_bot_commands_total{command="start"} 1`)
	assert.Contains(t, body, `painter_bot_sessions 3`)
	assert.Contains(t, body, `painter_system_start_timestamp_seconds`)
}

func TestNoopMetrics(t *testing.T) {
	m := NewNoopMetrics()
	m.ObserveGeneration("ok", 1)
	m.SetSessions(10)

	families, err := m.GetRegistry().Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}
