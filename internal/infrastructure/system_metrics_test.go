package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

func TestReadRuntimeStats(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	stats := ReadRuntimeStats(start)

	assert.Greater(t, stats.GoRoutines, int64(0))
	assert.Greater(t, stats.MemorySystem, int64(0))
	assert.Greater(t, stats.CPUCount, 0)
	assert.GreaterOrEqual(t, stats.ProcessUptime, time.Minute)

	formatted := stats.FormatStats()
	for _, key := range []string{"goroutines", "heap_alloc_mb", "uptime_seconds", "go_version"} {
		assert.Contains(t, formatted, key)
	}
}

func TestRegisterRuntimeMetrics_Noop(t *testing.T) {
	meter := metricnoop.NewMeterProvider().Meter(MeterName)
	assert.NoError(t, RegisterRuntimeMetrics(meter, time.Now()))
}

func TestRegisterRuntimeMetrics_Prometheus(t *testing.T) {
	providers, err := InitializeOTel(nil, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NoError(t, RegisterRuntimeMetrics(providers.Meter, time.Now()))

	w := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "datamod_runtime_goroutines")
	assert.Contains(t, string(body), "datamod_process_uptime_seconds")
}
