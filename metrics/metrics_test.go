package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aalemi-dev/portmeta/metrics"
	"github.com/aalemi-dev/portmeta/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Defaults(t *testing.T) {
	m := metrics.NewMetrics(metrics.Config{ServiceName: "portmeta"})

	require.NotNil(t, m.SystemServer)
	require.NotNil(t, m.ApplicationServer)
	assert.Equal(t, metrics.DefaultSystemMetricsAddress, m.SystemServer.Addr)
	assert.Equal(t, metrics.DefaultApplicationMetricsAddress, m.ApplicationServer.Addr)
	assert.Equal(t, metrics.DefaultNamespace, m.Namespace())
}

func TestNewMetrics_DisabledEndpoints(t *testing.T) {
	m := metrics.NewMetrics(metrics.Config{
		SystemMetricsAddress:      metrics.Ptr(""),
		ApplicationMetricsAddress: metrics.Ptr(""),
		Namespace:                 "test",
	})

	assert.Nil(t, m.SystemServer)
	assert.Nil(t, m.SystemRegistry)
	assert.Nil(t, m.ApplicationServer)
	assert.NotNil(t, m.ApplicationRegistry, "observers can still register")
	assert.Equal(t, "test", m.Namespace())
}

func TestOperationObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := metrics.NewOperationObserver(reg, "test")
	require.NoError(t, err)

	var _ observability.Observer = obs

	obs.ObserveOperation(observability.OperationContext{
		Component: "metadata",
		Operation: "process_pending_updates",
		Duration:  5 * time.Millisecond,
		Size:      3,
	})
	obs.ObserveOperation(observability.OperationContext{
		Component: "metadata",
		Operation: "process_pending_updates",
		Duration:  time.Millisecond,
		Error:     errors.New("down"),
	})

	expected := `
# HELP test_operations_total Completed operations by component, operation and status.
# TYPE test_operations_total counter
test_operations_total{component="metadata",operation="process_pending_updates",status="error"} 1
test_operations_total{component="metadata",operation="process_pending_updates",status="ok"} 1
# HELP test_operation_size_total Fields, rows or bytes handled by completed operations.
# TYPE test_operation_size_total counter
test_operation_size_total{component="metadata",operation="process_pending_updates"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"test_operations_total", "test_operation_size_total"))
	assert.Equal(t, 1, mustCount(t, reg, "test_operation_duration_seconds"))
}

func TestNewOperationObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewOperationObserver(reg, "test")
	require.NoError(t, err)

	_, err = metrics.NewOperationObserver(reg, "test")
	assert.Error(t, err)
}

type fakeSource struct {
	version int64
	pending int
}

func (f *fakeSource) GetVersion() int64 { return f.version }
func (f *fakeSource) PendingCount() int { return f.pending }

func TestRegisterManagerGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := &fakeSource{version: 4, pending: 2}
	require.NoError(t, metrics.RegisterManagerGauges(reg, "test", src))

	src.version = 5

	expected := `
# HELP test_metadata_pending_diffs Diffs waiting for the next reconciliation.
# TYPE test_metadata_pending_diffs gauge
test_metadata_pending_diffs 2
# HELP test_metadata_version Last published metadata version.
# TYPE test_metadata_version gauge
test_metadata_version 5
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected)))
}

func TestApplicationEndpoint_ServiceLabel(t *testing.T) {
	m := metrics.NewMetrics(metrics.Config{
		SystemMetricsAddress: metrics.Ptr(""),
		ServiceName:          "portmeta-test",
	})
	obs, err := metrics.NewOperationObserver(m.Registerer(), m.Namespace())
	require.NoError(t, err)
	obs.ObserveOperation(observability.OperationContext{Component: "kafka", Operation: "produce"})

	srv := httptest.NewServer(m.ApplicationServer.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `portmeta_operations_total{component="kafka",operation="produce",service="portmeta-test",status="ok"} 1`)
}

func mustCount(t *testing.T, reg prometheus.Gatherer, name string) int {
	t.Helper()
	n, err := testutil.GatherAndCount(reg, name)
	require.NoError(t, err)
	return n
}
