package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m, err := New("", nil)
	require.NoError(t, err)

	m.HostCall("env", "get_current_year")
	m.HostCall("env", "get_current_year")
	m.ExportCall("is_leap_year", time.Millisecond)
	m.Trap("trap")

	require.Equal(t, 2.0, testutil.ToFloat64(m.HostCalls().WithLabelValues("env", "get_current_year")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ExportCalls().WithLabelValues("is_leap_year")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Traps().WithLabelValues("trap")))
}

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New("test", reg)
	require.NoError(t, err)

	m.ExportCall("is_leap_year", time.Millisecond)
	count, err := testutil.GatherAndCount(reg, "test_export_calls_total", "test_export_call_seconds")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	again, err := New("test", reg)
	require.NoError(t, err)
	again.ExportCall("is_leap_year", time.Millisecond)
	require.Equal(t, 2.0, testutil.ToFloat64(m.ExportCalls().WithLabelValues("is_leap_year")))
	require.Same(t, m.Traps(), again.Traps())
}

func TestMetrics_RegisterConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "test",
		Name:      "traps_total",
		Help:      "number of failed invocations by error kind",
	}, []string{"reason"})))

	_, err := New("test", reg)
	require.Error(t, err)

	// collectors registered before the conflict were rolled back
	hostCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "test",
		Name:      "host_calls_total",
		Help:      "number of guest to host capability dispatches",
	}, []string{"namespace", "name"})
	require.False(t, reg.Unregister(hostCalls))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.HostCall("env", "f")
		m.ExportCall("e", time.Second)
		m.Trap("trap")
	})
}
