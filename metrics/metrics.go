// Package metrics holds the Prometheus collectors for host dispatches,
// export invocations and traps.
//
// All recording methods are safe on a nil *Metrics, so instrumentation can be
// left disabled without guarding every call site.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "wasmhost"

// Metrics groups the runtime's collectors.
type Metrics struct {
	hostCalls    *prometheus.CounterVec
	exportCalls  *prometheus.CounterVec
	traps        *prometheus.CounterVec
	exportLength *prometheus.HistogramVec
}

// New creates the collectors and registers them on r. Collectors already
// registered on r under the same names are shared, so several runtimes can
// report to one registerer. On failure nothing new is left registered.
// A nil r leaves them unregistered, which is useful in tests that read
// values directly.
func New(namespace string, r prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &Metrics{
		hostCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_calls_total",
			Help:      "number of guest to host capability dispatches",
		}, []string{"namespace", "name"}),
		exportCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_calls_total",
			Help:      "number of host to guest export invocations",
		}, []string{"export"}),
		traps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traps_total",
			Help:      "number of failed invocations by error kind",
		}, []string{"kind"}),
		exportLength: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_call_seconds",
			Help:      "time spent inside export invocations",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"export"}),
	}
	if r == nil {
		return m, nil
	}

	var (
		added []prometheus.Collector
		errs  []error
	)
	register := func(c prometheus.Collector) prometheus.Collector {
		err := r.Register(c)
		if err == nil {
			added = append(added, c)
			return c
		}
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		errs = append(errs, err)
		return c
	}
	hostCalls, ok := register(m.hostCalls).(*prometheus.CounterVec)
	if !ok {
		errs = append(errs, errConflict("host_calls_total"))
	}
	exportCalls, ok := register(m.exportCalls).(*prometheus.CounterVec)
	if !ok {
		errs = append(errs, errConflict("export_calls_total"))
	}
	traps, ok := register(m.traps).(*prometheus.CounterVec)
	if !ok {
		errs = append(errs, errConflict("traps_total"))
	}
	exportLength, ok := register(m.exportLength).(*prometheus.HistogramVec)
	if !ok {
		errs = append(errs, errConflict("export_call_seconds"))
	}

	if err := errors.Join(errs...); err != nil {
		for _, c := range added {
			r.Unregister(c)
		}
		return nil, err
	}
	m.hostCalls, m.exportCalls, m.traps, m.exportLength = hostCalls, exportCalls, traps, exportLength
	return m, nil
}

func errConflict(name string) error {
	return fmt.Errorf("collector %s is registered with a different type", name)
}

// HostCall records one dispatch to namespace#name.
func (m *Metrics) HostCall(namespace, name string) {
	if m == nil {
		return
	}
	m.hostCalls.WithLabelValues(namespace, name).Inc()
}

// ExportCall records one invocation of export taking d.
func (m *Metrics) ExportCall(export string, d time.Duration) {
	if m == nil {
		return
	}
	m.exportCalls.WithLabelValues(export).Inc()
	m.exportLength.WithLabelValues(export).Observe(d.Seconds())
}

// Trap records a failure of the given error kind.
func (m *Metrics) Trap(kind string) {
	if m == nil {
		return
	}
	m.traps.WithLabelValues(kind).Inc()
}

// HostCalls exposes the dispatch counter, mainly for tests.
func (m *Metrics) HostCalls() *prometheus.CounterVec { return m.hostCalls }

// ExportCalls exposes the invocation counter, mainly for tests.
func (m *Metrics) ExportCalls() *prometheus.CounterVec { return m.exportCalls }

// Traps exposes the failure counter, mainly for tests.
func (m *Metrics) Traps() *prometheus.CounterVec { return m.traps }
