package runtime

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasm-host/config"
	"github.com/wippyai/wasm-host/engine"
	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/guest"
	"github.com/wippyai/wasm-host/host/timeprovider"
	"github.com/wippyai/wasm-host/linker"
	"github.com/wippyai/wasm-host/value"
)

func newRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	ctx := context.Background()
	rt, err := New(ctx, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(ctx) })
	return rt
}

func instantiate(t *testing.T, rt *Runtime, opts guest.Options) *Instance {
	t.Helper()
	ctx := context.Background()
	mod, err := rt.Load(ctx, guest.LeapYear(opts))
	require.NoError(t, err)
	inst, err := mod.Instantiate(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close(ctx) })
	return inst
}

func fixedYear(year int32) config.Config {
	cfg := config.Default()
	cfg.TimeProvider.FixedYear = year
	return cfg
}

func TestRuntime_Scenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("direct extern", func(t *testing.T) {
		rt := newRuntime(t, WithClock(timeprovider.Fixed(2024)))
		inst := instantiate(t, rt, guest.Options{Namespace: guest.NamespaceEnv})

		res, err := inst.Invoke(ctx, guest.ExportIsLeapYear, value.I32(2000))
		require.NoError(t, err)
		require.Equal(t, value.I32(1), res)

		res, err = inst.Invoke(ctx, guest.ExportIsLeapYearNow)
		require.NoError(t, err)
		require.Equal(t, value.I32(1), res)
	})

	t.Run("time provider namespace", func(t *testing.T) {
		rt := newRuntime(t, WithConfig(fixedYear(2022)))
		inst := instantiate(t, rt, guest.Options{Namespace: guest.NamespaceTimeProvider})

		res, err := inst.Invoke(ctx, guest.ExportIsLeapYearNow)
		require.NoError(t, err)
		require.Equal(t, value.I32(0), res)
	})
}

func TestRuntime_RegisteredProvidersWin(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, WithConfig(fixedYear(2022)))
	require.NoError(t, rt.RegisterFunc("env", timeprovider.FuncName, func(context.Context) int32 { return 2400 }))

	inst := instantiate(t, rt, guest.Options{})
	res, err := inst.Invoke(ctx, guest.ExportIsLeapYearNow)
	require.NoError(t, err)
	require.Equal(t, value.I32(1), res)
}

type calendar struct{ year int32 }

func (calendar) Namespace() string { return guest.NamespaceTimeProvider }

func (c calendar) GetCurrentYear() int32 { return c.year }

func TestRuntime_RegisterHost(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.TimeProvider.Namespaces = nil
	rt := newRuntime(t, WithConfig(cfg))
	require.NoError(t, rt.RegisterHost(calendar{year: 2100}))

	inst := instantiate(t, rt, guest.Options{Namespace: guest.NamespaceTimeProvider})
	res, err := inst.Invoke(ctx, guest.ExportIsLeapYearNow)
	require.NoError(t, err)
	require.Equal(t, value.I32(0), res)
}

func TestRuntime_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid config", func(t *testing.T) {
		cfg := config.Default()
		cfg.Log.Level = "loud"
		_, err := New(ctx, WithConfig(cfg))
		require.Error(t, err)
	})

	t.Run("malformed binary", func(t *testing.T) {
		rt := newRuntime(t)
		_, err := rt.Load(ctx, []byte("\x00asm\x01\x00\x00"))
		require.ErrorIs(t, err, errors.ErrLoad)
	})

	t.Run("unresolved import", func(t *testing.T) {
		cfg := config.Default()
		cfg.TimeProvider.Namespaces = []string{guest.NamespaceEnv}
		rt := newRuntime(t, WithConfig(cfg))
		mod, err := rt.Load(ctx, guest.LeapYear(guest.Options{Namespace: guest.NamespaceTimeProvider}))
		require.NoError(t, err)
		inst, err := mod.Instantiate(ctx)
		require.Nil(t, inst)
		require.ErrorIs(t, err, errors.ErrUnresolvedImport)
	})

	t.Run("signature mismatch", func(t *testing.T) {
		cfg := config.Default()
		cfg.TimeProvider.Namespaces = nil
		rt := newRuntime(t, WithConfig(cfg))
		require.NoError(t, rt.RegisterFunc("env", timeprovider.FuncName, func() int64 { return 2024 }))
		mod, err := rt.Load(ctx, guest.LeapYear(guest.Options{}))
		require.NoError(t, err)
		_, err = mod.Instantiate(ctx)
		require.ErrorIs(t, err, errors.ErrSignatureMismatch)
	})

	t.Run("start trap", func(t *testing.T) {
		rt := newRuntime(t)
		mod, err := rt.Load(ctx, guest.LeapYear(guest.Options{Start: guest.StartTrap}))
		require.NoError(t, err)
		_, err = mod.Instantiate(ctx)
		require.ErrorIs(t, err, errors.ErrInstantiation)
	})
}

const leapWIT = `
interface leap {
	is_leap_year: func(year: s32) -> bool;
	is_it_leap_year_now: func() -> bool;
	divide: func(a: s32, b: s32) -> bool;
}
`

func TestInstance_Call(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, WithClock(timeprovider.Fixed(2022)))
	mod, err := rt.LoadWithWIT(ctx, guest.LeapYear(guest.Options{Divide: true}), leapWIT)
	require.NoError(t, err)
	require.Equal(t, leapWIT, mod.WIT())
	inst, err := mod.Instantiate(ctx)
	require.NoError(t, err)
	defer inst.Close(ctx)

	res, err := inst.Call(ctx, guest.ExportIsLeapYear, int32(2024))
	require.NoError(t, err)
	require.Equal(t, true, res)

	res, err = inst.Call(ctx, guest.ExportIsLeapYear, 1900)
	require.NoError(t, err)
	require.Equal(t, false, res)

	res, err = inst.Call(ctx, guest.ExportIsLeapYearNow)
	require.NoError(t, err)
	require.Equal(t, false, res)

	t.Run("non-boolean result", func(t *testing.T) {
		_, err := inst.Call(ctx, guest.ExportDivide, int32(6), int32(3))
		require.Equal(t, errors.KindTypeMismatch, errors.KindOf(err))

		res, err := inst.Call(ctx, guest.ExportDivide, int32(3), int32(3))
		require.NoError(t, err)
		require.Equal(t, true, res)
	})

	t.Run("bad arguments", func(t *testing.T) {
		_, err := inst.Call(ctx, guest.ExportIsLeapYear, "2024")
		require.ErrorIs(t, err, errors.ErrArgumentMismatch)
		require.ErrorContains(t, err, "param[0]")

		_, err = inst.Call(ctx, guest.ExportIsLeapYear)
		require.ErrorIs(t, err, errors.ErrArgumentMismatch)

		_, err = inst.Call(ctx, "is_leap")
		require.ErrorIs(t, err, errors.ErrUnknownExport)
	})
}

func TestLoadWithWIT_Rejects(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)
	bin := guest.LeapYear(guest.Options{})

	tests := []struct {
		name string
		wit  string
	}{
		{"no functions", "interface leap {}"},
		{"not exported", "leap_day: func() -> bool;"},
		{"wrong param type", "is_leap_year: func(year: s64) -> bool;"},
		{"unsupported type", "is_leap_year: func(year: string) -> bool;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.LoadWithWIT(ctx, bin, tt.wit)
			require.Error(t, err)
		})
	}
}

func TestInstance_CallWithoutWIT(t *testing.T) {
	rt := newRuntime(t)
	inst := instantiate(t, rt, guest.Options{})
	_, err := inst.Call(context.Background(), guest.ExportIsLeapYear, int32(2024))
	require.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
}

func TestRuntime_Tracing(t *testing.T) {
	ctx := context.Background()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	rt := newRuntime(t, WithTracerProvider(tp), WithClock(timeprovider.Fixed(2024)))

	inst := instantiate(t, rt, guest.Options{})
	_, err := inst.Invoke(ctx, guest.ExportIsLeapYearNow)
	require.NoError(t, err)
	_, err = inst.Invoke(ctx, "missing")
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 4)
	require.Equal(t, "wasmhost.load", spans[0].Name())
	require.Equal(t, "wasmhost.instantiate", spans[1].Name())
	require.Equal(t, "wasmhost.invoke", spans[2].Name())
	require.Equal(t, codes.Unset, spans[2].Status().Code)
	require.Equal(t, codes.Error, spans[3].Status().Code)
}

func TestRuntime_Metrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	rt := newRuntime(t, WithMetrics(reg), WithClock(timeprovider.Fixed(2024)))
	require.NotNil(t, rt.Metrics())

	inst := instantiate(t, rt, guest.Options{Divide: true})
	for range 2 {
		_, err := inst.Invoke(ctx, guest.ExportIsLeapYearNow)
		require.NoError(t, err)
	}
	_, err := inst.Invoke(ctx, guest.ExportDivide, value.I32(1), value.I32(0))
	require.ErrorIs(t, err, errors.ErrTrap)

	m := rt.Metrics()
	require.Equal(t, 2.0, testutil.ToFloat64(m.HostCalls().WithLabelValues("env", timeprovider.FuncName)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ExportCalls().WithLabelValues(guest.ExportIsLeapYearNow)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Traps().WithLabelValues(string(errors.KindTrap))))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Positive(t, count)
}

func TestModule_Close(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, WithClock(timeprovider.Fixed(2024)))

	mod, err := rt.Load(ctx, guest.LeapYear(guest.Options{}))
	require.NoError(t, err)
	inst, err := mod.Instantiate(ctx)
	require.NoError(t, err)
	defer inst.Close(ctx)

	require.NoError(t, mod.Close(ctx))
	require.NoError(t, mod.Close(ctx))

	res, err := inst.Invoke(ctx, guest.ExportIsLeapYearNow)
	require.NoError(t, err)
	require.Equal(t, value.I32(1), res)
}

func TestRuntime_MetricsSharedRegisterer(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Namespace = "wasmhost_shared_test"

	// both runtimes fall back to the default registerer
	a := newRuntime(t, WithConfig(cfg), WithClock(timeprovider.Fixed(2024)))
	b := newRuntime(t, WithConfig(cfg), WithClock(timeprovider.Fixed(2023)))

	for _, rt := range []*Runtime{a, b} {
		inst := instantiate(t, rt, guest.Options{})
		_, err := inst.Invoke(ctx, guest.ExportIsLeapYearNow)
		require.NoError(t, err)
	}

	require.Same(t, a.Metrics().HostCalls(), b.Metrics().HostCalls())
	require.Equal(t, 2.0, testutil.ToFloat64(a.Metrics().ExportCalls().WithLabelValues(guest.ExportIsLeapYearNow)))
}

func TestRuntime_Logger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	defer func() {
		SetLogger(zap.NewNop())
		linker.SetLogger(zap.NewNop())
		engine.SetLogger(zap.NewNop())
	}()
	rt := newRuntime(t, WithLogger(zap.New(core)))

	_, err := rt.Load(context.Background(), guest.LeapYear(guest.Options{}))
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("module loaded").Len())
}
