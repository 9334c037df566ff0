package runtime

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-host/config"
	"github.com/wippyai/wasm-host/engine"
	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/host"
	"github.com/wippyai/wasm-host/host/timeprovider"
	"github.com/wippyai/wasm-host/linker"
	"github.com/wippyai/wasm-host/metrics"
	"github.com/wippyai/wasm-host/module"
)

const tracerName = "github.com/wippyai/wasm-host/runtime"

type options struct {
	cfg        *config.Config
	logger     *zap.Logger
	registerer prometheus.Registerer
	tp         trace.TracerProvider
	clock      timeprovider.Clock
}

// Option configures New.
type Option func(*options)

// WithConfig replaces config.Default().
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = &cfg }
}

// WithLogger sets the logger of the runtime, linker and engine packages.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics registers the runtime's collectors on r, regardless of
// config.Metrics.Enabled.
func WithMetrics(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithTracerProvider overrides the global otel tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithClock overrides the clock behind the built-in get_current_year.
func WithClock(c timeprovider.Clock) Option {
	return func(o *options) { o.clock = c }
}

// Runtime owns the engine and the capability resolver shared by every
// module it loads. It is safe for concurrent use.
type Runtime struct {
	cfg          config.Config
	engine       *engine.WazeroEngine
	resolver     *linker.Resolver
	instantiator *linker.Instantiator
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	clock        host.CapabilityProvider
	clockOnce    sync.Once
}

// New creates a runtime. The built-in get_current_year capability is
// registered under config.TimeProvider.Namespaces after every provider
// registered before the first instantiation, so those take precedence.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	cfg := config.Default()
	if o.cfg != nil {
		cfg = *o.cfg
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if o.logger != nil {
		SetLogger(o.logger)
		linker.SetLogger(o.logger.Named("linker"))
		engine.SetLogger(o.logger.Named("engine"))
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled || o.registerer != nil {
		reg := o.registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		var err error
		m, err = metrics.New(cfg.Metrics.Namespace, reg)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindRegistration, err, "register metrics")
		}
	}

	tp := o.tp
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	r := &Runtime{
		cfg:      cfg,
		resolver: linker.NewResolver(),
		metrics:  m,
		tracer:   tp.Tracer(tracerName),
	}

	if len(cfg.TimeProvider.Namespaces) > 0 {
		clock := o.clock
		if clock == nil {
			clock = cfg.Clock()
		}
		p, err := timeprovider.New(clock, cfg.TimeProvider.Namespaces...)
		if err != nil {
			return nil, err
		}
		r.clock = p
	}

	eng, err := engine.NewWazeroEngineWithConfig(ctx, cfg.EngineConfig())
	if err != nil {
		return nil, errors.Load("create engine", err)
	}
	r.engine = eng
	r.instantiator = linker.NewInstantiator(eng, r.resolver, linker.WithMetrics(m))

	Logger().Debug("runtime created",
		zap.Strings("clock_namespaces", cfg.TimeProvider.Namespaces),
		zap.Bool("metrics", m != nil))
	return r, nil
}

// Close releases all runtime resources.
// All instances must be closed before calling this.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

// Config returns the configuration the runtime was created with.
func (r *Runtime) Config() config.Config {
	return r.cfg
}

// Metrics returns the runtime's collectors, or nil when disabled.
func (r *Runtime) Metrics() *metrics.Metrics {
	return r.metrics
}

// Resolver returns the shared import resolver.
func (r *Runtime) Resolver() *linker.Resolver {
	return r.resolver
}

// Register adds a capability provider. Providers registered earlier win
// when two offer the same name. Must be called BEFORE instantiating modules
// that import these functions.
func (r *Runtime) Register(p host.CapabilityProvider) {
	r.resolver.Register(p)
}

// RegisterFunc registers a typed Go function as namespace#name.
// See host.Reflect for the accepted function shapes.
func (r *Runtime) RegisterFunc(namespace, name string, fn any) error {
	p, err := host.NewProvider(namespace).Reflect(name, fn).Build()
	if err != nil {
		return err
	}
	r.Register(p)
	return nil
}

// RegisterHost registers all exported methods of h as capabilities.
// Method names are converted from PascalCase to snake_case (GetCurrentYear -> get_current_year).
func (r *Runtime) RegisterHost(h host.Host) error {
	p, err := host.FromHost(h)
	if err != nil {
		return err
	}
	r.Register(p)
	return nil
}

// Load decodes and compiles a core module. It fails with a load error if
// either the decoder or the engine rejects the binary.
func (r *Runtime) Load(ctx context.Context, data []byte) (*Module, error) {
	ctx, span := r.tracer.Start(ctx, "wasmhost.load",
		trace.WithAttributes(attribute.Int("size", len(data))))
	defer span.End()

	mod, err := r.load(ctx, data)
	if err != nil {
		fail(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("imports", len(mod.desc.Imports())),
		attribute.Int("exports", len(mod.desc.Exports())))
	return mod, nil
}

func (r *Runtime) load(ctx context.Context, data []byte) (*Module, error) {
	desc, err := module.Load(data)
	if err != nil {
		return nil, err
	}
	if _, err := r.instantiator.Compile(ctx, desc); err != nil {
		return nil, err
	}
	Logger().Debug("module loaded",
		zap.Int("size", len(data)),
		zap.Int("imports", len(desc.Imports())),
		zap.Int("exports", len(desc.Exports())))
	return &Module{runtime: r, desc: desc}, nil
}

// LoadWithWIT loads a core module and attaches WIT function declarations
// for its exports, enabling Instance.Call. Every declared function must be
// exported with a matching core signature.
func (r *Runtime) LoadWithWIT(ctx context.Context, data []byte, witText string) (*Module, error) {
	mod, err := r.Load(ctx, data)
	if err != nil {
		return nil, err
	}
	funcs, err := parseWitFunctions(witText)
	if err != nil {
		return nil, err
	}
	if err := checkWitExports(mod.desc, funcs); err != nil {
		return nil, err
	}
	mod.witText = witText
	mod.funcTypes = funcs
	return mod, nil
}

func (r *Runtime) registerClock() {
	r.clockOnce.Do(func() {
		if r.clock != nil {
			r.resolver.Register(r.clock)
		}
	})
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.kind", string(errors.KindOf(err))))
}
