package linker

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-host/engine"
	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/metrics"
	"github.com/wippyai/wasm-host/module"
	"github.com/wippyai/wasm-host/value"
)

var instanceCounter uint64

// Instantiator binds a loaded module's imports to resolved handles and
// creates running instances on a shared engine.
type Instantiator struct {
	engine   *engine.WazeroEngine
	resolver *Resolver
	metrics  *metrics.Metrics
	compiled map[*module.Module]*engine.WazeroModule
	mu       sync.Mutex
}

// Option configures an Instantiator.
type Option func(*Instantiator)

// WithMetrics records dispatches, invocations and traps on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(in *Instantiator) {
		in.metrics = m
	}
}

// NewInstantiator creates an instantiator whose dispatchers are built from r.
func NewInstantiator(eng *engine.WazeroEngine, r *Resolver, opts ...Option) *Instantiator {
	in := &Instantiator{
		engine:   eng,
		resolver: r,
		compiled: make(map[*module.Module]*engine.WazeroModule),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Resolver returns the resolver handles must come from.
func (in *Instantiator) Resolver() *Resolver {
	return in.resolver
}

// Compile compiles mod on the engine, once per module.
func (in *Instantiator) Compile(ctx context.Context, mod *module.Module) (*engine.WazeroModule, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if c, ok := in.compiled[mod]; ok {
		return c, nil
	}
	c, err := in.engine.LoadModule(ctx, mod.Bytes())
	if err != nil {
		return nil, errors.Load("engine rejected module", err)
	}
	in.compiled[mod] = c
	return c, nil
}

// Forget drops and closes the compiled form of mod kept by Compile.
// Until it is called the compiled code stays alive as long as the engine.
func (in *Instantiator) Forget(ctx context.Context, mod *module.Module) error {
	in.mu.Lock()
	c, ok := in.compiled[mod]
	delete(in.compiled, mod)
	in.mu.Unlock()
	if !ok {
		return nil
	}
	return c.Close(ctx)
}

// ResolveImports resolves every import of mod in declaration order.
// The first failure is returned with its own kind.
func (r *Resolver) ResolveImports(mod *module.Module) ([]FunctionHandle, error) {
	imports := mod.Imports()
	handles := make([]FunctionHandle, len(imports))
	for i, imp := range imports {
		h, err := r.Resolve(imp.Namespace, imp.Name, imp.Signature)
		if err != nil {
			return nil, err
		}
		handles[i] = h
	}
	return handles, nil
}

// Instantiate binds handles[i] to the module's i-th import, wires a fresh
// Dispatcher into the engine and runs the start routine, if any.
//
// handles must come from this instantiator's resolver and match the
// imports one to one by name and signature. On any failure every engine
// resource created so far is released and no Instance is returned.
func (in *Instantiator) Instantiate(ctx context.Context, mod *module.Module, handles []FunctionHandle) (*Instance, error) {
	if mod == nil {
		return nil, errors.NotInitialized(errors.PhaseInstantiate, "module")
	}
	imports := mod.Imports()
	if len(handles) != len(imports) {
		return nil, errors.Instantiation(
			fmt.Sprintf("module declares %d imports, got %d handles", len(imports), len(handles)), nil)
	}

	dispatcher := in.resolver.Dispatcher()
	dispatcher.metrics = in.metrics

	hostFuncs := make([]engine.HostFunc, len(imports))
	for i, imp := range imports {
		h := handles[i]
		if h.Namespace != imp.Namespace || h.Name != imp.Name {
			return nil, errors.Instantiation(
				fmt.Sprintf("import %d is %s#%s, handle is for %s#%s", i, imp.Namespace, imp.Name, h.Namespace, h.Name), nil)
		}
		if !h.Signature.Equal(imp.Signature) {
			return nil, errors.Instantiation(fmt.Sprintf("import %d %s#%s", i, imp.Namespace, imp.Name),
				errors.SignatureMismatch(imp.Namespace, imp.Name, imp.Signature.String(), h.Signature.String()))
		}
		bound, ok := dispatcher.Handle(h.Index)
		if !ok || bound.Namespace != h.Namespace || bound.Name != h.Name || !bound.Signature.Equal(h.Signature) {
			return nil, errors.Instantiation(fmt.Sprintf("handle %s was not issued by this resolver", h), nil)
		}

		index := h.Index
		hostFuncs[i] = engine.HostFunc{
			Namespace: imp.Namespace,
			Name:      imp.Name,
			Signature: imp.Signature,
			Call: func(ctx context.Context, args []value.Value) (value.Value, error) {
				return dispatcher.Invoke(ctx, index, args)
			},
		}
	}

	compiled, err := in.Compile(ctx, mod)
	if err != nil {
		return nil, err
	}

	id := atomic.AddUint64(&instanceCounter, 1)
	winst, err := compiled.Instantiate(ctx, hostFuncs, &engine.InstanceConfig{Name: fmt.Sprintf("instance#%d", id)})
	if err != nil {
		if _, hasStart := mod.Start(); hasStart && stderrors.Is(err, engine.ErrModuleInit) {
			err = errors.Trap(errors.PhaseInstantiate, "start routine", err)
		}
		Logger().Warn("instantiation failed", zap.Uint64("instance", id), zap.Error(err))
		return nil, errors.Instantiation("instantiate module", err)
	}

	Logger().Debug("instance created",
		zap.Uint64("instance", id),
		zap.Int("imports", len(imports)),
		zap.Int("slots", dispatcher.Len()))

	bound := make([]FunctionHandle, len(handles))
	for i, h := range handles {
		bound[i] = cloneHandle(h)
	}
	return &Instance{
		id:         id,
		module:     mod,
		handles:    bound,
		dispatcher: dispatcher,
		engine:     winst,
		metrics:    in.metrics,
	}, nil
}
