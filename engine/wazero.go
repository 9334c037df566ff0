package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-host/value"
)

// ErrModuleInit marks failures raised while the module itself was being
// initialized (start section, segment initialization), as opposed to
// compilation or host module setup.
var ErrModuleInit = errors.New("module initialization failed")

// WazeroEngine owns the compilation cache shared by every instance it creates.
type WazeroEngine struct {
	cache   wazero.CompilationCache
	runtime wazero.Runtime // compiles modules up front to validate them and warm the cache
	cfg     Config
	mu      sync.Mutex
	closed  bool
}

// Config holds configuration for engine creation
type Config struct {
	// CompilationCacheDir persists compiled code on disk when set.
	CompilationCacheDir string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// CloseOnContextDone makes a running guest observe context cancellation
	// and deadlines. Off by default.
	CloseOnContextDone bool
}

// HostFunc is a host function to expose to a guest under Namespace#Name.
// Call receives arguments decoded by Signature.Params; its result is encoded
// by Signature.Result. A non-nil error aborts the guest call and is returned,
// wrapped, from the export call that led to it.
type HostFunc struct {
	Call      func(ctx context.Context, args []value.Value) (value.Value, error)
	Namespace string
	Name      string
	Signature value.Signature
}

// InstanceConfig holds configuration for module instantiation
type InstanceConfig struct {
	Name string
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	e := &WazeroEngine{}
	if cfg != nil {
		e.cfg = *cfg
	}

	if e.cfg.CompilationCacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(e.cfg.CompilationCacheDir)
		if err != nil {
			return nil, fmt.Errorf("compilation cache %q: %w", e.cfg.CompilationCacheDir, err)
		}
		e.cache = cache
	} else {
		e.cache = wazero.NewCompilationCache()
	}

	e.runtime = wazero.NewRuntimeWithConfig(ctx, e.runtimeConfig())
	return e, nil
}

func (e *WazeroEngine) runtimeConfig() wazero.RuntimeConfig {
	rc := wazero.NewRuntimeConfig().WithCompilationCache(e.cache)
	if e.cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(e.cfg.MemoryLimitPages)
	}
	if e.cfg.CloseOnContextDone {
		rc = rc.WithCloseOnContextDone(true)
	}
	return rc
}

// Config returns the engine configuration.
func (e *WazeroEngine) Config() Config {
	return e.cfg
}

// LoadModule compiles wasmBytes once, rejecting anything wazero would not run.
func (e *WazeroEngine) LoadModule(ctx context.Context, wasmBytes []byte) (*WazeroModule, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("engine is closed")
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}

	Logger().Debug("module compiled",
		zap.Int("size", len(wasmBytes)),
		zap.Int("imports", len(compiled.ImportedFunctions())),
		zap.Int("exports", len(compiled.ExportedFunctions())))

	return &WazeroModule{
		engine:   e,
		compiled: compiled,
		rawBytes: wasmBytes,
	}, nil
}

// Close releases the shared runtime and the compilation cache. Instances
// already created keep working until they are closed.
func (e *WazeroEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	err := e.runtime.Close(ctx)
	if cerr := e.cache.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

// WazeroModule is a compiled module. It is safe for concurrent use; every
// instantiation gets its own wazero runtime, so host modules of different
// instances never collide.
type WazeroModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
	rawBytes []byte
}

// ImportedFunctions lists the function imports as namespace#name.
func (m *WazeroModule) ImportedFunctions() []string {
	defs := m.compiled.ImportedFunctions()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		ns, name, _ := d.Import()
		names = append(names, ns+"#"+name)
	}
	return names
}

// ExportNames returns the names of exported functions.
func (m *WazeroModule) ExportNames() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	return names
}

// Close releases the compiled code held by the engine's shared runtime.
// Instances already created compiled their own copy and keep working.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instantiate creates an instance whose imports are served by hostFuncs.
// The module's start section runs before Instantiate returns; WASI-style
// _start exports are not called. On failure nothing is left open.
func (m *WazeroModule) Instantiate(ctx context.Context, hostFuncs []HostFunc, cfg *InstanceConfig) (*WazeroInstance, error) {
	r := wazero.NewRuntimeWithConfig(ctx, m.engine.runtimeConfig())

	inst, err := m.instantiate(ctx, r, hostFuncs, cfg)
	if err != nil {
		if cerr := r.Close(ctx); cerr != nil {
			Logger().Warn("close runtime after failed instantiation", zap.Error(cerr))
		}
		return nil, err
	}
	return inst, nil
}

func (m *WazeroModule) instantiate(ctx context.Context, r wazero.Runtime, hostFuncs []HostFunc, cfg *InstanceConfig) (*WazeroInstance, error) {
	if err := registerHostModules(ctx, r, hostFuncs); err != nil {
		return nil, err
	}

	compiled, err := r.CompileModule(ctx, m.rawBytes)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}

	modConfig := wazero.NewModuleConfig().WithStartFunctions()
	if cfg != nil && cfg.Name != "" {
		modConfig = modConfig.WithName(cfg.Name)
	} else {
		modConfig = modConfig.WithName("")
	}

	instance, err := r.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModuleInit, err)
	}

	return &WazeroInstance{
		runtime:   r,
		instance:  instance,
		funcCache: make(map[string]api.Function),
	}, nil
}

// registerHostModules builds one host module per namespace, preserving the
// order in which namespaces and functions first appear.
func registerHostModules(ctx context.Context, r wazero.Runtime, hostFuncs []HostFunc) error {
	var order []string
	byNamespace := make(map[string][]HostFunc)
	seen := make(map[string]bool)
	for _, hf := range hostFuncs {
		id := hf.Namespace + "#" + hf.Name
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := byNamespace[hf.Namespace]; !ok {
			order = append(order, hf.Namespace)
		}
		byNamespace[hf.Namespace] = append(byNamespace[hf.Namespace], hf)
	}

	for _, ns := range order {
		builder := r.NewHostModuleBuilder(ns)
		for _, hf := range byNamespace[ns] {
			params, results := hf.Signature.ValueTypes()
			builder.NewFunctionBuilder().
				WithGoModuleFunction(buildHostFunc(hf), params, results).
				WithName(hf.Name).
				Export(hf.Name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return fmt.Errorf("host module %q: %w", ns, err)
		}
		Logger().Debug("host module registered", zap.String("namespace", ns), zap.Int("functions", len(byNamespace[ns])))
	}
	return nil
}

// buildHostFunc adapts hf to wazero's stack calling convention. Errors are
// raised as panics, which wazero recovers and returns from the guest call
// with the error still in the wrap chain.
func buildHostFunc(hf HostFunc) api.GoModuleFunc {
	params := hf.Signature.Params
	hasResult := hf.Signature.Result != value.KindNone
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		args := make([]value.Value, len(params))
		for i, k := range params {
			args[i] = value.Decode(k, stack[i])
		}
		res, err := hf.Call(ctx, args)
		if err != nil {
			panic(err)
		}
		if hasResult {
			stack[0] = res.Encode()
		}
	}
}

// WazeroInstance is a running module. It is NOT safe for concurrent use.
type WazeroInstance struct {
	runtime   wazero.Runtime
	instance  api.Module
	funcCache map[string]api.Function
}

// ExportedFunction returns the export by name, or nil.
func (i *WazeroInstance) ExportedFunction(name string) api.Function {
	if fn, ok := i.funcCache[name]; ok {
		return fn
	}
	fn := i.instance.ExportedFunction(name)
	if fn != nil {
		i.funcCache[name] = fn
	}
	return fn
}

// Call invokes the export name with args encoded by sig. The result is
// decoded by sig.Result; value.None when the signature has no result.
func (i *WazeroInstance) Call(ctx context.Context, name string, sig value.Signature, args []value.Value) (value.Value, error) {
	if i.instance == nil {
		return value.None, fmt.Errorf("instance is closed")
	}
	fn := i.ExportedFunction(name)
	if fn == nil {
		return value.None, fmt.Errorf("export %q not found", name)
	}

	raw := make([]uint64, len(args))
	for j, a := range args {
		raw[j] = a.Encode()
	}

	results, err := fn.Call(ctx, raw...)
	if err != nil {
		return value.None, err
	}

	want := 0
	if sig.Result != value.KindNone {
		want = 1
	}
	if len(results) != want {
		return value.None, fmt.Errorf("export %q returned %d results, signature %s declares %d", name, len(results), sig, want)
	}
	if want == 0 {
		return value.None, nil
	}
	return value.Decode(sig.Result, results[0]), nil
}

// Close releases the instance and its private runtime, including host modules.
func (i *WazeroInstance) Close(ctx context.Context) error {
	if i.runtime == nil {
		return nil
	}
	err := i.runtime.Close(ctx)
	i.runtime = nil
	i.instance = nil
	i.funcCache = nil
	return err
}
