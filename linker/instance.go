package linker

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-host/engine"
	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/metrics"
	"github.com/wippyai/wasm-host/module"
	"github.com/wippyai/wasm-host/value"
)

// instanceContextKey is the context key for the active instance.
type instanceContextKey struct{}

// InstanceFromContext extracts the instance from context, or nil if not present.
// Capabilities use it to learn which instance is calling them.
func InstanceFromContext(ctx context.Context) *Instance {
	if inst, ok := ctx.Value(instanceContextKey{}).(*Instance); ok {
		return inst
	}
	return nil
}

// WithInstance returns a context with the instance attached.
func WithInstance(ctx context.Context, inst *Instance) context.Context {
	return context.WithValue(ctx, instanceContextKey{}, inst)
}

// Instance is an instantiated module with its own dispatcher.
// Instance is NOT safe for concurrent use.
type Instance struct {
	module     *module.Module
	dispatcher *Dispatcher
	engine     *engine.WazeroInstance
	metrics    *metrics.Metrics
	handles    []FunctionHandle
	id         uint64
}

// ID returns a process-unique instance number.
func (i *Instance) ID() uint64 {
	return i.id
}

// Module returns the module the instance was created from.
func (i *Instance) Module() *module.Module {
	return i.module
}

// Exports lists the function exports.
func (i *Instance) Exports() []module.ExportDeclaration {
	return i.module.Exports()
}

// Handles returns the handle bound to each import, in import order.
func (i *Instance) Handles() []FunctionHandle {
	out := make([]FunctionHandle, len(i.handles))
	for j, h := range i.handles {
		out[j] = cloneHandle(h)
	}
	return out
}

// Dispatcher returns the instance's dispatcher.
func (i *Instance) Dispatcher() *Dispatcher {
	return i.dispatcher
}

// Invoke calls the export name with args.
//
// Unknown exports and arguments that do not fit the export's signature are
// rejected before entering the guest. Any fault during execution is returned
// as a trap, except dispatch integrity errors, which are returned unchanged.
func (i *Instance) Invoke(ctx context.Context, name string, args ...value.Value) (value.Value, error) {
	if i.engine == nil {
		return value.None, errors.NotInitialized(errors.PhaseInvoke, "instance")
	}

	exp, ok := i.module.Export(name)
	if !ok {
		return value.None, errors.UnknownExport(name)
	}
	if !exp.Signature.Accepts(args) {
		return value.None, errors.ArgumentMismatch(name,
			value.FormatKinds(exp.Signature.Params),
			value.FormatKinds(value.Kinds(args)))
	}

	start := time.Now()
	res, err := i.engine.Call(WithInstance(ctx, i), name, exp.Signature, args)
	i.metrics.ExportCall(name, time.Since(start))
	if err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) && e.Kind == errors.KindDispatchIntegrity {
			i.metrics.Trap(string(errors.KindDispatchIntegrity))
			return value.None, e
		}
		i.metrics.Trap(string(errors.KindTrap))
		Logger().Debug("export trapped", zap.Uint64("instance", i.id), zap.String("export", name), zap.Error(err))
		return value.None, errors.Trap(errors.PhaseRuntime, fmt.Sprintf("export %q", name), err)
	}
	return res, nil
}

// Close releases the instance's engine resources. It is safe to call twice.
func (i *Instance) Close(ctx context.Context) error {
	if i.engine == nil {
		return nil
	}
	err := i.engine.Close(ctx)
	i.engine = nil
	return err
}
