package runtime

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/linker"
	"github.com/wippyai/wasm-host/module"
	"github.com/wippyai/wasm-host/value"
)

// Instance is a running module. It is NOT safe for concurrent use.
type Instance struct {
	module *Module
	inst   *linker.Instance
}

// Module returns the module the instance was created from.
func (i *Instance) Module() *Module {
	return i.module
}

// Linked returns the underlying linker instance.
func (i *Instance) Linked() *linker.Instance {
	return i.inst
}

func (i *Instance) Exports() []module.ExportDeclaration {
	return i.inst.Exports()
}

// Invoke calls the export name with core values.
func (i *Instance) Invoke(ctx context.Context, name string, args ...value.Value) (value.Value, error) {
	ctx, span := i.module.runtime.tracer.Start(ctx, "wasmhost.invoke",
		trace.WithAttributes(
			attribute.String("export", name),
			attribute.Int64("instance", int64(i.inst.ID()))))
	defer span.End()

	res, err := i.inst.Invoke(ctx, name, args...)
	if err != nil {
		fail(span, err)
		return value.None, err
	}
	return res, nil
}

// Call invokes an exported function with Go arguments typed by the WIT
// declarations given to LoadWithWIT. A WIT bool is carried as i32 1/0 in
// both directions.
func (i *Instance) Call(ctx context.Context, name string, args ...any) (any, error) {
	if i.module.funcTypes == nil {
		return nil, errors.InvalidInput(errors.PhaseInvoke, "Call() requires WIT definitions; use Invoke() for modules loaded without WIT")
	}
	sig, ok := i.module.funcTypes[name]
	if !ok {
		return nil, errors.New(errors.PhaseInvoke, errors.KindUnknownExport).
			Path(name).
			Detail("function %q not declared in WIT", name).
			Build()
	}
	if len(args) != len(sig.params) {
		return nil, errors.ArgumentMismatch(name,
			fmt.Sprintf("%d arguments", len(sig.params)),
			fmt.Sprintf("%d arguments", len(args)))
	}

	vals := make([]value.Value, len(args))
	for j, a := range args {
		v, err := lower(sig.params[j], a)
		if err != nil {
			return nil, errors.New(errors.PhaseInvoke, errors.KindArgumentMismatch).
				Path(name, fmt.Sprintf("param[%d]", j)).
				Expected(witName(sig.params[j])).
				Actual(fmt.Sprintf("%T", a)).
				Cause(err).
				Build()
		}
		vals[j] = v
	}

	res, err := i.Invoke(ctx, name, vals...)
	if err != nil {
		return nil, err
	}
	if len(sig.results) == 0 {
		return nil, nil
	}
	out, err := lift(sig.results[0], res)
	if err != nil {
		return nil, errors.New(errors.PhaseInvoke, errors.KindTypeMismatch).
			Path(name, "result").
			Expected(witName(sig.results[0])).
			Actual(res.String()).
			Cause(err).
			Build()
	}
	return out, nil
}

// Close releases the instance. It is safe to call twice.
func (i *Instance) Close(ctx context.Context) error {
	return i.inst.Close(ctx)
}
