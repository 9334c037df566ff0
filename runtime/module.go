package runtime

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wippyai/wasm-host/module"
)

// Module is a loaded, compiled module. It is read-only and may be
// instantiated any number of times, from any goroutine.
type Module struct {
	runtime   *Runtime
	desc      *module.Module
	funcTypes map[string]*funcSignature
	witText   string
}

// Descriptor returns the decoded module descriptor.
func (m *Module) Descriptor() *module.Module {
	return m.desc
}

func (m *Module) Imports() []module.ImportDeclaration {
	return m.desc.Imports()
}

func (m *Module) Exports() []module.ExportDeclaration {
	return m.desc.Exports()
}

// WIT returns the WIT text given to LoadWithWIT, if any.
func (m *Module) WIT() string {
	return m.witText
}

// Instantiate resolves every import against the runtime's providers and
// creates an instance. Resolution failures are returned with their own
// kinds; no instance is created.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	rt := m.runtime
	ctx, span := rt.tracer.Start(ctx, "wasmhost.instantiate",
		trace.WithAttributes(attribute.Int("imports", len(m.desc.Imports()))))
	defer span.End()

	rt.registerClock()

	handles, err := rt.resolver.ResolveImports(m.desc)
	if err != nil {
		fail(span, err)
		return nil, err
	}
	inst, err := rt.instantiator.Instantiate(ctx, m.desc, handles)
	if err != nil {
		fail(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("instance", int64(inst.ID())))
	return &Instance{module: m, inst: inst}, nil
}

// Close releases the compiled code kept for the module. A long-lived
// Runtime holds it until Close or Runtime.Close is called. Instances already
// created are unaffected.
func (m *Module) Close(ctx context.Context) error {
	return m.runtime.instantiator.Forget(ctx, m.desc)
}
