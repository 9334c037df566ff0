// Package module loads a WebAssembly binary into an immutable descriptor of
// its function imports, function exports and start routine.
//
// Loading is purely structural: nothing is compiled or executed.
package module

import (
	"fmt"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/value"
	"github.com/wippyai/wasm-host/wasm"
)

// ImportDeclaration is a function the module requires from its host.
type ImportDeclaration struct {
	Namespace string
	Name      string
	Signature value.Signature
}

func (d ImportDeclaration) String() string {
	return fmt.Sprintf("%s#%s %s", d.Namespace, d.Name, d.Signature)
}

// ExportDeclaration is a function the module offers to its host.
// Index is the function's position in the module's function index space.
type ExportDeclaration struct {
	Name      string
	Signature value.Signature
	Index     uint32
}

// Module is a loaded, validated module descriptor. It is immutable and safe
// to share between goroutines; accessors return copies.
type Module struct {
	imports []ImportDeclaration
	exports []ExportDeclaration
	byName  map[string]int
	start   *uint32
	binary  []byte
}

// Load decodes data and projects it into a Module.
// Every structural defect is reported as a load error, as is any table,
// memory or global import: only functions can be supplied by the host.
func Load(data []byte) (*Module, error) {
	parsed, err := wasm.ParseModuleValidate(data)
	if err != nil {
		return nil, errors.Load("decode module", err)
	}
	return fromWasm(parsed, data)
}

func fromWasm(parsed *wasm.Module, data []byte) (*Module, error) {
	m := &Module{
		byName: make(map[string]int),
		binary: append([]byte(nil), data...),
	}

	for _, imp := range parsed.Imports {
		if imp.Desc.Kind != wasm.KindFunc {
			return nil, errors.Load(fmt.Sprintf("import %s#%s", imp.Module, imp.Name),
				fmt.Errorf("%s import: %w", externName(imp.Desc.Kind), wasm.ErrUnsupported))
		}
		sig, err := signatureOf(&parsed.Types[imp.Desc.TypeIdx])
		if err != nil {
			return nil, errors.Load(fmt.Sprintf("import %s#%s", imp.Module, imp.Name), err)
		}
		m.imports = append(m.imports, ImportDeclaration{
			Namespace: imp.Module,
			Name:      imp.Name,
			Signature: sig,
		})
	}

	for _, exp := range parsed.Exports {
		if exp.Kind != wasm.KindFunc {
			continue
		}
		ft := parsed.GetFuncType(exp.Idx)
		if ft == nil {
			return nil, errors.Load(fmt.Sprintf("export %q has no type", exp.Name), nil)
		}
		sig, err := signatureOf(ft)
		if err != nil {
			return nil, errors.Load(fmt.Sprintf("export %q", exp.Name), err)
		}
		m.byName[exp.Name] = len(m.exports)
		m.exports = append(m.exports, ExportDeclaration{
			Name:      exp.Name,
			Signature: sig,
			Index:     exp.Idx,
		})
	}

	if parsed.Start != nil {
		start := *parsed.Start
		m.start = &start
	}

	return m, nil
}

func externName(kind byte) string {
	switch kind {
	case wasm.KindTable:
		return "table"
	case wasm.KindMemory:
		return "memory"
	case wasm.KindGlobal:
		return "global"
	default:
		return fmt.Sprintf("kind 0x%02x", kind)
	}
}

// signatureOf converts a decoded function type. The decoder has already
// rejected non-numeric types and multi-value results.
func signatureOf(ft *wasm.FuncType) (value.Signature, error) {
	var sig value.Signature
	for _, p := range ft.Params {
		k, err := kindOf(p)
		if err != nil {
			return value.Signature{}, err
		}
		sig.Params = append(sig.Params, k)
	}
	switch len(ft.Results) {
	case 0:
		sig.Result = value.KindNone
	case 1:
		k, err := kindOf(ft.Results[0])
		if err != nil {
			return value.Signature{}, err
		}
		sig.Result = k
	default:
		return value.Signature{}, fmt.Errorf("%d results: %w", len(ft.Results), wasm.ErrUnsupported)
	}
	return sig, nil
}

func kindOf(t wasm.ValType) (value.Kind, error) {
	switch t {
	case wasm.ValI32:
		return value.KindI32, nil
	case wasm.ValI64:
		return value.KindI64, nil
	case wasm.ValF32:
		return value.KindF32, nil
	case wasm.ValF64:
		return value.KindF64, nil
	default:
		return value.KindNone, fmt.Errorf("value type %s: %w", t, wasm.ErrUnsupported)
	}
}

// Imports returns the function imports in declaration order.
func (m *Module) Imports() []ImportDeclaration {
	out := make([]ImportDeclaration, len(m.imports))
	for i, d := range m.imports {
		d.Signature = d.Signature.Clone()
		out[i] = d
	}
	return out
}

// Exports returns the function exports in declaration order.
func (m *Module) Exports() []ExportDeclaration {
	out := make([]ExportDeclaration, len(m.exports))
	for i, d := range m.exports {
		d.Signature = d.Signature.Clone()
		out[i] = d
	}
	return out
}

// Export looks up a function export by name.
func (m *Module) Export(name string) (ExportDeclaration, bool) {
	i, ok := m.byName[name]
	if !ok {
		return ExportDeclaration{}, false
	}
	d := m.exports[i]
	d.Signature = d.Signature.Clone()
	return d, true
}

// Start returns the start routine's function index, if the module has one.
func (m *Module) Start() (uint32, bool) {
	if m.start == nil {
		return 0, false
	}
	return *m.start, true
}

// Bytes returns a copy of the binary the module was loaded from.
func (m *Module) Bytes() []byte {
	return append([]byte(nil), m.binary...)
}
