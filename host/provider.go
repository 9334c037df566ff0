package host

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/value"
)

// ErrDuplicate is the cause of a registration error for a capability that
// was already added to the same provider.
var ErrDuplicate = stderrors.New("duplicate capability")

// Func is the Go implementation behind a capability. args always match the
// entry's signature; the returned Value must have the signature's result kind
// (value.None when there is no result). A non-nil error traps the guest.
type Func func(ctx context.Context, args []value.Value) (value.Value, error)

// CapabilityEntry is one named, typed host function.
type CapabilityEntry struct {
	Func      Func   `validate:"required"`
	Namespace string `validate:"required"`
	Name      string `validate:"required"`
	Signature value.Signature
}

func (e CapabilityEntry) String() string {
	return fmt.Sprintf("%s#%s %s", e.Namespace, e.Name, e.Signature)
}

// CapabilityProvider offers capabilities by (namespace, name).
type CapabilityProvider interface {
	// Lookup returns the entry offered under namespace and name.
	Lookup(namespace, name string) (CapabilityEntry, bool)
	// Entries lists every offered entry in registration order.
	Entries() []CapabilityEntry
}

type key struct {
	namespace string
	name      string
}

// FuncProvider is a fixed set of capabilities. It is immutable once built.
type FuncProvider struct {
	index   map[key]int
	entries []CapabilityEntry
}

var _ CapabilityProvider = (*FuncProvider)(nil)

// Lookup implements CapabilityProvider.
func (p *FuncProvider) Lookup(namespace, name string) (CapabilityEntry, bool) {
	i, ok := p.index[key{namespace, name}]
	if !ok {
		return CapabilityEntry{}, false
	}
	return p.entries[i], true
}

// Entries implements CapabilityProvider.
func (p *FuncProvider) Entries() []CapabilityEntry {
	out := make([]CapabilityEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Len returns the number of entries.
func (p *FuncProvider) Len() int {
	return len(p.entries)
}

// Builder collects capabilities for a FuncProvider. The first invalid or
// duplicate entry is reported by Build.
type Builder struct {
	err       error
	index     map[key]int
	namespace string
	entries   []CapabilityEntry
}

// NewProvider starts a provider whose Func and Reflect entries live in namespace.
func NewProvider(namespace string) *Builder {
	return &Builder{namespace: namespace, index: make(map[key]int)}
}

// Func adds a capability with an explicit signature.
func (b *Builder) Func(name string, sig value.Signature, fn Func) *Builder {
	return b.Entry(CapabilityEntry{
		Namespace: b.namespace,
		Name:      name,
		Signature: sig,
		Func:      fn,
	})
}

// Reflect adds a capability whose signature is derived from a typed Go func.
// See Reflect for the accepted shapes.
func (b *Builder) Reflect(name string, fn any) *Builder {
	if b.err != nil {
		return b
	}
	entry, err := Reflect(b.namespace, name, fn)
	if err != nil {
		b.err = err
		return b
	}
	return b.Entry(entry)
}

// Entry adds a fully specified capability, which may use any namespace.
func (b *Builder) Entry(e CapabilityEntry) *Builder {
	if b.err != nil {
		return b
	}
	if err := validate.Struct(e); err != nil {
		b.err = errors.Registration(errors.PhaseHost, e.Namespace, e.Name, err)
		return b
	}
	k := key{e.Namespace, e.Name}
	if _, dup := b.index[k]; dup {
		b.err = errors.Registration(errors.PhaseHost, e.Namespace, e.Name, ErrDuplicate)
		return b
	}
	e.Signature = e.Signature.Clone()
	b.index[k] = len(b.entries)
	b.entries = append(b.entries, e)
	return b
}

// Build returns the provider, or the first registration error.
func (b *Builder) Build() (*FuncProvider, error) {
	if b.err != nil {
		return nil, b.err
	}
	index := make(map[key]int, len(b.index))
	for k, v := range b.index {
		index[k] = v
	}
	entries := make([]CapabilityEntry, len(b.entries))
	copy(entries, b.entries)
	return &FuncProvider{index: index, entries: entries}, nil
}

// MustBuild is Build for statically known providers; it panics on error.
func (b *Builder) MustBuild() *FuncProvider {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateSignature, value.Signature{})
	return v
}

// validateSignature rejects parameters without a value and unknown kinds.
func validateSignature(sl validator.StructLevel) {
	sig := sl.Current().Interface().(value.Signature)
	for i, k := range sig.Params {
		if k == value.KindNone || k > value.KindF64 {
			sl.ReportError(sig.Params, fmt.Sprintf("Params[%d]", i), "Params", "numeric", k.String())
		}
	}
	if sig.Result > value.KindF64 {
		sl.ReportError(sig.Result, "Result", "Result", "kind", sig.Result.String())
	}
}
