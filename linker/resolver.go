package linker

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/host"
	"github.com/wippyai/wasm-host/value"
)

// FunctionHandle is a resolved import. Index is the handle's slot in every
// Dispatcher built from the Resolver that produced it.
type FunctionHandle struct {
	Namespace string
	Name      string
	Signature value.Signature
	Index     int
}

func (h FunctionHandle) String() string {
	return fmt.Sprintf("[%d] %s#%s %s", h.Index, h.Namespace, h.Name, h.Signature)
}

type binding struct {
	handle FunctionHandle
	fn     host.Func
}

type bindingKey struct {
	namespace string
	name      string
}

// Resolver maps (namespace, name) imports to capabilities and assigns each
// distinct capability a stable index in first-resolution order.
//
// Providers are consulted in registration order; the first that offers a
// name wins. Resolver is thread-safe.
type Resolver struct {
	providers []host.CapabilityProvider
	arena     []binding
	byKey     map[bindingKey]int
	mu        sync.RWMutex
}

// NewResolver creates a resolver over providers.
func NewResolver(providers ...host.CapabilityProvider) *Resolver {
	r := &Resolver{byKey: make(map[bindingKey]int)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register appends a provider. Earlier providers take precedence.
// Names already resolved keep their binding.
func (r *Resolver) Register(p host.CapabilityProvider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// Resolve binds namespace#name to a capability whose signature must equal
// expected exactly. Repeated resolution of the same name returns the same
// handle.
func (r *Resolver) Resolve(namespace, name string, expected value.Signature) (FunctionHandle, error) {
	k := bindingKey{namespace, name}

	r.mu.RLock()
	idx, ok := r.byKey[k]
	var b binding
	if ok {
		b = r.arena[idx]
	}
	r.mu.RUnlock()
	if ok {
		return checkSignature(b.handle, expected)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have bound it between the locks.
	if idx, ok := r.byKey[k]; ok {
		return checkSignature(r.arena[idx].handle, expected)
	}

	entry, found := r.lookup(namespace, name)
	if !found {
		Logger().Debug("import unresolved", zap.String("namespace", namespace), zap.String("name", name))
		return FunctionHandle{}, errors.UnresolvedImport(namespace, name)
	}
	if !entry.Signature.Equal(expected) {
		return FunctionHandle{}, errors.SignatureMismatch(namespace, name, expected.String(), entry.Signature.String())
	}

	h := FunctionHandle{
		Namespace: namespace,
		Name:      name,
		Signature: entry.Signature.Clone(),
		Index:     len(r.arena),
	}
	r.byKey[k] = h.Index
	r.arena = append(r.arena, binding{handle: h, fn: entry.Func})

	Logger().Debug("import resolved",
		zap.String("namespace", namespace),
		zap.String("name", name),
		zap.Int("index", h.Index),
		zap.Stringer("signature", h.Signature))

	return cloneHandle(h), nil
}

func (r *Resolver) lookup(namespace, name string) (host.CapabilityEntry, bool) {
	for _, p := range r.providers {
		if e, ok := p.Lookup(namespace, name); ok {
			return e, true
		}
	}
	return host.CapabilityEntry{}, false
}

func checkSignature(h FunctionHandle, expected value.Signature) (FunctionHandle, error) {
	if !h.Signature.Equal(expected) {
		return FunctionHandle{}, errors.SignatureMismatch(h.Namespace, h.Name, expected.String(), h.Signature.String())
	}
	return cloneHandle(h), nil
}

func cloneHandle(h FunctionHandle) FunctionHandle {
	h.Signature = h.Signature.Clone()
	return h
}

// Bindings lists every resolved handle in index order.
func (r *Resolver) Bindings() []FunctionHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FunctionHandle, len(r.arena))
	for i, b := range r.arena {
		out[i] = cloneHandle(b.handle)
	}
	return out
}

// Len returns the number of resolved capabilities.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.arena)
}

// Dispatcher builds a dispatcher from a snapshot of the current bindings.
// Capabilities resolved later are not visible to it.
func (r *Resolver) Dispatcher() *Dispatcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slots := make([]slot, len(r.arena))
	for i, b := range r.arena {
		slots[i] = slot{handle: cloneHandle(b.handle), fn: b.fn}
	}
	return newDispatcher(slots)
}
