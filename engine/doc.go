// Package engine wraps wazero, the bytecode execution engine.
//
// # Architecture
//
//	WazeroEngine   - owns the compilation cache shared by all instances
//	WazeroModule   - a compiled module, can create instances
//	WazeroInstance - a running module with its own wazero runtime
//
// Every WazeroInstance gets a private wazero runtime. Host functions are
// registered as one host module per import namespace inside that runtime,
// so two instances importing the same names never share or collide on host
// state. The shared compilation cache keeps per-instance compilation cheap.
//
// # Value Encoding
//
// Host functions and export calls exchange value.Value; the engine encodes
// them on wazero's uint64 stack with the api.Encode*/Decode* helpers.
//
// # Thread Safety
//
// WazeroEngine and WazeroModule are safe for concurrent use.
// WazeroInstance is NOT thread-safe and should be used by a single goroutine.
//
// Most users should use the runtime package for a simpler API.
package engine
