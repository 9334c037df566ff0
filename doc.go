// Package wasmhost runs core WebAssembly modules whose imports are served by
// Go capabilities.
//
// A module is loaded and validated once, its host-function imports are
// resolved by (namespace, name) against registered providers, and each
// resolved capability gets a stable index. Instantiation binds those indices
// to a per-instance dispatch table that the engine calls back into whenever
// the guest invokes an import. Exports are then invoked with typed values.
//
// # Architecture Overview
//
//	wasmhost/
//	├── runtime/         High-level API: load, register capabilities, instantiate, call
//	├── linker/          Import resolution, dispatch table, instantiation, export invocation
//	├── engine/          wazero integration: compilation cache, host modules, raw calls
//	├── module/          Immutable module descriptor: imports, exports, signatures
//	├── wasm/            Core WASM binary decoding, validation and encoding
//	├── host/            Capability providers, reflection-typed Go functions
//	│   └── timeprovider/  get_current_year backed by the wall clock or a fixed year
//	├── value/           Value kinds, tagged values, function signatures
//	├── guest/           The leap-year guest module, assembled in Go
//	├── config/          YAML configuration
//	├── metrics/         Prometheus collectors
//	├── errors/          Structured error types
//	└── cmd/             leaprun and leapgen
//
// # Quick Start
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mod.Close(ctx) // releases compiled code
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	res, err := inst.Invoke(ctx, "is_it_leap_year_now")
//
// # Booleans
//
// Booleans cross the boundary as i32: 1 is true, 0 is false. Any other i32
// where a boolean is expected is an error, never a silent coercion.
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. Instance is NOT thread-safe
// and should be used by a single goroutine, or access must be synchronized.
package wasmhost
