// Package runtime provides the high-level API for loading core WebAssembly
// modules, wiring their imports to Go capabilities and calling their exports.
//
// # Quick Start
//
//	ctx := context.Background()
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
//	res, err := inst.Invoke(ctx, "is_leap_year", value.I32(2024))
//	fmt.Println(res) // I32(1)
//
// # Capabilities
//
// get_current_year: () -> i32 is built in and offered under the namespaces
// of config.TimeProvider (env and time-provider by default). Anything else
// is registered before instantiation:
//
//	// A typed Go function
//	rt.RegisterFunc("env", "log_year", func(ctx context.Context, y int32) {})
//
//	// Every exported method of a struct, named in snake_case
//	rt.RegisterHost(myHost)
//
//	// Any host.CapabilityProvider
//	rt.Register(provider)
//
// Providers registered first win when two offer the same name, and all of
// them are consulted before the built-in clock.
//
// # Typed Calls
//
// Core modules carry only numeric types. LoadWithWIT attaches WIT
// declarations so Call can take and return Go values:
//
//	mod, err := rt.LoadWithWIT(ctx, wasmBytes, `
//	    is-leap-year: func(year: s32) -> bool;
//	`)
//	leap, err := inst.Call(ctx, "is-leap-year", int32(2024)) // true
//
// A WIT bool travels as i32 1/0; any other i32 in a bool result is an error.
//
// # Observability
//
// Load, Instantiate and Invoke open the otel spans wasmhost.load,
// wasmhost.instantiate and wasmhost.invoke. WithMetrics registers the
// Prometheus collectors of the metrics package. WithLogger sets the logger of
// this package and of the linker and engine packages.
package runtime
