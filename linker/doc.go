// Package linker resolves a module's imports to host capabilities, routes
// guest calls back to them, and invokes the module's exports.
//
// # Main Types
//
//   - Resolver: maps (namespace, name) to capabilities, assigning each a
//     stable index in first-resolution order
//   - Dispatcher: index-keyed table of capabilities built from a Resolver
//   - Instantiator: binds handles to imports and creates instances
//   - Instance: running module with callable exports
//
// # Handle Indices
//
// A FunctionHandle's Index is both its position in the Resolver and its slot
// in every Dispatcher the Resolver builds. A dispatch to an index the
// resolver never assigned is a wiring bug and fails with a dispatch
// integrity error; it is never defaulted.
//
// # Thread Safety
//
// Resolver and Instantiator are safe for concurrent use.
// Instance is NOT safe for concurrent use.
//
// # Example
//
//	r := linker.NewResolver(clock)
//	handles, _ := r.ResolveImports(mod)
//	inst, _ := linker.NewInstantiator(eng, r).Instantiate(ctx, mod, handles)
//	defer inst.Close(ctx)
//	res, _ := inst.Invoke(ctx, "is_leap_year", value.I32(2024))
package linker
