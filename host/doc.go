// Package host defines capabilities: named, typed Go functions a guest module
// may import.
//
// A CapabilityProvider offers entries keyed by (namespace, name). Providers
// are built explicitly:
//
//	p, err := host.NewProvider("env").
//	    Func("get_current_year", value.Func(value.KindI32), func(ctx context.Context, _ []value.Value) (value.Value, error) {
//	        return value.I32(int32(time.Now().Year())), nil
//	    }).
//	    Build()
//
// from typed Go functions with Reflect, or from a struct with FromHost,
// whose exported methods are offered in snake_case.
//
// Go bool parameters and results cross the boundary as i32 1 or 0.
package host
