// Package timeprovider offers get_current_year: () -> i32 to guest modules.
package timeprovider

import (
	"context"
	"time"

	"github.com/wippyai/wasm-host/host"
	"github.com/wippyai/wasm-host/value"
)

// FuncName is the capability name guests import.
const FuncName = "get_current_year"

// Default namespaces: env is what toolchains emit for a bare extern
// declaration, time-provider is the explicitly linked form.
var DefaultNamespaces = []string{"env", "time-provider"}

// Signature of get_current_year.
var Signature = value.Func(value.KindI32)

// Clock reports the current year.
type Clock interface {
	Year(ctx context.Context) int32
}

// ClockFunc adapts a function to Clock.
type ClockFunc func(ctx context.Context) int32

// Year implements Clock.
func (f ClockFunc) Year(ctx context.Context) int32 {
	return f(ctx)
}

// Wall reads the local wall clock.
func Wall() Clock {
	return ClockFunc(func(context.Context) int32 {
		return int32(time.Now().Year())
	})
}

// Fixed always reports year.
func Fixed(year int32) Clock {
	return ClockFunc(func(context.Context) int32 {
		return year
	})
}

// New returns a provider offering get_current_year under each namespace,
// or under DefaultNamespaces when none are given. A nil clock is Wall.
func New(clock Clock, namespaces ...string) (*host.FuncProvider, error) {
	if clock == nil {
		clock = Wall()
	}
	if len(namespaces) == 0 {
		namespaces = DefaultNamespaces
	}
	fn := func(ctx context.Context, _ []value.Value) (value.Value, error) {
		return value.I32(clock.Year(ctx)), nil
	}

	b := host.NewProvider(namespaces[0])
	for _, ns := range namespaces {
		b.Entry(host.CapabilityEntry{
			Namespace: ns,
			Name:      FuncName,
			Signature: Signature,
			Func:      fn,
		})
	}
	return b.Build()
}
