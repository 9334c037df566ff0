package linker

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/host"
	"github.com/wippyai/wasm-host/metrics"
	"github.com/wippyai/wasm-host/value"
)

type slot struct {
	fn     host.Func
	handle FunctionHandle
	calls  atomic.Uint64
}

// Dispatcher routes guest-to-host calls by handle index in constant time.
// It is built by Resolver.Dispatcher, so slot i always holds the capability
// the resolver assigned index i.
type Dispatcher struct {
	metrics *metrics.Metrics
	slots   []slot
}

func newDispatcher(slots []slot) *Dispatcher {
	return &Dispatcher{slots: slots}
}

// Len returns the number of slots.
func (d *Dispatcher) Len() int {
	return len(d.slots)
}

// Handle returns the handle bound at index.
func (d *Dispatcher) Handle(index int) (FunctionHandle, bool) {
	if index < 0 || index >= len(d.slots) {
		return FunctionHandle{}, false
	}
	return cloneHandle(d.slots[index].handle), true
}

// Calls returns how many times the capability at index was dispatched.
func (d *Dispatcher) Calls(index int) uint64 {
	if index < 0 || index >= len(d.slots) {
		return 0
	}
	return d.slots[index].calls.Load()
}

// Invoke runs the capability at index.
//
// An index the resolver never assigned, or arguments that do not match the
// bound signature, can only come from a wiring bug and fail with a dispatch
// integrity error. A failing capability, or one returning the wrong kind,
// fails with a trap.
func (d *Dispatcher) Invoke(ctx context.Context, index int, args []value.Value) (value.Value, error) {
	if index < 0 || index >= len(d.slots) {
		err := errors.DispatchIntegrity(index, fmt.Sprintf("no capability bound at index %d (%d slots)", index, len(d.slots)))
		Logger().Error("dispatch to unknown index", zap.Int("index", index), zap.Int("slots", len(d.slots)))
		return value.None, err
	}

	s := &d.slots[index]
	h := s.handle
	if !h.Signature.Accepts(args) {
		err := errors.New(errors.PhaseDispatch, errors.KindDispatchIntegrity).
			Path(h.Namespace, h.Name).
			Value(index).
			Expected(value.FormatKinds(h.Signature.Params)).
			Actual(value.FormatKinds(value.Kinds(args))).
			Detail("arguments do not match bound signature").
			Build()
		Logger().Error("dispatch argument mismatch",
			zap.Int("index", index),
			zap.String("namespace", h.Namespace),
			zap.String("name", h.Name),
			zap.Error(err))
		return value.None, err
	}

	s.calls.Add(1)
	d.metrics.HostCall(h.Namespace, h.Name)

	res, err := s.fn(ctx, args)
	if err != nil {
		Logger().Debug("capability failed",
			zap.String("namespace", h.Namespace),
			zap.String("name", h.Name),
			zap.Error(err))
		return value.None, errors.New(errors.PhaseDispatch, errors.KindTrap).
			Path(h.Namespace, h.Name).
			Cause(err).
			Detail("capability failed").
			Build()
	}
	if res.Kind() != h.Signature.Result {
		return value.None, errors.New(errors.PhaseDispatch, errors.KindTrap).
			Path(h.Namespace, h.Name).
			Expected(h.Signature.Result.String()).
			Actual(res.Kind().String()).
			Detail("capability returned wrong kind").
			Build()
	}
	return res, nil
}
