package host

import (
	"context"
	"fmt"
	"reflect"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/value"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Reflect builds a capability from a typed Go function of the form
//
//	func([context.Context,] params...) [result] [error]
//
// Parameters and the result may be int32, uint32, int64, uint64, float32,
// float64 or bool. bool crosses the boundary as i32 1 or 0.
func Reflect(namespace, name string, fn any) (CapabilityEntry, error) {
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return CapabilityEntry{}, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Path(namespace, name).
			Expected("func").
			Actual(fmt.Sprintf("%T", fn)).
			Detail("handler must be a function").
			Build()
	}
	if rv.IsNil() {
		return CapabilityEntry{}, errors.InvalidInput(errors.PhaseHost, "handler is nil")
	}
	ft := rv.Type()

	mismatch := func(detail string, args ...any) error {
		return errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Path(namespace, name).
			Actual(ft.String()).
			Detail(detail, args...).
			Build()
	}

	if ft.IsVariadic() {
		return CapabilityEntry{}, mismatch("variadic functions are not supported")
	}

	first := 0
	withContext := ft.NumIn() > 0 && ft.In(0) == contextType
	if withContext {
		first = 1
	}

	var sig value.Signature
	for i := first; i < ft.NumIn(); i++ {
		k, ok := kindOfGo(ft.In(i))
		if !ok {
			return CapabilityEntry{}, mismatch("parameter %d has unsupported type %s", i, ft.In(i))
		}
		sig.Params = append(sig.Params, k)
	}

	numOut := ft.NumOut()
	withError := numOut > 0 && ft.Out(numOut-1) == errorType
	if withError {
		numOut--
	}
	switch numOut {
	case 0:
		sig.Result = value.KindNone
	case 1:
		k, ok := kindOfGo(ft.Out(0))
		if !ok {
			return CapabilityEntry{}, mismatch("result has unsupported type %s", ft.Out(0))
		}
		sig.Result = k
	default:
		return CapabilityEntry{}, mismatch("at most one result is supported")
	}

	call := func(ctx context.Context, args []value.Value) (value.Value, error) {
		in := make([]reflect.Value, 0, ft.NumIn())
		if withContext {
			in = append(in, reflect.ValueOf(ctx))
		}
		for i, a := range args {
			gv, err := toGo(a, ft.In(first+i))
			if err != nil {
				return value.None, fmt.Errorf("argument %d: %w", i, err)
			}
			in = append(in, gv)
		}

		out := rv.Call(in)
		if withError {
			if errv := out[len(out)-1]; !errv.IsNil() {
				return value.None, errv.Interface().(error)
			}
		}
		if numOut == 0 {
			return value.None, nil
		}
		return fromGo(out[0]), nil
	}

	return CapabilityEntry{
		Namespace: namespace,
		Name:      name,
		Signature: sig,
		Func:      call,
	}, nil
}

func kindOfGo(t reflect.Type) (value.Kind, bool) {
	switch t.Kind() {
	case reflect.Int32, reflect.Uint32, reflect.Bool:
		return value.KindI32, true
	case reflect.Int64, reflect.Uint64:
		return value.KindI64, true
	case reflect.Float32:
		return value.KindF32, true
	case reflect.Float64:
		return value.KindF64, true
	default:
		return value.KindNone, false
	}
}

func toGo(v value.Value, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, err := v.Bool()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case reflect.Int32:
		n, _ := v.Int32()
		out.SetInt(int64(n))
	case reflect.Uint32:
		n, _ := v.Int32()
		out.SetUint(uint64(uint32(n)))
	case reflect.Int64:
		n, _ := v.Int64()
		out.SetInt(n)
	case reflect.Uint64:
		n, _ := v.Int64()
		out.SetUint(uint64(n))
	case reflect.Float32:
		f, _ := v.Float32()
		out.SetFloat(float64(f))
	case reflect.Float64:
		f, _ := v.Float64()
		out.SetFloat(f)
	}
	return out, nil
}

func fromGo(rv reflect.Value) value.Value {
	switch rv.Kind() {
	case reflect.Bool:
		return value.Bool(rv.Bool())
	case reflect.Int32:
		return value.I32(int32(rv.Int()))
	case reflect.Uint32:
		return value.I32(int32(uint32(rv.Uint())))
	case reflect.Int64:
		return value.I64(rv.Int())
	case reflect.Uint64:
		return value.I64(int64(rv.Uint()))
	case reflect.Float32:
		return value.F32(float32(rv.Float()))
	case reflect.Float64:
		return value.F64(rv.Float())
	default:
		return value.None
	}
}
