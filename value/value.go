// Package value is the tagged representation of the primitive values that
// cross the host/guest boundary, and of the function signatures that type them.
//
// The core WebAssembly binary format has no boolean type. Booleans travel as
// i32 with 1 for true and 0 for false; Bool and Value.Bool implement that
// convention on both sides of the boundary.
package value

import (
	"fmt"
	"math"
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// Kind identifies the type of a Value.
type Kind byte

const (
	KindNone Kind = iota // absence of a value
	KindI32
	KindI64
	KindF32
	KindF64
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// ValueType returns the engine value type for k. KindNone has no engine type.
func (k Kind) ValueType() (api.ValueType, bool) {
	switch k {
	case KindI32:
		return api.ValueTypeI32, true
	case KindI64:
		return api.ValueTypeI64, true
	case KindF32:
		return api.ValueTypeF32, true
	case KindF64:
		return api.ValueTypeF64, true
	default:
		return 0, false
	}
}

// KindOf maps an engine value type to a Kind.
func KindOf(vt api.ValueType) (Kind, bool) {
	switch vt {
	case api.ValueTypeI32:
		return KindI32, true
	case api.ValueTypeI64:
		return KindI64, true
	case api.ValueTypeF32:
		return KindF32, true
	case api.ValueTypeF64:
		return KindF64, true
	default:
		return KindNone, false
	}
}

// Value is a tagged primitive. The zero Value is "none".
type Value struct {
	bits uint64
	kind Kind
}

// None is the absent value returned by functions without a result.
var None = Value{}

func I32(v int32) Value {
	return Value{kind: KindI32, bits: api.EncodeI32(v)}
}

func I64(v int64) Value {
	return Value{kind: KindI64, bits: api.EncodeI64(v)}
}

func F32(v float32) Value {
	return Value{kind: KindF32, bits: api.EncodeF32(v)}
}

func F64(v float64) Value {
	return Value{kind: KindF64, bits: api.EncodeF64(v)}
}

// Bool encodes b as an i32: 1 for true, 0 for false.
func Bool(b bool) Value {
	if b {
		return I32(1)
	}
	return I32(0)
}

// Decode rebuilds a Value of the given kind from its raw engine stack slot.
func Decode(kind Kind, raw uint64) Value {
	switch kind {
	case KindI32:
		return I32(api.DecodeI32(raw))
	case KindI64:
		return I64(int64(raw))
	case KindF32:
		return F32(api.DecodeF32(raw))
	case KindF64:
		return F64(api.DecodeF64(raw))
	default:
		return None
	}
}

// Encode returns the raw engine stack slot for v.
func (v Value) Encode() uint64 {
	return v.bits
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNone() bool {
	return v.kind == KindNone
}

// Int32 returns the i32 payload. ok is false for any other kind.
func (v Value) Int32() (int32, bool) {
	if v.kind != KindI32 {
		return 0, false
	}
	return api.DecodeI32(v.bits), true
}

func (v Value) Int64() (int64, bool) {
	if v.kind != KindI64 {
		return 0, false
	}
	return int64(v.bits), true
}

func (v Value) Float32() (float32, bool) {
	if v.kind != KindF32 {
		return 0, false
	}
	return api.DecodeF32(v.bits), true
}

func (v Value) Float64() (float64, bool) {
	if v.kind != KindF64 {
		return 0, false
	}
	return api.DecodeF64(v.bits), true
}

// Bool decodes an i32 under the boolean convention.
// Only 0 and 1 are valid; anything else, or a non-i32 value, is an error.
func (v Value) Bool() (bool, error) {
	n, ok := v.Int32()
	if !ok {
		return false, fmt.Errorf("boolean must be i32, got %s", v.kind)
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("i32 %d is not a boolean (want 0 or 1)", n)
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindI32:
		return fmt.Sprintf("I32(%d)", api.DecodeI32(v.bits))
	case KindI64:
		return fmt.Sprintf("I64(%d)", int64(v.bits))
	case KindF32:
		return fmt.Sprintf("F32(%g)", api.DecodeF32(v.bits))
	case KindF64:
		return fmt.Sprintf("F64(%g)", math.Float64frombits(v.bits))
	default:
		return "None"
	}
}

// Kinds returns the kinds of vals in order.
func Kinds(vals []Value) []Kind {
	kinds := make([]Kind, len(vals))
	for i, v := range vals {
		kinds[i] = v.kind
	}
	return kinds
}

// FormatKinds renders a parameter list like "(i32, i64)".
func FormatKinds(kinds []Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = k.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
