package value

import (
	"slices"

	"github.com/tetratelabs/wazero/api"
)

// Signature is an ordered parameter list plus an optional result.
// Result is KindNone when the function returns nothing.
type Signature struct {
	Params []Kind
	Result Kind
}

// Func builds a signature from a result kind and parameter kinds.
func Func(result Kind, params ...Kind) Signature {
	return Signature{Params: params, Result: result}
}

// Equal reports whether both parameter sequences and results match exactly.
// There is no coercion between kinds.
func (s Signature) Equal(o Signature) bool {
	return s.Result == o.Result && slices.Equal(s.Params, o.Params)
}

// Accepts reports whether args have exactly the kinds of s.Params.
func (s Signature) Accepts(args []Value) bool {
	if len(args) != len(s.Params) {
		return false
	}
	for i, a := range args {
		if a.Kind() != s.Params[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of s that shares no memory with it.
func (s Signature) Clone() Signature {
	return Signature{Params: slices.Clone(s.Params), Result: s.Result}
}

// String renders "(i32, i32) -> i32" or "() -> none".
func (s Signature) String() string {
	return FormatKinds(s.Params) + " -> " + s.Result.String()
}

// ValueTypes returns the engine parameter and result types.
func (s Signature) ValueTypes() (params, results []api.ValueType) {
	params = make([]api.ValueType, 0, len(s.Params))
	for _, k := range s.Params {
		vt, _ := k.ValueType()
		params = append(params, vt)
	}
	if vt, ok := s.Result.ValueType(); ok {
		results = []api.ValueType{vt}
	} else {
		results = []api.ValueType{}
	}
	return params, results
}
