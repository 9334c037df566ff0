package runtime

import (
	"fmt"
	"regexp"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/module"
	"github.com/wippyai/wasm-host/value"
)

type funcSignature struct {
	params  []wit.Type
	results []wit.Type
}

// Pattern: [export] name: func(params) -> result;
var funcPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// parseWitFunctions extracts function signatures from WIT text.
func parseWitFunctions(witText string) (map[string]*funcSignature, error) {
	funcs := make(map[string]*funcSignature)

	for _, match := range funcPattern.FindAllStringSubmatch(witText, -1) {
		name := match[1]
		paramsStr := strings.TrimSpace(match[2])
		resultStr := strings.TrimSpace(match[3])

		sig := &funcSignature{}
		if paramsStr != "" {
			for _, p := range strings.Split(paramsStr, ",") {
				typStr := p
				if idx := strings.LastIndex(p, ":"); idx != -1 {
					typStr = p[idx+1:]
				}
				t, err := wit.ParseType(strings.TrimSpace(typStr))
				if err != nil {
					return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "parse param type "+typStr)
				}
				sig.params = append(sig.params, t)
			}
		}

		if resultStr != "" && resultStr != "()" {
			t, err := wit.ParseType(resultStr)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "parse result type "+resultStr)
			}
			sig.results = []wit.Type{t}
		}

		funcs[name] = sig
	}

	if len(funcs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "no functions found in WIT text")
	}

	return funcs, nil
}

// checkWitExports verifies each WIT function against the module's export of
// the same name.
func checkWitExports(desc *module.Module, funcs map[string]*funcSignature) error {
	for name, sig := range funcs {
		exp, ok := desc.Export(name)
		if !ok {
			return errors.New(errors.PhaseLoad, errors.KindUnknownExport).
				Path(name).
				Detail("WIT declares %q but the module does not export it", name).
				Build()
		}
		want, err := sig.core()
		if err != nil {
			return errors.New(errors.PhaseLoad, errors.KindTypeMismatch).Path(name).Cause(err).Build()
		}
		if !want.Equal(exp.Signature) {
			return errors.New(errors.PhaseLoad, errors.KindTypeMismatch).
				Path(name).
				Expected(want.String()).
				Actual(exp.Signature.String()).
				Detail("WIT declaration does not match export").
				Build()
		}
	}
	return nil
}

// core returns the core signature the WIT function lowers to.
func (s *funcSignature) core() (value.Signature, error) {
	var sig value.Signature
	for _, t := range s.params {
		k, ok := witKind(t)
		if !ok {
			return value.Signature{}, fmt.Errorf("unsupported WIT type %s", witName(t))
		}
		sig.Params = append(sig.Params, k)
	}
	for _, t := range s.results {
		k, ok := witKind(t)
		if !ok {
			return value.Signature{}, fmt.Errorf("unsupported WIT type %s", witName(t))
		}
		sig.Result = k
	}
	return sig, nil
}

// witKind maps WIT scalars to the core kind carrying them.
func witKind(t wit.Type) (value.Kind, bool) {
	switch t.(type) {
	case wit.Bool, wit.S32, wit.U32:
		return value.KindI32, true
	case wit.S64, wit.U64:
		return value.KindI64, true
	case wit.F32:
		return value.KindF32, true
	case wit.F64:
		return value.KindF64, true
	default:
		return value.KindNone, false
	}
}

func witName(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.S32:
		return "s32"
	case wit.U32:
		return "u32"
	case wit.S64:
		return "s64"
	case wit.U64:
		return "u64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// lower converts a Go argument to the core value of t.
func lower(t wit.Type, a any) (value.Value, error) {
	switch t.(type) {
	case wit.Bool:
		if b, ok := a.(bool); ok {
			return value.Bool(b), nil
		}
	case wit.S32:
		switch v := a.(type) {
		case int32:
			return value.I32(v), nil
		case int:
			if int(int32(v)) == v {
				return value.I32(int32(v)), nil
			}
		}
	case wit.U32:
		if v, ok := a.(uint32); ok {
			return value.I32(int32(v)), nil
		}
	case wit.S64:
		switch v := a.(type) {
		case int64:
			return value.I64(v), nil
		case int:
			return value.I64(int64(v)), nil
		}
	case wit.U64:
		if v, ok := a.(uint64); ok {
			return value.I64(int64(v)), nil
		}
	case wit.F32:
		if v, ok := a.(float32); ok {
			return value.F32(v), nil
		}
	case wit.F64:
		if v, ok := a.(float64); ok {
			return value.F64(v), nil
		}
	}
	return value.None, fmt.Errorf("cannot lower %T to %s", a, witName(t))
}

// lift converts a core result to the Go value of t.
func lift(t wit.Type, v value.Value) (any, error) {
	switch t.(type) {
	case wit.Bool:
		return v.Bool()
	case wit.S32:
		if n, ok := v.Int32(); ok {
			return n, nil
		}
	case wit.U32:
		if n, ok := v.Int32(); ok {
			return uint32(n), nil
		}
	case wit.S64:
		if n, ok := v.Int64(); ok {
			return n, nil
		}
	case wit.U64:
		if n, ok := v.Int64(); ok {
			return uint64(n), nil
		}
	case wit.F32:
		if f, ok := v.Float32(); ok {
			return f, nil
		}
	case wit.F64:
		if f, ok := v.Float64(); ok {
			return f, nil
		}
	}
	return nil, fmt.Errorf("cannot lift %s to %s", v.Kind(), witName(t))
}
