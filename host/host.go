package host

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/wippyai/wasm-host/errors"
)

// Host is the interface for struct-based capability sets.
// All exported methods except Namespace become capabilities.
type Host interface {
	// Namespace returns the import namespace the methods are offered under.
	Namespace() string
}

// FromHost builds a provider from h's exported methods, named in snake_case:
// GetCurrentYear is offered as get_current_year. Each method must have a
// shape accepted by Reflect.
func FromHost(h Host) (*FuncProvider, error) {
	if h == nil {
		return nil, errors.InvalidInput(errors.PhaseHost, "host is nil")
	}
	ns := h.Namespace()
	if ns == "" {
		return nil, errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}

	b := NewProvider(ns)
	rv := reflect.ValueOf(h)
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "Namespace" {
			continue
		}
		b.Reflect(ToSnakeCase(method.Name), rv.Method(i).Interface())
	}
	return b.Build()
}

// ToSnakeCase converts PascalCase to snake_case.
// Handles acronyms: GetHTTPServer -> get_http_server
func ToSnakeCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsUpper(r) {
			acronymEnd := i + 1
			for acronymEnd < len(runes) && unicode.IsUpper(runes[acronymEnd]) {
				acronymEnd++
			}

			if acronymEnd > i+1 {
				// Last uppercase before lowercase starts next word, not part of acronym
				if acronymEnd < len(runes) && unicode.IsLower(runes[acronymEnd]) {
					acronymEnd--
				}
			}

			if i > 0 {
				result.WriteByte('_')
			}

			for j := i; j < acronymEnd; j++ {
				result.WriteRune(unicode.ToLower(runes[j]))
			}
			i = acronymEnd - 1
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
