// Package guest assembles the leap-year guest module used by the CLI and
// by end-to-end tests.
//
// The module exports:
//
//	is_leap_year(year: i32) -> i32      proleptic Gregorian rule, 1 or 0
//	is_it_leap_year_now() -> i32        is_leap_year(get_current_year())
//
// and imports get_current_year: () -> i32 from a configurable namespace.
package guest

import "github.com/wippyai/wasm-host/wasm"

// Export and import names of the leap-year contract.
const (
	ExportIsLeapYear    = "is_leap_year"
	ExportIsLeapYearNow = "is_it_leap_year_now"
	ExportDivide        = "divide"
	ImportCurrentYear   = "get_current_year"

	// NamespaceEnv is what toolchains emit for a bare extern declaration.
	NamespaceEnv = "env"
	// NamespaceTimeProvider is the explicitly linked namespace.
	NamespaceTimeProvider = "time-provider"
)

// Start selects the start routine added to the module.
type Start int

const (
	StartNone Start = iota
	// StartNop runs a routine that does nothing.
	StartNop
	// StartTrap runs a routine that executes unreachable.
	StartTrap
	// StartCallHost runs a routine that calls get_current_year and drops the result.
	StartCallHost
)

// Options configures the assembled module.
type Options struct {
	// Namespace of the get_current_year import. Empty means NamespaceEnv.
	Namespace string
	// WithoutClock drops the import and is_it_leap_year_now.
	WithoutClock bool
	// Divide adds divide(a, b: i32) -> i32, which traps on b == 0.
	Divide bool
	Start  Start
}

// LeapYear returns the encoded leap-year module.
func LeapYear(opts Options) []byte {
	return Build(opts).Encode()
}

// Build returns the leap-year module before encoding.
func Build(opts Options) *wasm.Module {
	ns := opts.Namespace
	if ns == "" {
		ns = NamespaceEnv
	}

	m := &wasm.Module{}
	i32 := []wasm.ValType{wasm.ValI32}
	unary := m.AddType(wasm.FuncType{Params: i32, Results: i32})
	nullary := m.AddType(wasm.FuncType{Results: i32})

	var next uint32
	funcIdx := func() uint32 { next++; return next - 1 }

	var getYear uint32
	if !opts.WithoutClock {
		m.Imports = append(m.Imports, wasm.Import{
			Module: ns,
			Name:   ImportCurrentYear,
			Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: nullary},
		})
		getYear = funcIdx()
	}

	isLeap := funcIdx()
	addFunc(m, unary, isLeapYearBody())
	export(m, ExportIsLeapYear, isLeap)

	if !opts.WithoutClock {
		now := funcIdx()
		addFunc(m, nullary, wasm.NewCode().Call(getYear).Call(isLeap).End().Bytes())
		export(m, ExportIsLeapYearNow, now)
	}

	if opts.Divide {
		binop := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}, Results: i32})
		div := funcIdx()
		addFunc(m, binop, wasm.NewCode().LocalGet(0).LocalGet(1).Op(wasm.OpI32DivS).End().Bytes())
		export(m, ExportDivide, div)
	}

	var startBody []byte
	switch opts.Start {
	case StartNop:
		startBody = wasm.NewCode().End().Bytes()
	case StartTrap:
		startBody = wasm.NewCode().Op(wasm.OpUnreachable).End().Bytes()
	case StartCallHost:
		if opts.WithoutClock {
			startBody = wasm.NewCode().End().Bytes()
		} else {
			startBody = wasm.NewCode().Call(getYear).Op(wasm.OpDrop).End().Bytes()
		}
	}
	if startBody != nil {
		void := m.AddType(wasm.FuncType{})
		start := funcIdx()
		addFunc(m, void, startBody)
		m.Start = &start
	}

	return m
}

// isLeapYearBody computes
//
//	year%4 == 0 && (year%100 != 0 || year%400 == 0)
//
// with signed remainders, so negative (proleptic) years work too.
func isLeapYearBody() []byte {
	return wasm.NewCode().
		LocalGet(0).I32Const(4).Op(wasm.OpI32RemS).Op(wasm.OpI32Eqz).
		LocalGet(0).I32Const(100).Op(wasm.OpI32RemS).I32Const(0).Op(wasm.OpI32Ne).
		LocalGet(0).I32Const(400).Op(wasm.OpI32RemS).Op(wasm.OpI32Eqz).
		Op(wasm.OpI32Or).
		Op(wasm.OpI32And).
		End().Bytes()
}

func addFunc(m *wasm.Module, typeIdx uint32, code []byte) {
	m.Funcs = append(m.Funcs, typeIdx)
	m.Code = append(m.Code, wasm.FuncBody{Code: code})
}

func export(m *wasm.Module, name string, idx uint32) {
	m.Exports = append(m.Exports, wasm.Export{Name: name, Kind: wasm.KindFunc, Idx: idx})
}

// IsLeapYear is the reference predicate the guest implements.
func IsLeapYear(year int32) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
