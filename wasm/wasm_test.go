package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// leapModule builds a module importing env.get_current_year and exporting
// a function that returns it.
func leapModule() *Module {
	m := &Module{}
	year := m.AddType(FuncType{Results: []ValType{ValI32}})
	m.Imports = []Import{{Module: "env", Name: "get_current_year", Desc: ImportDesc{Kind: KindFunc, TypeIdx: year}}}
	m.Funcs = []uint32{year}
	m.Code = []FuncBody{{Code: NewCode().Call(0).End().Bytes()}}
	m.Exports = []Export{{Name: "now", Kind: KindFunc, Idx: 1}}
	return m
}

func TestParseModule_RoundTrip(t *testing.T) {
	m := leapModule()
	m.Memories = []MemoryType{{Limits: Limits{Min: 1}}}
	m.Globals = []Global{{Type: GlobalType{ValType: ValI32, Mutable: true}, Init: NewCode().I32Const(-3).End().Bytes()}}
	m.CustomSections = []CustomSection{{Name: "producers", Data: []byte{1, 2, 3}}}

	parsed, err := ParseModuleValidate(m.Encode())
	require.NoError(t, err)

	require.Equal(t, m.Types, parsed.Types)
	require.Equal(t, m.Imports, parsed.Imports)
	require.Equal(t, m.Funcs, parsed.Funcs)
	require.Equal(t, m.Exports, parsed.Exports)
	require.Equal(t, m.Globals, parsed.Globals)
	require.Equal(t, m.CustomSections, parsed.CustomSections)
	require.Len(t, parsed.Code, 1)
	require.Equal(t, m.Code[0].Code, parsed.Code[0].Code)
	require.Equal(t, 1, parsed.NumImportedFuncs())

	ft := parsed.GetFuncType(1)
	require.NotNil(t, ft)
	require.Equal(t, []ValType{ValI32}, ft.Results)
	require.Nil(t, parsed.GetFuncType(2))
}

func TestParseModule_Empty(t *testing.T) {
	m, err := ParseModuleValidate([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	require.Empty(t, m.Imports)
	require.Empty(t, m.Exports)
}

func TestParseModule_Header(t *testing.T) {
	_, err := ParseModule([]byte{0x00, 0x61, 0x73})
	require.Error(t, err)

	_, err = ParseModule([]byte{0x00, 0x61, 0x73, 0x6E, 0x01, 0x00, 0x00, 0x00})
	require.ErrorIs(t, err, ErrInvalidMagic)

	_, err = ParseModule([]byte{0x00, 0x61, 0x73, 0x6D, 0x02, 0x00, 0x00, 0x00})
	require.ErrorIs(t, err, ErrInvalidVersion)

	_, err = ParseModule(nil)
	require.Error(t, err)
}

func TestParseModule_Truncated(t *testing.T) {
	data := leapModule().Encode()
	for _, n := range []int{9, 11, len(data) - 1} {
		_, err := ParseModule(data[:n])
		require.Error(t, err, "prefix of %d bytes", n)
	}
}

func TestParseModule_SectionOrder(t *testing.T) {
	data := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	// export section (empty) followed by a type section (empty)
	data = append(data, SectionExport, 0x01, 0x00, SectionType, 0x01, 0x00)
	_, err := ParseModule(data)
	require.ErrorContains(t, err, "out of order")
}

func TestParseModule_UnknownSection(t *testing.T) {
	data := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, 0x20, 0x00}
	_, err := ParseModule(data)
	require.ErrorContains(t, err, "unknown section")
}

func TestParseModule_TrailingSectionBytes(t *testing.T) {
	data := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	data = append(data, SectionType, 0x02, 0x00, 0xFF)
	_, err := ParseModule(data)
	require.ErrorIs(t, err, ErrTrailingBytes)
}

func TestParseModule_Unsupported(t *testing.T) {
	t.Run("v128 param", func(t *testing.T) {
		m := &Module{Types: []FuncType{{Params: []ValType{ValV128}}}}
		_, err := ParseModule(m.Encode())
		require.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("multi-value", func(t *testing.T) {
		m := &Module{Types: []FuncType{{Results: []ValType{ValI32, ValI32}}}}
		_, err := ParseModule(m.Encode())
		require.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("tag section", func(t *testing.T) {
		data := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, SectionTag, 0x01, 0x00}
		_, err := ParseModule(data)
		require.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("gc type form", func(t *testing.T) {
		data := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, SectionType, 0x02, 0x01, 0x5F}
		_, err := ParseModule(data)
		require.ErrorIs(t, err, ErrUnsupported)
	})
}

func TestParseModule_CodeCountMismatch(t *testing.T) {
	m := leapModule()
	m.Code = nil
	_, err := ParseModule(m.Encode())
	require.ErrorContains(t, err, "counts differ")
}

func TestValidate(t *testing.T) {
	t.Run("bad type index", func(t *testing.T) {
		m := leapModule()
		m.Funcs[0] = 7
		require.ErrorContains(t, m.Validate(), "invalid type index")
	})

	t.Run("bad import type index", func(t *testing.T) {
		m := leapModule()
		m.Imports[0].Desc.TypeIdx = 3
		require.ErrorContains(t, m.Validate(), "invalid type index")
	})

	t.Run("bad export index", func(t *testing.T) {
		m := leapModule()
		m.Exports[0].Idx = 5
		require.ErrorContains(t, m.Validate(), "invalid function index")
	})

	t.Run("duplicate export", func(t *testing.T) {
		m := leapModule()
		m.Exports = append(m.Exports, m.Exports[0])
		require.ErrorContains(t, m.Validate(), "duplicate export")
	})

	t.Run("start with params", func(t *testing.T) {
		m := leapModule()
		start := uint32(1)
		m.Start = &start
		require.ErrorContains(t, m.Validate(), "start function")
	})

	t.Run("start out of range", func(t *testing.T) {
		m := leapModule()
		start := uint32(9)
		m.Start = &start
		require.ErrorContains(t, m.Validate(), "exceeds function count")
	})

	t.Run("memory too large", func(t *testing.T) {
		m := leapModule()
		m.Memories = []MemoryType{{Limits: Limits{Min: MemoryMaxPages + 1}}}
		require.ErrorContains(t, m.Validate(), "exceeds maximum")
	})
}

func TestAddType_Dedup(t *testing.T) {
	m := &Module{}
	a := m.AddType(FuncType{Params: []ValType{ValI32}, Results: []ValType{ValI32}})
	b := m.AddType(FuncType{Results: []ValType{ValI32}})
	c := m.AddType(FuncType{Params: []ValType{ValI32}, Results: []ValType{ValI32}})
	require.Equal(t, uint32(0), a)
	require.Equal(t, uint32(1), b)
	require.Equal(t, a, c)
	require.Len(t, m.Types, 2)
}

func TestCodeBuilder(t *testing.T) {
	code := NewCode().LocalGet(0).I32Const(4).Op(OpI32RemS).Op(OpI32Eqz).End().Bytes()
	require.Equal(t, []byte{OpLocalGet, 0x00, OpI32Const, 0x04, OpI32RemS, OpI32Eqz, OpEnd}, code)

	code = NewCode().I32Const(-1).If(BlockI32).I32Const(1).Else().I32Const(0).End().End().Bytes()
	require.Equal(t, []byte{OpI32Const, 0x7F, OpIf, BlockI32, OpI32Const, 0x01, OpElse, OpI32Const, 0x00, OpEnd, OpEnd}, code)
}
