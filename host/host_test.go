package host

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/value"
)

func constant(v value.Value) Func {
	return func(context.Context, []value.Value) (value.Value, error) { return v, nil }
}

func TestBuilder_Func(t *testing.T) {
	p, err := NewProvider("env").
		Func("one", value.Func(value.KindI32), constant(value.I32(1))).
		Func("two", value.Func(value.KindI64, value.KindI32), constant(value.I64(2))).
		Build()
	require.NoError(t, err)

	entries := p.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "one", entries[0].Name)
	require.Equal(t, "two", entries[1].Name)

	e, ok := p.Lookup("env", "two")
	require.True(t, ok)
	require.Equal(t, "env#two (i32) -> i64", e.String())

	_, ok = p.Lookup("other", "two")
	require.False(t, ok)
}

func TestBuilder_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		build func() (*FuncProvider, error)
	}{
		{"empty name", func() (*FuncProvider, error) {
			return NewProvider("env").Func("", value.Func(value.KindI32), constant(value.I32(0))).Build()
		}},
		{"empty namespace", func() (*FuncProvider, error) {
			return NewProvider("").Func("f", value.Func(value.KindI32), constant(value.I32(0))).Build()
		}},
		{"nil func", func() (*FuncProvider, error) {
			return NewProvider("env").Func("f", value.Func(value.KindI32), nil).Build()
		}},
		{"none parameter", func() (*FuncProvider, error) {
			return NewProvider("env").Func("f", value.Func(value.KindI32, value.KindNone), constant(value.I32(0))).Build()
		}},
		{"duplicate", func() (*FuncProvider, error) {
			return NewProvider("env").
				Func("f", value.Func(value.KindI32), constant(value.I32(0))).
				Func("f", value.Func(value.KindI32), constant(value.I32(1))).
				Build()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.build()
			require.Nil(t, p)
			require.Equal(t, errors.KindRegistration, errors.KindOf(err))
		})
	}
}

func TestBuilder_Duplicate(t *testing.T) {
	_, err := NewProvider("env").
		Func("f", value.Func(value.KindI32), constant(value.I32(0))).
		Func("f", value.Func(value.KindI32), constant(value.I32(1))).
		Build()
	require.ErrorIs(t, err, ErrDuplicate)
	require.ErrorContains(t, err, "duplicate capability")
}

func TestBuilder_CopiesSignature(t *testing.T) {
	sig := value.Func(value.KindI32, value.KindI32)
	p, err := NewProvider("env").Func("f", sig, constant(value.I32(0))).Build()
	require.NoError(t, err)
	sig.Params[0] = value.KindF64

	e, _ := p.Lookup("env", "f")
	require.Equal(t, value.KindI32, e.Signature.Params[0])
}

func TestReflect_Signatures(t *testing.T) {
	tests := []struct {
		name string
		fn   any
		want value.Signature
	}{
		{"nullary i32", func() int32 { return 0 }, value.Func(value.KindI32)},
		{"context and error", func(context.Context, int32) (int32, error) { return 0, nil }, value.Func(value.KindI32, value.KindI32)},
		{"no result", func(int64, float64) {}, value.Func(value.KindNone, value.KindI64, value.KindF64)},
		{"error only", func(context.Context) error { return nil }, value.Func(value.KindNone)},
		{"bool", func(bool) bool { return true }, value.Func(value.KindI32, value.KindI32)},
		{"unsigned", func(uint32) uint64 { return 0 }, value.Func(value.KindI64, value.KindI32)},
		{"float32", func(float32) float32 { return 0 }, value.Func(value.KindF32, value.KindF32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Reflect("env", "f", tt.fn)
			require.NoError(t, err)
			require.True(t, tt.want.Equal(e.Signature), "got %s, want %s", e.Signature, tt.want)
		})
	}
}

func TestReflect_Rejects(t *testing.T) {
	for name, fn := range map[string]any{
		"not a func":     42,
		"string param":   func(string) int32 { return 0 },
		"two results":    func() (int32, int32) { return 0, 0 },
		"variadic":       func(...int32) int32 { return 0 },
		"struct result":  func() struct{} { return struct{}{} },
		"untyped nil":    nil,
		"nil typed func": (func() int32)(nil),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Reflect("env", "f", fn)
			require.Error(t, err)
		})
	}
}

func TestReflect_Call(t *testing.T) {
	e, err := Reflect("env", "add", func(ctx context.Context, a, b int32) int32 { return a + b })
	require.NoError(t, err)
	v, err := e.Func(context.Background(), []value.Value{value.I32(2), value.I32(40)})
	require.NoError(t, err)
	require.Equal(t, value.I32(42), v)

	e, err = Reflect("env", "not", func(b bool) bool { return !b })
	require.NoError(t, err)
	v, err = e.Func(context.Background(), []value.Value{value.I32(1)})
	require.NoError(t, err)
	require.Equal(t, value.I32(0), v)

	_, err = e.Func(context.Background(), []value.Value{value.I32(7)})
	require.Error(t, err, "7 is not a boolean")

	boom := stderrors.New("boom")
	e, err = Reflect("env", "fail", func() (int32, error) { return 0, boom })
	require.NoError(t, err)
	_, err = e.Func(context.Background(), nil)
	require.ErrorIs(t, err, boom)
}

type clockHost struct{ year int32 }

func (clockHost) Namespace() string { return "time-provider" }

func (h clockHost) GetCurrentYear(context.Context) int32 { return h.year }

func (clockHost) IsHTTPSEnabled() bool { return false }

func TestFromHost(t *testing.T) {
	p, err := FromHost(clockHost{year: 2024})
	require.NoError(t, err)

	e, ok := p.Lookup("time-provider", "get_current_year")
	require.True(t, ok)
	v, err := e.Func(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, value.I32(2024), v)

	_, ok = p.Lookup("time-provider", "is_https_enabled")
	require.True(t, ok)
}

type badHost struct{}

func (badHost) Namespace() string { return "" }

func TestFromHost_EmptyNamespace(t *testing.T) {
	_, err := FromHost(badHost{})
	require.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
}

func TestToSnakeCase(t *testing.T) {
	for in, want := range map[string]string{
		"GetCurrentYear": "get_current_year",
		"Year":           "year",
		"IsHTTPSEnabled": "is_https_enabled",
		"ReadURL":        "read_url",
		"":               "",
	} {
		require.Equal(t, want, ToSnakeCase(in), in)
	}
}
