package guest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-host/wasm"
)

func TestBuild_Structure(t *testing.T) {
	m, err := wasm.ParseModuleValidate(LeapYear(Options{Namespace: NamespaceTimeProvider, Divide: true, Start: StartNop}))
	require.NoError(t, err)

	require.Len(t, m.Imports, 1)
	require.Equal(t, NamespaceTimeProvider, m.Imports[0].Module)
	require.Equal(t, ImportCurrentYear, m.Imports[0].Name)

	var names []string
	for _, e := range m.Exports {
		names = append(names, e.Name)
	}
	require.Equal(t, []string{ExportIsLeapYear, ExportIsLeapYearNow, ExportDivide}, names)
	require.NotNil(t, m.Start)
}

func TestBuild_DefaultsToEnv(t *testing.T) {
	m := Build(Options{})
	require.Equal(t, NamespaceEnv, m.Imports[0].Module)
	require.Nil(t, m.Start)
}

func TestBuild_WithoutClock(t *testing.T) {
	m, err := wasm.ParseModuleValidate(LeapYear(Options{WithoutClock: true}))
	require.NoError(t, err)
	require.Empty(t, m.Imports)
	require.Len(t, m.Exports, 1)
	require.Equal(t, uint32(0), m.Exports[0].Idx)
}

// TestLeapYear_Executes runs the assembled module directly on wazero,
// independent of the host packages.
func TestLeapYear_Executes(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	_, err := r.NewHostModuleBuilder(NamespaceEnv).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeI32(2024)
		}), nil, []api.ValueType{api.ValueTypeI32}).
		Export(ImportCurrentYear).
		Instantiate(ctx)
	require.NoError(t, err)

	mod, err := r.Instantiate(ctx, LeapYear(Options{}))
	require.NoError(t, err)

	isLeap := mod.ExportedFunction(ExportIsLeapYear)
	for year := int32(-800); year <= 2800; year++ {
		res, err := isLeap.Call(ctx, api.EncodeI32(year))
		require.NoError(t, err)
		want := uint64(0)
		if IsLeapYear(year) {
			want = 1
		}
		require.Equal(t, want, res[0], "year %d", year)
	}

	res, err := mod.ExportedFunction(ExportIsLeapYearNow).Call(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res[0])
}

func TestIsLeapYear(t *testing.T) {
	cases := map[int32]bool{2000: true, 1900: false, 2022: false, 2024: true, 2400: true, 2100: false}
	for year, want := range cases {
		require.Equal(t, want, IsLeapYear(year), "year %d", year)
	}
}
