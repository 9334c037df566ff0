package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-host/guest"
	"github.com/wippyai/wasm-host/module"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerate_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leap.wasm")
	out, err := execute(t, "-o", path, "--namespace", guest.NamespaceTimeProvider)
	require.NoError(t, err)
	require.Contains(t, out, "1 imports, 2 exports")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	mod, err := module.Load(data)
	require.NoError(t, err)
	require.Equal(t, guest.NamespaceTimeProvider, mod.Imports()[0].Namespace)
}

func TestGenerate_Stdout(t *testing.T) {
	out, err := execute(t, "-o", "-", "--without-clock", "--divide", "--start", "nop")
	require.NoError(t, err)

	mod, err := module.Load([]byte(out))
	require.NoError(t, err)
	require.Empty(t, mod.Imports())
	_, ok := mod.Export(guest.ExportDivide)
	require.True(t, ok)
	_, ok = mod.Start()
	require.True(t, ok)
}

func TestGenerate_Rejects(t *testing.T) {
	_, err := execute(t, "--start", "later")
	require.ErrorContains(t, err, "unknown start routine")

	_, err = execute(t, "extra")
	require.Error(t, err)
}
