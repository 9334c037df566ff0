package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "signature mismatch names both signatures",
			err:      SignatureMismatch("env", "get_current_year", "() -> i32", "() -> i64"),
			contains: []string{"[linking]", "signature_mismatch", "env.get_current_year", "expected () -> i32", "got () -> i64"},
		},
		{
			name:     "minimal error",
			err:      &Error{Phase: PhaseLoad, Kind: KindLoad},
			contains: []string{"[load]", "load"},
		},
		{
			name:     "error with cause",
			err:      Trap(PhaseRuntime, "call is_leap_year", stderrors.New("integer divide by zero")),
			contains: []string{"[runtime]", "trap", "call is_leap_year", "caused by", "integer divide by zero"},
		},
		{
			name:     "expected only",
			err:      &Error{Phase: PhaseInvoke, Kind: KindArgumentMismatch, Expected: "(i32)"},
			contains: []string{"expected (i32)", "got ?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				require.Contains(t, msg, s)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Instantiation("run start routine", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, cause, stderrors.Unwrap(err))
}

func TestError_IsSentinels(t *testing.T) {
	tests := []struct {
		err      error
		sentinel *Error
	}{
		{Load("truncated section", nil), ErrLoad},
		{UnresolvedImport("env", "missing"), ErrUnresolvedImport},
		{SignatureMismatch("env", "f", "() -> i32", "() -> none"), ErrSignatureMismatch},
		{Instantiation("bind", nil), ErrInstantiation},
		{DispatchIntegrity(7, "no slot"), ErrDispatchIntegrity},
		{UnknownExport("does_not_exist"), ErrUnknownExport},
		{ArgumentMismatch("is_leap_year", "(i32)", "()"), ErrArgumentMismatch},
		{Trap(PhaseRuntime, "unreachable", nil), ErrTrap},
	}

	all := []*Error{
		ErrLoad, ErrUnresolvedImport, ErrSignatureMismatch, ErrInstantiation,
		ErrDispatchIntegrity, ErrUnknownExport, ErrArgumentMismatch, ErrTrap,
	}

	for _, tt := range tests {
		t.Run(string(tt.sentinel.Kind), func(t *testing.T) {
			require.ErrorIs(t, tt.err, tt.sentinel)
			for _, other := range all {
				if other == tt.sentinel {
					continue
				}
				require.NotErrorIs(t, tt.err, other)
			}
		})
	}
}

func TestError_IsWithPhase(t *testing.T) {
	err := Trap(PhaseDispatch, "capability failed", nil)

	require.ErrorIs(t, err, &Error{Kind: KindTrap, Phase: PhaseDispatch})
	require.NotErrorIs(t, err, &Error{Kind: KindTrap, Phase: PhaseRuntime})
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", UnknownExport("nope"))
	require.Equal(t, KindUnknownExport, KindOf(wrapped))
	require.Equal(t, Kind(""), KindOf(stderrors.New("plain")))
	require.Equal(t, Kind(""), KindOf(nil))
}

func TestBuilder(t *testing.T) {
	cause := stderrors.New("boom")
	err := New(PhaseInvoke, KindArgumentMismatch).
		Path("is_leap_year").
		Expected("(i32)").
		Actual("(i32, i32)").
		Value(2).
		Cause(cause).
		Detail("got %d arguments", 2).
		Build()

	require.Equal(t, PhaseInvoke, err.Phase)
	require.Equal(t, []string{"is_leap_year"}, err.Path)
	require.Equal(t, "(i32)", err.Expected)
	require.Equal(t, "(i32, i32)", err.Actual)
	require.Equal(t, 2, err.Value)
	require.Equal(t, "got 2 arguments", err.Detail)
	require.ErrorIs(t, err, cause)

	plain := New(PhaseHost, KindRegistration).Detail("no args %s", []any{}...).Build()
	require.Equal(t, "no args %s", plain.Detail)
}
