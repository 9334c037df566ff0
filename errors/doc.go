// Package errors provides structured error types for the wasm-host runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the path (namespace, name or export), the expected and
// actual signatures when types disagree, and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseInvoke, errors.KindArgumentMismatch).
//		Path("is_leap_year").
//		Expected("(i32)").
//		Actual("(i64)").
//		Build()
//
// Or use convenience constructors for the runtime's failure taxonomy:
//
//	err := errors.UnresolvedImport("env", "get_current_year")
//	err := errors.SignatureMismatch("env", "get_current_year", "() -> i32", "() -> i64")
//
// Callers classify failures with errors.Is against the package sentinels:
//
//	if errors.Is(err, errors.ErrUnknownExport) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
