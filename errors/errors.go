package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad        Phase = "load"        // binary decoding
	PhaseHost        Phase = "host"        // capability registration
	PhaseLinking     Phase = "linking"     // import resolution
	PhaseInstantiate Phase = "instantiate" // binding and start routine
	PhaseDispatch    Phase = "dispatch"    // guest to host calls
	PhaseInvoke      Phase = "invoke"      // host to guest calls
	PhaseRuntime     Phase = "runtime"     // engine execution
	PhaseConfig      Phase = "config"      // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindLoad              Kind = "load"
	KindUnresolvedImport  Kind = "unresolved_import"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindInstantiation     Kind = "instantiation"
	KindDispatchIntegrity Kind = "dispatch_integrity"
	KindUnknownExport     Kind = "unknown_export"
	KindArgumentMismatch  Kind = "argument_mismatch"
	KindTrap              Kind = "trap"
	KindInvalidInput      Kind = "invalid_input"
	KindRegistration      Kind = "registration"
	KindNotInitialized    Kind = "not_initialized"
	KindTypeMismatch      Kind = "type_mismatch"
)

// Sentinels for errors.Is. They match any Error of the same Kind regardless of Phase.
var (
	ErrLoad              = &Error{Kind: KindLoad}
	ErrUnresolvedImport  = &Error{Kind: KindUnresolvedImport}
	ErrSignatureMismatch = &Error{Kind: KindSignatureMismatch}
	ErrInstantiation     = &Error{Kind: KindInstantiation}
	ErrDispatchIntegrity = &Error{Kind: KindDispatchIntegrity}
	ErrUnknownExport     = &Error{Kind: KindUnknownExport}
	ErrArgumentMismatch  = &Error{Kind: KindArgumentMismatch}
	ErrTrap              = &Error{Kind: KindTrap}
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Expected string
	Actual   string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	hasTypes := e.Expected != "" || e.Actual != ""
	if hasTypes {
		b.WriteString(": expected ")
		b.WriteString(orUnknown(e.Expected))
		b.WriteString(", got ")
		b.WriteString(orUnknown(e.Actual))
	}

	if e.Detail != "" {
		if hasTypes {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the Kind of the outermost *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the path (namespace, name, export...)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Expected sets the expected type or signature
func (b *Builder) Expected(s string) *Builder {
	b.err.Expected = s
	return b
}

// Actual sets the offered or observed type or signature
func (b *Builder) Actual(s string) *Builder {
	b.err.Actual = s
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoad,
		Detail: detail,
		Cause:  cause,
	}
}

// UnresolvedImport reports an import no registered provider offers
func UnresolvedImport(namespace, name string) *Error {
	return &Error{
		Phase:  PhaseLinking,
		Kind:   KindUnresolvedImport,
		Path:   []string{namespace, name},
		Detail: fmt.Sprintf("no capability %s#%s registered", namespace, name),
	}
}

// SignatureMismatch reports an import whose expected signature differs from the offered one
func SignatureMismatch(namespace, name, expected, actual string) *Error {
	return &Error{
		Phase:    PhaseLinking,
		Kind:     KindSignatureMismatch,
		Path:     []string{namespace, name},
		Expected: expected,
		Actual:   actual,
	}
}

// Instantiation creates an instantiation error
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// DispatchIntegrity reports a dispatcher asked for a slot the resolver never assigned
func DispatchIntegrity(index int, detail string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindDispatchIntegrity,
		Detail: detail,
		Value:  index,
	}
}

// UnknownExport reports a call to an export the module does not declare
func UnknownExport(name string) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindUnknownExport,
		Path:   []string{name},
		Detail: fmt.Sprintf("export %q not found", name),
	}
}

// ArgumentMismatch reports caller arguments that do not fit an export's signature
func ArgumentMismatch(name, expected, actual string) *Error {
	return &Error{
		Phase:    PhaseInvoke,
		Kind:     KindArgumentMismatch,
		Path:     []string{name},
		Expected: expected,
		Actual:   actual,
	}
}

// Trap wraps a runtime fault raised while guest or host code was executing
func Trap(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTrap,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error for missing module/instance
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, expected, actual string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		Expected: expected,
		Actual:   actual,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
