package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseValidate Phase = "validate" // argument and invariant checks
	PhasePersist  Phase = "persist"  // backend writes
	PhaseLoad     Phase = "load"     // backend reads and graph construction
	PhaseResolve  Phase = "resolve"  // offset resolution
	PhaseSync     Phase = "sync"     // external backend changes applied to the graph
	PhaseImport   Phase = "import"   // seeding from external type definitions
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindInvalidCategory Kind = "invalid_category"
	KindCyclicReference Kind = "cyclic_reference"
	KindSelfReference   Kind = "self_reference"
	KindNotFound        Kind = "not_found"
	KindNotContiguous   Kind = "not_contiguous"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindInUse           Kind = "in_use"
	KindDuplicate       Kind = "duplicate"
	KindBackend         Kind = "backend"
	KindSchema          Kind = "schema"
	KindUnsupported     Kind = "unsupported"
)

// Sentinels for errors.Is. Matching compares Phase and Kind only, so each
// sentinel matches errors of its own phase: ErrNotFound and
// ErrCyclicReference cover argument validation, the Load and Sync variants
// cover records read from a backend.
var (
	ErrInvalidInput     = &Error{Phase: PhaseValidate, Kind: KindInvalidInput}
	ErrInvalidCategory  = &Error{Phase: PhaseValidate, Kind: KindInvalidCategory}
	ErrCyclicReference  = &Error{Phase: PhaseValidate, Kind: KindCyclicReference}
	ErrSelfReference    = &Error{Phase: PhaseValidate, Kind: KindSelfReference}
	ErrNotContiguous    = &Error{Phase: PhaseValidate, Kind: KindNotContiguous}
	ErrOutOfBounds      = &Error{Phase: PhaseValidate, Kind: KindOutOfBounds}
	ErrTypeInUse        = &Error{Phase: PhaseValidate, Kind: KindInUse}
	ErrDuplicate        = &Error{Phase: PhaseValidate, Kind: KindDuplicate}
	ErrNotFound         = &Error{Phase: PhaseValidate, Kind: KindNotFound}
	ErrLoadNotFound     = &Error{Phase: PhaseLoad, Kind: KindNotFound}
	ErrSyncNotFound     = &Error{Phase: PhaseSync, Kind: KindNotFound}
	ErrLoadCyclic       = &Error{Phase: PhaseLoad, Kind: KindCyclicReference}
	ErrBackend          = &Error{Phase: PhasePersist, Kind: KindBackend}
	ErrSchema           = &Error{Phase: PhaseLoad, Kind: KindSchema}
	ErrUnsupportedInput = &Error{Phase: PhaseImport, Kind: KindUnsupported}
)

// Error is the structured error type used throughout the type graph
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	TypeName string
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

	if e.TypeName != "" {
		b.WriteString(": type ")
		b.WriteString(e.TypeName)
	}

	if e.Detail != "" {
		if e.TypeName != "" {
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

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
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

// Path sets the member path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// TypeName sets the name of the type involved
func (b *Builder) TypeName(name string) *Builder {
	b.err.TypeName = name
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

// Convenience constructors for common error patterns

// InvalidInput creates an argument validation error
func InvalidInput(detail string, args ...any) *Error {
	return New(PhaseValidate, KindInvalidInput).Detail(detail, args...).Build()
}

// InvalidCategory creates an error for an operation applied to the wrong category
func InvalidCategory(typeName, category, operation string) *Error {
	return &Error{
		Phase:    PhaseValidate,
		Kind:     KindInvalidCategory,
		TypeName: typeName,
		Detail:   fmt.Sprintf("%s is not supported for %s types", operation, category),
		Value:    category,
	}
}

// Cyclic creates an error for a member or pointer relation that would form a cycle
func Cyclic(container, member string) *Error {
	return &Error{
		Phase:    PhaseValidate,
		Kind:     KindCyclicReference,
		TypeName: container,
		Detail:   fmt.Sprintf("adding a member of type %s would create a cyclic reference", member),
	}
}

// SelfReference creates an error for a type that refers directly to itself
func SelfReference(typeName, relation string) *Error {
	return &Error{
		Phase:    PhaseValidate,
		Kind:     KindSelfReference,
		TypeName: typeName,
		Detail:   relation + " cannot refer to its own type",
	}
}

// NotFound creates an error for a missing type, member or substitution
func NotFound(phase Phase, what string, id int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %d not found", what, id),
		Value:  id,
	}
}

// OutOfBounds creates an error for an offset outside the containing type
func OutOfBounds(typeName string, offset, limit int) *Error {
	return &Error{
		Phase:    PhaseValidate,
		Kind:     KindOutOfBounds,
		TypeName: typeName,
		Detail:   fmt.Sprintf("bit offset %d outside [0, %d]", offset, limit),
		Value:    offset,
	}
}

// NotContiguous creates an error for a member block with gaps or overlaps
func NotContiguous(typeName string, path []string) *Error {
	return &Error{
		Phase:    PhaseValidate,
		Kind:     KindNotContiguous,
		TypeName: typeName,
		Path:     path,
		Detail:   "members are not offset-contiguous",
	}
}

// InUse creates an error for a type that is still referenced
func InUse(typeName, by string) *Error {
	return &Error{
		Phase:    PhaseValidate,
		Kind:     KindInUse,
		TypeName: typeName,
		Detail:   "still referenced by " + by,
	}
}

// Persist wraps a backend failure
func Persist(operation string, cause error) *Error {
	return &Error{
		Phase:  PhasePersist,
		Kind:   KindBackend,
		Detail: operation,
		Cause:  cause,
	}
}

// Unsupported creates an unsupported input error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
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
