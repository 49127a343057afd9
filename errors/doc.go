// Package errors provides structured error types for the typegraph library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the type name, an optional member path, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindOutOfBounds).
//		TypeName("packet_header").
//		Path("flags", "ttl").
//		Detail("offset %d past end of type", 96).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Cyclic("outer", "inner")
//	err := errors.Persist("create member", cause)
//
// Matching works against the sentinels with the standard library:
//
//	if stderrors.Is(err, errors.ErrCyclicReference) { ... }
//
// Not-found during offset resolution is not an error; the resolver returns an
// invalid result instead.
package errors
