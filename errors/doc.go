// Package errors provides structured error types for the storage bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: field path, Go/WIT type
// names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLower, errors.KindTypeMismatch).
//		Path("record", "encrypted").
//		GoType("string").
//		WitType("bool").
//		Detail("cannot convert string to bool").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MissingBackend(errors.PhaseInstall)
//	err := errors.AllocationFailed(errors.PhaseLower, 128, 4)
//
// All errors implement the standard error interface and support errors.Is/As.
//
// Errors from this package never cross the guest boundary from within a
// call: per-call failures degrade to documented default values, and these
// errors surface only in install-time results and debug logging.
package errors
