// Package errors provides structured error types for the nskeyed library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: the key path from the
// archive root, the offending object-table reference, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindMalformedCollection).
//		Path("root", "items").
//		Ref(12).
//		Detail("NS.keys and NS.objects lengths differ").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.DanglingReference(path, 42, 17)
//	err := errors.CyclicReference(path, 7)
//
// All errors implement the standard error interface and support errors.Is/As;
// Is matches on the Phase and Kind pair.
package errors
