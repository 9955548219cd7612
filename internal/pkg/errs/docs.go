// Package errs provides the structured error types shared by the dispatch
// domain and its adapters.
//
// Every error type follows the same pattern:
//   - a sentinel (ErrObjectNotFound, ErrValueIsInvalid, ...) usable with errors.Is
//   - a struct carrying the parameter name and optional cause
//   - New...Error and New...ErrorWithCause constructors
//
// ObjectNotFoundError additionally unwraps to its Cause, which repositories use
// to attach an aggregate-specific sentinel:
//
//	return errs.NewObjectNotFoundErrorWithCause("delivery", id, ports.ErrDeliveryNotFound)
//
//	errors.Is(err, errs.ErrObjectNotFound)    // true
//	errors.Is(err, ports.ErrDeliveryNotFound) // true
package errs
