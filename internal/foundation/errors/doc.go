// Package errors provides the classified error primitives shared by the Cortex
// exercise synchronization service.
//
// A ClassifiedError carries a category, a severity and a retry hint so that
// callers (scheduler, reconciler, CLI) can decide what to do with a failure
// without parsing error strings:
//
//	err := errors.WrapError(cause, errors.CategoryGit, "fetch failed").
//		WithContext("url", repoURL).
//		Build()
//
// The CLI adapter maps categories to process exit codes.
package errors
