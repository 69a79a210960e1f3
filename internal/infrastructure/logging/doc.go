// Package logging provides structured logging for goveedeck.
//
// It wraps log/slog with configuration-driven level/format selection and
// default service fields. Library packages do not import this package
// directly; they accept a minimal Logger interface so tests can substitute
// a no-op or recording implementation.
package logging
