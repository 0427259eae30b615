// Package logging assembles the structured slog loggers used across grd.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and defines the standardized field keys (component, event_type,
// delivery_type, ...) so every component emits lines with the same shape.
// NewNop provides a discard logger for tests and wiring code that cannot fail.
package logging
