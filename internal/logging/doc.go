// Package logging centralizes slog construction and the structured field
// conventions used across the daemon: item IDs, stage names, and correlation
// identifiers travel on the context and are stamped onto every log line via
// WithContext.
package logging
