// Package logging assembles the structured slog loggers used across hearth.
//
// It owns the console and JSON handlers, level and output plumbing from
// config, component-tagged child loggers, and a no-op logger for tests.
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
