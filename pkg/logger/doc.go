// Package logger builds the structured slog logger shared by every mode of
// the panel: text output in development, JSON in production, each record
// tagged with the environment.
package logger
