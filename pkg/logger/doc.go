// Package logger builds the process-wide structured logger. It wraps log/slog,
// selecting a JSON handler in production and a human-readable text handler
// everywhere else, and tags every record with the deployment environment.
package logger
