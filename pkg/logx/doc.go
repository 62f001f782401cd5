// Package logx wraps zerolog behind a small Logger type with
// slog-style field helpers. The zero value is a safe no-op logger,
// so components can hold a Logger without nil checks.
package logx
