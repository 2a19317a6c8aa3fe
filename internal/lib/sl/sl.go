// Package sl provides small helpers for structured logging with slog.
package sl

import "log/slog"

// Err returns a slog.Attr with the key "error" and the error text, so error
// fields look the same everywhere in the logs.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
