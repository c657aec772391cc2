package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output keeps the
// webhook reconciliation trail machine-parseable for operators.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
