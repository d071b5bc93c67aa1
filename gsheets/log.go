package gsheets

import (
	"fmt"
	"log/slog"
)

func debugf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...), "package", "gsheets")
}

func infof(format string, args ...any) {
	slog.Info(fmt.Sprintf(format, args...), "package", "gsheets")
}

func warnf(format string, args ...any) {
	slog.Warn(fmt.Sprintf(format, args...), "package", "gsheets")
}
