package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
	logFileMaxAgeDays = 28
)

// NewLogger creates a text logger writing to sink through a [ContextHandler].
func NewLogger(sink io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewContextHandler(slog.NewTextHandler(sink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: nil,
	})))
}

// Sink returns the writer the application logs to.
//
// Without a path the logs go only to out. With a path they are also appended to a size-rotated file so that a
// session on the device can be inspected after the fact. The returned close function must be called on exit.
func Sink(out io.Writer, path string) (io.Writer, func() error) {
	if path == "" {
		return out, func() error { return nil }
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logFileMaxSizeMB,
		MaxAge:     logFileMaxAgeDays,
		MaxBackups: logFileMaxBackups,
		LocalTime:  true,
		Compress:   false,
	}
	return io.MultiWriter(out, file), file.Close
}
