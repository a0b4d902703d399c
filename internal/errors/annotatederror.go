// Package errors extends the standard library errors with annotations that end up in structured logs.
//
// Wrap attaches a message, [slog.Attr] annotations and the caller location to an error. SlogError turns the whole
// chain into a single slog group so that a log line shows where the error originated and with which parameters.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
)

// annotatedError is an error with a message, slog annotations and the location where it was created.
type annotatedError struct {
	msg         string
	err         error
	annotations []slog.Attr
	source      string
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// NewSentinel creates a sentinel error intended to be declared as a package level variable.
func NewSentinel(msg string) error {
	return stderrors.New(msg) //nolint:err113 // this is the sentinel constructor.
}

// New is the same as [stderrors.New] but records the caller location.
func New(msg string, annotations ...slog.Attr) error {
	return &annotatedError{
		msg:         msg,
		err:         nil,
		annotations: annotations,
		source:      callerSource(2), //nolint:mnd // skip New and callerSource.
	}
}

// Wrap annotates err with msg and the given attributes. It returns nil if err is nil.
func Wrap(err error, msg string, annotations ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotatedError{
		msg:         msg,
		err:         err,
		annotations: annotations,
		source:      callerSource(2), //nolint:mnd // skip Wrap and callerSource.
	}
}

// DecoratePanic converts a recovered panic value to an error pointing to the line that panicked.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	cause, ok := excp.(error)
	if !ok {
		cause = stderrors.New(fmt.Sprint(excp)) //nolint:err113 // panic value is dynamic.
	}
	return &annotatedError{
		msg:         "panic",
		err:         cause,
		annotations: nil,
		source:      panicSource(),
	}
}

// SlogError converts err into a slog group with the message, origin and collected annotations.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Group("error", slog.String("message", "<nil>"))
	}

	var (
		annotations []any
		source      string
	)
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		var ae *annotatedError
		if !stderrors.As(e, &ae) {
			break
		}
		for _, a := range ae.annotations {
			annotations = append(annotations, a)
		}
		// The innermost location is where the error originated.
		source = ae.source
		e = ae
	}

	attrs := []any{slog.String("message", err.Error())}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	return slog.Group("error", attrs...)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

func callerSource(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return file + ":" + strconv.Itoa(line)
}

// panicSource walks the stack to the frame that called panic.
func panicSource() string {
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	afterPanic := false
	for {
		frame, more := frames.Next()
		if afterPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return frame.File + ":" + strconv.Itoa(frame.Line)
		}
		if frame.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			break
		}
	}
	return callerSource(3) //nolint:mnd // skip panicSource, DecoratePanic and callerSource.
}
