package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AnnotateError attaches slog key-value pairs to err. When the error is later
// logged through a handler installed by ConfigureLoggingWithOptions, the pairs
// show up as regular attributes. Returns nil if err is nil.
//
//	return logger.AnnotateError(err, "script", path)
func AnnotateError(err error, args ...any) error {
	if err == nil {
		return nil
	}

	r := slog.NewRecord(time.Now(), slog.LevelDebug, "", 0)
	r.Add(args...)

	var errAttrs []slog.Attr

	r.Attrs(func(attr slog.Attr) bool {
		errAttrs = append(errAttrs, attr)

		return true
	})

	return &annotatedError{
		err:   err,
		attrs: errAttrs,
	}
}

type annotatedError struct {
	err   error
	attrs []slog.Attr
}

func (a *annotatedError) Error() string {
	return a.err.Error()
}

func (a *annotatedError) Unwrap() error {
	return a.err
}

var _ error = (*annotatedError)(nil)

// annotationHandler unpacks annotated errors found in a record's attributes.
type annotationHandler struct {
	inner slog.Handler
}

var _ slog.Handler = (*annotationHandler)(nil)

func (h *annotationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *annotationHandler) Handle(ctx context.Context, record slog.Record) error {
	var (
		baseAttrs []slog.Attr
		errAttrs  []slog.Attr
	)

	record.Attrs(func(attr slog.Attr) bool {
		var ae *annotatedError

		if err, ok := attr.Value.Any().(error); ok && errors.As(err, &ae) {
			baseAttrs = append(baseAttrs, slog.Any(attr.Key, ae.err))
			errAttrs = append(errAttrs, ae.attrs...)
		} else {
			baseAttrs = append(baseAttrs, attr)
		}

		return true
	})

	if len(errAttrs) == 0 {
		return h.inner.Handle(ctx, record)
	}

	r := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	r.AddAttrs(baseAttrs...)
	r.AddAttrs(errAttrs...)

	return h.inner.Handle(ctx, r)
}

func (h *annotationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &annotationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *annotationHandler) WithGroup(name string) slog.Handler {
	return &annotationHandler{inner: h.inner.WithGroup(name)}
}

// NewAnnotationHandler wraps inner so that annotated errors are unpacked.
func NewAnnotationHandler(inner slog.Handler) slog.Handler {
	if _, ok := inner.(*annotationHandler); ok {
		return inner
	}

	return &annotationHandler{inner: inner}
}
