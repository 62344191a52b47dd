// Package output carries the "current output stream" on a context.Context.
//
// Dispatch operations that emit text write to whatever writer the context
// carries, falling back to os.Stdout. Capture is the buffering counterpart:
// everything emitted inside the callback is collected instead of written.
package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrEmit wraps write failures on the output stream.
var ErrEmit = errors.New("output: emit failed")

type contextKey string

const writerKey contextKey = "writer"

// WithWriter returns a context whose output stream is w. A nil w discards output.
func WithWriter(ctx context.Context, w io.Writer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	if w == nil {
		w = io.Discard
	}

	return context.WithValue(ctx, writerKey, w)
}

// Writer returns the output stream carried by ctx, or os.Stdout.
func Writer(ctx context.Context) io.Writer {
	if ctx != nil {
		if w, ok := ctx.Value(writerKey).(io.Writer); ok {
			return w
		}
	}

	return os.Stdout
}

// Emit appends text to the output stream. Empty text writes nothing.
func Emit(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	if _, err := io.WriteString(Writer(ctx), text); err != nil {
		return fmt.Errorf("%w: %w", ErrEmit, err)
	}

	return nil
}

// Capture runs fn with an output stream that buffers into memory and returns
// what was emitted, along with fn's error. Captures nest: the inner capture
// sees only its own output.
func Capture(ctx context.Context, fn func(ctx context.Context) error) (string, error) {
	var buf bytes.Buffer

	err := fn(WithWriter(ctx, &buf))

	return buf.String(), err
}
