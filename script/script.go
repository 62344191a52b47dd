// Package script runs a command-line entry point with logging configured,
// Ctrl+C wired to context cancellation, and the output stream installed on
// the context so dispatch operations emit to the right place.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/amp-labs/safecall/logger"
	"github.com/amp-labs/safecall/output"
)

// Option configures a Script.
type Option func(script *Script)

// Exit returns an error that makes the script exit with code without
// logging anything.
func Exit(code int) error {
	return &exitError{
		code: code,
	}
}

// ExitWithError returns an error that makes the script log err and exit 1.
func ExitWithError(err error) error {
	return &exitError{
		err:  err,
		code: 1,
	}
}

// ExitWithErrorMessage is ExitWithError with a formatted message.
func ExitWithErrorMessage(msg string, args ...any) error {
	return &exitError{
		err:  fmt.Errorf(msg, args...), //nolint:err113
		code: 1,
	}
}

type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string {
	msg := "exit " + strconv.FormatInt(int64(e.code), 10)

	if e.err != nil {
		return msg + ": " + e.err.Error()
	}

	return msg
}

func (e *exitError) Unwrap() error {
	return e.err
}

// LogLevel sets the minimum log level.
func LogLevel(lvl slog.Level) Option {
	return func(script *Script) {
		script.loggerOpts = append(script.loggerOpts, logger.WithMinLevel(lvl))
	}
}

// LogJSON switches log output to JSON.
func LogJSON(enabled bool) Option {
	return func(script *Script) {
		script.loggerOpts = append(script.loggerOpts, logger.WithJSON(enabled))
	}
}

// LogOutput sets where logs go. Defaults to stderr.
func LogOutput(writer io.Writer) Option {
	return func(script *Script) {
		script.loggerOpts = append(script.loggerOpts, logger.WithOutput(writer))
	}
}

// Output sets the stream emitted text is written to. Defaults to stdout.
func Output(writer io.Writer) Option {
	return func(script *Script) {
		script.stdout = writer
	}
}

// Script is a runnable entry point.
type Script struct {
	name       string
	stdout     io.Writer
	loggerOpts []logger.Option
}

// New creates a Script called name. The name becomes the logging subsystem.
func New(scriptName string, opts ...Option) *Script {
	script := &Script{
		name:   scriptName,
		stdout: os.Stdout,
	}

	for _, opt := range opts {
		opt(script)
	}

	return script
}

// Run executes f and exits the process with its exit code. It does not return.
func (r *Script) Run(f func(ctx context.Context) error) {
	os.Exit(r.Exec(f))
}

// Exec executes f and returns the exit code: 0 on success, the code carried
// by an Exit error, or 1 for any other error. The context passed to f is
// canceled on SIGINT.
func (r *Script) Exec(callback func(ctx context.Context) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_ = logger.ConfigureLogging(r.name, r.loggerOpts...)

	ctx = output.WithWriter(ctx, r.stdout)
	log := logger.Get(ctx)

	if callback == nil {
		log.Error("callback is nil")

		return 1
	}

	err := callback(ctx)
	if err == nil {
		return 0
	}

	var exitErr *exitError

	if errors.As(err, &exitErr) {
		if exitErr.code != 0 {
			log.Error("error running script", "error", err)
		}

		return exitErr.code
	}

	log.Error("error running script", "error", err)

	return 1
}
