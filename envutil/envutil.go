// Package envutil reads typed configuration values out of environment variables.
package envutil

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// get returns a Reader for the given environment variable key.
func get(key string) Reader[string] {
	val, ok := os.LookupEnv(key)

	return Reader[string]{
		key:     key,
		present: ok,
		value:   val,
	}
}

func apply[T any](rdr Reader[T], opts []Option[T]) Reader[T] {
	for _, opt := range opts {
		rdr = opt(rdr)
	}

	return rdr
}

// String returns a Reader for the given environment variable key.
func String(key string, opts ...Option[string]) Reader[string] {
	return apply(get(key), opts)
}

// Bool parses the variable with strconv.ParseBool.
func Bool(key string, opts ...Option[bool]) Reader[bool] {
	return apply(Map(get(key), func(s string) (bool, error) {
		return strconv.ParseBool(strings.TrimSpace(s))
	}), opts)
}

// SlogLevel parses the variable as a slog level name ("debug", "info", "warn", "error",
// optionally with an offset such as "info+2").
func SlogLevel(key string, opts ...Option[slog.Level]) Reader[slog.Level] {
	return apply(Map(get(key), ParseSlogLevel), opts)
}

// Strings splits the variable on sep, trimming whitespace and dropping empty items.
func Strings(key string, sep string, opts ...Option[[]string]) Reader[[]string] {
	return apply(Map(get(key), func(s string) ([]string, error) {
		return SplitList(s, sep), nil
	}), opts)
}

// ParseSlogLevel parses a case-insensitive slog level name.
func ParseSlogLevel(s string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s))))

	return level, err
}

// SplitList splits s on sep, trimming whitespace and dropping empty items.
func SplitList(s string, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}
