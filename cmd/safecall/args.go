package main

import (
	"strconv"
	"strings"

	"github.com/amp-labs/safecall/callable"
)

// parseRef turns "name" into a function name and "table:method" into a
// method on a global Lua table.
func parseRef(raw string) callable.Ref {
	if table, method, ok := strings.Cut(raw, ":"); ok {
		return callable.Method(table, method)
	}

	return callable.Name(raw)
}

// parseArgs converts command line arguments: integers first, then floats,
// everything else stays a string.
func parseArgs(raw []string) []any {
	args := make([]any, len(raw))

	for i, arg := range raw {
		if n, err := strconv.Atoi(arg); err == nil {
			args[i] = n
		} else if f, err := strconv.ParseFloat(arg, 64); err == nil {
			args[i] = f
		} else {
			args[i] = arg
		}
	}

	return args
}
