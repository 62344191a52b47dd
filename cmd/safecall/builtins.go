package main

import (
	"fmt"
	"strings"

	"github.com/amp-labs/safecall/callable"
)

// builtins are the Go functions always available to the command line.
func builtins() *callable.Registry {
	reg := callable.NewRegistry()

	reg.MustRegister("upper", strings.ToUpper)
	reg.MustRegister("lower", strings.ToLower)
	reg.MustRegister("repeat", func(s string, count int) string {
		return strings.Repeat(s, max(count, 0))
	})
	reg.MustRegister("echo", func(args ...any) string {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = fmt.Sprint(arg)
		}

		return strings.Join(parts, " ")
	})
	reg.MustRegister("sum", func(nums ...float64) float64 {
		var total float64
		for _, n := range nums {
			total += n
		}

		return total
	})
	reg.MustRegister("missing", func(ref callable.Ref, args ...any) string {
		return fmt.Sprintf("%s is not available (called with %d arguments)", ref, len(args))
	})

	return reg
}
