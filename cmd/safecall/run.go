package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"slices"

	"facette.io/natsort"
	"github.com/amp-labs/safecall/callable"
	"github.com/amp-labs/safecall/config"
	"github.com/amp-labs/safecall/dispatch"
	"github.com/amp-labs/safecall/logger"
	"github.com/amp-labs/safecall/luaext"
	"github.com/amp-labs/safecall/output"
	"github.com/amp-labs/safecall/script"
	"github.com/amp-labs/safecall/should"
)

var errUsage = errors.New("usage")

// run executes one command. Extension load failures are logged, not fatal:
// a missing extension is exactly what the dispatch operations tolerate.
func run(ctx context.Context, cfg config.Config, args []string) error {
	if len(args) == 0 {
		usage()

		return script.Exit(2) //nolint:mnd
	}

	ext, err := newExtension(ctx, cfg)
	if err != nil {
		return script.ExitWithError(err)
	}

	defer should.Close(ctx, ext, "failed to close lua extension")

	registry := builtins()
	d := dispatch.New(callable.Chain(registry, ext))

	err = execute(ctx, d, registry, ext, args[0], args[1:])
	if errors.Is(err, errUsage) {
		if !errors.Is(errUsage, err) {
			fmt.Fprintln(flag.CommandLine.Output(), err)
		}

		usage()

		return script.Exit(2) //nolint:mnd
	}

	return err
}

func newExtension(ctx context.Context, cfg config.Config) (*luaext.Extension, error) {
	ext, err := luaext.New(luaext.WithGlobal("emit", emitFromLua))
	if err != nil {
		return nil, err
	}

	if len(cfg.Scripts) > 0 {
		if err := ext.Load(ctx, cfg.Scripts...); err != nil {
			logger.Get(ctx).Warn("some extensions failed to load", "error", err)
		}
	}

	names := make([]string, 0, len(cfg.Inline))
	for name := range cfg.Inline {
		names = append(names, name)
	}

	natsort.Sort(names)

	for _, name := range names {
		if err := ext.LoadString(ctx, name, cfg.Inline[name]); err != nil {
			logger.Get(ctx).Warn("inline extension failed to load", "name", name, "error", err)
		}
	}

	return ext, nil
}

// emitFromLua lets scripts write to the output stream of the dispatch that
// invoked them.
func emitFromLua(ctx context.Context, value any) error {
	return output.Emit(ctx, fmt.Sprint(value))
}

func execute(
	ctx context.Context,
	d *dispatch.Dispatcher,
	registry *callable.Registry,
	ext *luaext.Extension,
	command string,
	args []string,
) error {
	switch command {
	case "call":
		if len(args) < 1 {
			return errUsage
		}

		res, err := d.CallIfExists(ctx, parseRef(args[0]), parseArgs(args[1:])...)

		return printResult(ctx, res, err)
	case "emit":
		if len(args) < 1 {
			return errUsage
		}

		res, err := d.CallAndEmitIfExists(ctx, parseRef(args[0]), parseArgs(args[1:])...)
		if err != nil {
			return err
		}

		if res.Truthy() {
			return output.Emit(ctx, "\n")
		}

		return nil
	case "fallback":
		if len(args) < 2 { //nolint:mnd
			return errUsage
		}

		res, err := d.CallWithFallbackIfExists(ctx, parseRef(args[0]), parseRef(args[1]), parseArgs(args[2:])...)

		return printResult(ctx, res, err)
	case "message":
		if len(args) < 2 { //nolint:mnd
			return errUsage
		}

		res, err := d.CallWithMessageIfMissing(ctx, parseRef(args[0]), args[1], parseArgs(args[2:])...)
		if err != nil {
			return err
		}

		if res.Empty() && args[1] != "" {
			return output.Emit(ctx, "\n")
		}

		return printResult(ctx, res, nil)
	case "list":
		for _, name := range listFunctions(registry, ext) {
			if err := output.Emit(ctx, name+"\n"); err != nil {
				return err
			}
		}

		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printResult(ctx context.Context, res callable.Result, err error) error {
	if err != nil {
		return err
	}

	if res.Empty() {
		return nil
	}

	return output.Emit(ctx, res.Text()+"\n")
}

func listFunctions(registry *callable.Registry, ext *luaext.Extension) []string {
	names := append(registry.Names(), ext.Functions()...)

	natsort.Sort(names)

	return slices.Compact(names)
}
