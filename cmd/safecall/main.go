// Command safecall dispatches to Go builtins and Lua extension functions
// that may or may not be loaded.
//
//	safecall [-config file] [-scripts a.lua,dir/] call     <ref> [args...]
//	safecall [-config file] [-scripts a.lua,dir/] emit     <ref> [args...]
//	safecall [-config file] [-scripts a.lua,dir/] fallback <ref> <fallback-ref> [args...]
//	safecall [-config file] [-scripts a.lua,dir/] message  <ref> <message> [args...]
//	safecall [-config file] [-scripts a.lua,dir/] list
//
// A ref is a function name or table:method for a method on a global Lua
// table. Arguments are parsed as integers, then floats, else kept as strings.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/amp-labs/safecall/config"
	"github.com/amp-labs/safecall/envutil"
	"github.com/amp-labs/safecall/logger"
	"github.com/amp-labs/safecall/script"
)

func main() {
	configPath := flag.String("config", "", "config file (.toml, .yaml or .yml)")
	scripts := flag.String("scripts", "", "comma separated Lua files or directories, added to the configured ones")
	flag.Usage = usage
	flag.Parse()

	cfg, err := loadConfig(context.Background(), *configPath, *scripts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "safecall:", err)
		os.Exit(2) //nolint:mnd
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "safecall: log level:", err)
		os.Exit(2) //nolint:mnd
	}

	script.New("safecall",
		script.LogLevel(level),
		script.LogJSON(cfg.Log.JSON),
	).Run(func(ctx context.Context) error {
		return run(ctx, cfg, flag.Args())
	})
}

func loadConfig(ctx context.Context, path string, scripts string) (config.Config, error) {
	var cfg config.Config

	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}

		cfg = loaded
	}

	cfg = config.ApplyEnv(ctx, cfg)
	cfg.Scripts = append(cfg.Scripts, envutil.SplitList(scripts, ",")...)

	logger.Get(ctx).Debug("configuration loaded", "path", path, "scripts", cfg.Scripts)

	return cfg, nil
}

func usage() {
	out := flag.CommandLine.Output()

	fmt.Fprintln(out, "usage: safecall [flags] <command> [arguments]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "commands:")
	fmt.Fprintln(out, "  call     <ref> [args...]                 call ref if it exists, print its result")
	fmt.Fprintln(out, "  emit     <ref> [args...]                 call ref if it exists, emit a truthy result")
	fmt.Fprintln(out, "  fallback <ref> <fallback> [args...]      call ref, or fallback(ref, args...)")
	fmt.Fprintln(out, "  message  <ref> <message> [args...]       call ref, or emit message")
	fmt.Fprintln(out, "  list                                     list available functions")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "flags:")
	flag.PrintDefaults()
}
