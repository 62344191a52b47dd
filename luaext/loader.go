package luaext

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	amperrors "github.com/amp-labs/safecall/errors"
	"github.com/amp-labs/safecall/logger"
	"github.com/amp-labs/safecall/should"
	lua "github.com/yuin/gopher-lua"
)

// ScriptExt is the file extension LoadDir picks up.
const ScriptExt = ".lua"

// LoadString compiles and runs src as a chunk called name. Functions it
// defines become resolvable.
func (e *Extension) LoadString(ctx context.Context, name string, src string) error {
	return e.load(ctx, name, strings.NewReader(src))
}

// LoadFile runs the script at path.
func (e *Extension) LoadFile(ctx context.Context, path string) error {
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		return err
	}

	defer should.Close(ctx, file, "failed to close script file")

	return e.load(ctx, path, file)
}

// LoadDir runs every *.lua file directly inside dir, in name order. A script
// that fails does not stop the rest; failures are logged and returned joined.
func (e *Extension) LoadDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var errs amperrors.Collection

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ScriptExt {
			continue
		}

		errs.Add(e.loadLogged(ctx, filepath.Join(dir, entry.Name())))
	}

	return errs.GetError()
}

// Load accepts any mix of script files and directories. Like LoadDir it keeps
// going past failures.
func (e *Extension) Load(ctx context.Context, paths ...string) error {
	var errs amperrors.Collection

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			logger.Get(ctx).Error("lua extension path unavailable", "path", path, "error", err)
			errs.Add(logger.AnnotateError(err, "path", path))

			continue
		}

		if info.IsDir() {
			errs.Add(e.LoadDir(ctx, path))
		} else {
			errs.Add(e.loadLogged(ctx, path))
		}
	}

	return errs.GetError()
}

func (e *Extension) loadLogged(ctx context.Context, path string) error {
	if err := e.LoadFile(ctx, path); err != nil {
		logger.Get(ctx).Error("failed to load lua extension", "path", path, "error", err)

		return logger.AnnotateError(err, "path", path)
	}

	logger.Get(ctx).Debug("loaded lua extension", "path", path)

	return nil
}

func (e *Extension) load(ctx context.Context, name string, src io.Reader) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return ErrClosed
	}

	state := e.state
	top := state.GetTop()

	defer state.SetTop(top)

	chunk, err := state.Load(src, name)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrScript, name, err)
	}

	if ctx != nil {
		state.SetContext(ctx)
		defer state.RemoveContext()
	}

	state.Push(chunk)

	if err := state.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrScript, name, err)
	}

	return nil
}
