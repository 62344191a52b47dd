package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/amp-labs/safecall/callable"
	"github.com/amp-labs/safecall/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const missingMessage = "does not exist"

func sfcTestRealFunction(arg1 any, arg2 any) string {
	return fmt.Sprintf("%v + %v", arg1, orEmpty(arg2))
}

func sfcTestFallback(_ callable.Ref, arg1 any, arg2 any) string {
	return fmt.Sprintf("%v / %v", arg1, orEmpty(arg2))
}

func orEmpty(v any) any {
	if v == nil {
		return ""
	}

	return v
}

type testObject struct{}

func (testObject) RealObjectFunction(arg1 any, arg2 any) string {
	return fmt.Sprintf("%v + %v", orEmpty(arg2), arg1)
}

func (testObject) Fallback(_ callable.Ref, arg1 any, arg2 any) string {
	return fmt.Sprintf("%v * %v", arg1, orEmpty(arg2))
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	reg := callable.NewRegistry()
	reg.MustRegister("sfc_test_real_function", sfcTestRealFunction)
	reg.MustRegister("sfc_test_fallback", sfcTestFallback)

	return New(reg)
}

// capture runs fn against a buffered output stream and returns what was emitted.
func capture(t *testing.T, fn func(ctx context.Context) (callable.Result, error)) (callable.Result, string) {
	t.Helper()

	var res callable.Result

	out, err := output.Capture(t.Context(), func(ctx context.Context) error {
		var err error

		res, err = fn(ctx)

		return err
	})
	require.NoError(t, err)

	return res, out
}

func TestCallIfExists(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	obj := testObject{}

	t.Run("nonexistent function", func(t *testing.T) {
		t.Parallel()

		res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallIfExists(ctx, "doesnt_exist", 5, "a")
		})
		assert.True(t, res.Empty())
		assert.Empty(t, out)

		res, err := d.CallIfExists(t.Context(), []any{obj, "fake_object_function"}, 5, "a")
		require.NoError(t, err)
		assert.True(t, res.Empty())
	})

	t.Run("existing function", func(t *testing.T) {
		t.Parallel()

		res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallIfExists(ctx, "sfc_test_real_function", 5, "a")
		})
		assert.Equal(t, callable.Some("5 + a"), res)
		assert.Empty(t, out)

		res, err := d.CallIfExists(t.Context(), []any{obj, "RealObjectFunction"}, 5, "a")
		require.NoError(t, err)
		assert.Equal(t, callable.Some("a + 5"), res)
	})

	t.Run("malformed references are simply missing", func(t *testing.T) {
		t.Parallel()

		for _, ref := range []any{nil, 42, "", []any{obj}, []any{obj, "RealObjectFunction", 1}, []any{obj, 7}} {
			res, err := d.CallIfExists(t.Context(), ref, 5, "a")
			require.NoError(t, err)
			assert.True(t, res.Empty(), "ref %v", ref)
		}
	})

	t.Run("function values are called directly", func(t *testing.T) {
		t.Parallel()

		res, err := d.CallIfExists(t.Context(), func(a, b int) int { return a * b }, 6, 7)
		require.NoError(t, err)
		assert.Equal(t, callable.Some(42), res)

		var missing func() string

		res, err = d.CallIfExists(t.Context(), missing)
		require.NoError(t, err)
		assert.True(t, res.Empty())
	})

	t.Run("falsy results are still results", func(t *testing.T) {
		t.Parallel()

		res, err := d.CallIfExists(t.Context(), func() int { return 0 })
		require.NoError(t, err)
		assert.True(t, res.Present())
		assert.Equal(t, 0, res.Value())
	})

	t.Run("repeated calls are identical", func(t *testing.T) {
		t.Parallel()

		first, err := d.CallIfExists(t.Context(), "sfc_test_real_function", 5, "a")
		require.NoError(t, err)

		for range 3 {
			again, err := d.CallIfExists(t.Context(), "sfc_test_real_function", 5, "a")
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})
}

func TestCallAndEmitIfExists(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	obj := testObject{}

	t.Run("nonexistent function", func(t *testing.T) {
		t.Parallel()

		res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallAndEmitIfExists(ctx, "doesnt_exist", 5, "a")
		})
		assert.True(t, res.Empty())
		assert.Empty(t, out)

		res, out = capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallAndEmitIfExists(ctx, []any{obj, "fake_object_function"}, 5, "a")
		})
		assert.True(t, res.Empty())
		assert.Empty(t, out)
	})

	t.Run("existing function", func(t *testing.T) {
		t.Parallel()

		res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallAndEmitIfExists(ctx, "sfc_test_real_function", 5, "a")
		})
		assert.Equal(t, callable.Some("5 + a"), res)
		assert.Equal(t, "5 + a", out)

		res, out = capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallAndEmitIfExists(ctx, []any{obj, "RealObjectFunction"}, 5, "a")
		})
		assert.Equal(t, callable.Some("a + 5"), res)
		assert.Equal(t, "a + 5", out)
	})

	t.Run("falsy results are returned but not emitted", func(t *testing.T) {
		t.Parallel()

		for _, value := range []any{"", 0, 0.0, false, nil} {
			res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
				return d.CallAndEmitIfExists(ctx, func() any { return value })
			})
			assert.True(t, res.Present(), "value %#v", value)
			assert.Equal(t, value, res.Value())
			assert.Empty(t, out, "value %#v", value)
		}
	})

	t.Run("result matches CallIfExists", func(t *testing.T) {
		t.Parallel()

		plain, err := d.CallIfExists(t.Context(), "sfc_test_real_function", 1, 2)
		require.NoError(t, err)

		emitted, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallAndEmitIfExists(ctx, "sfc_test_real_function", 1, 2)
		})
		assert.Equal(t, plain, emitted)
		assert.Equal(t, plain.Text(), out)
	})

	t.Run("non string results are emitted in string form", func(t *testing.T) {
		t.Parallel()

		_, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallAndEmitIfExists(ctx, func() int { return 42 })
		})
		assert.Equal(t, "42", out)
	})

	t.Run("repeated calls emit each time", func(t *testing.T) {
		t.Parallel()

		_, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			for range 2 {
				if _, err := d.CallAndEmitIfExists(ctx, "sfc_test_real_function", 5, "a"); err != nil {
					return callable.None(), err
				}
			}

			return d.CallAndEmitIfExists(ctx, "sfc_test_real_function", 5, "a")
		})
		assert.Equal(t, "5 + a5 + a5 + a", out)
	})

	t.Run("write failures surface", func(t *testing.T) {
		t.Parallel()

		ctx := output.WithWriter(t.Context(), failingWriter{})

		res, err := d.CallAndEmitIfExists(ctx, "sfc_test_real_function", 5, "a")
		require.ErrorIs(t, err, output.ErrEmit)
		assert.Equal(t, callable.Some("5 + a"), res)
	})
}

func TestCallWithFallbackIfExists(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	obj := testObject{}

	t.Run("nonexistent function with no fallback", func(t *testing.T) {
		t.Parallel()

		res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallWithFallbackIfExists(ctx, "doesnt_exist", nil)
		})
		assert.True(t, res.Empty())
		assert.Empty(t, out)

		res, err := d.CallWithFallbackIfExists(t.Context(), []any{obj, "fake_object_function"}, "also_missing", 1)
		require.NoError(t, err)
		assert.True(t, res.Empty())
	})

	t.Run("nonexistent function with fallback", func(t *testing.T) {
		t.Parallel()

		res, err := d.CallWithFallbackIfExists(t.Context(), "doesnt_exist", "sfc_test_fallback", 5, "a")
		require.NoError(t, err)
		assert.Equal(t, callable.Some("5 / a"), res)

		res, err = d.CallWithFallbackIfExists(t.Context(),
			[]any{obj, "fake_object_function"}, []any{obj, "Fallback"}, "a", 5)
		require.NoError(t, err)
		assert.Equal(t, callable.Some("a * 5"), res)
	})

	t.Run("fallback receives the missing reference first", func(t *testing.T) {
		t.Parallel()

		var got []any

		fallback := func(args ...any) string {
			got = args

			return "handled"
		}

		res, err := d.CallWithFallbackIfExists(t.Context(), "doesnt_exist", fallback, 5, "a")
		require.NoError(t, err)
		assert.Equal(t, callable.Some("handled"), res)
		require.Len(t, got, 3)
		assert.Equal(t, callable.Name("doesnt_exist"), got[0])
		assert.Equal(t, []any{5, "a"}, got[1:])
	})

	t.Run("fallback can take the name as a string", func(t *testing.T) {
		t.Parallel()

		res, err := d.CallWithFallbackIfExists(t.Context(), "list_cities",
			func(missing string, state string) string { return missing + " unavailable for " + state },
			"Texas")
		require.NoError(t, err)
		assert.Equal(t, callable.Some("list_cities unavailable for Texas"), res)
	})

	t.Run("existing function never consults the fallback", func(t *testing.T) {
		t.Parallel()

		res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallWithFallbackIfExists(ctx, "sfc_test_real_function",
				func(ctx context.Context) string {
					_ = output.Emit(ctx, "fallback ran")

					panic("fallback must not run")
				}, 5, "a")
		})
		assert.Equal(t, callable.Some("5 + a"), res)
		assert.Empty(t, out)

		res, err := d.CallWithFallbackIfExists(t.Context(),
			[]any{obj, "RealObjectFunction"}, []any{obj, "Fallback"}, 5, "a")
		require.NoError(t, err)
		assert.Equal(t, callable.Some("a + 5"), res)
	})
}

func TestCallWithMessageIfMissing(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t)
	obj := testObject{}

	t.Run("nonexistent function without message", func(t *testing.T) {
		t.Parallel()

		res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallWithMessageIfMissing(ctx, "doesnt_exist", "")
		})
		assert.True(t, res.Empty())
		assert.Empty(t, out)

		res, out = capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallWithMessageIfMissing(ctx, []any{obj, "fake_object_function"}, "")
		})
		assert.True(t, res.Empty())
		assert.Empty(t, out)
	})

	t.Run("nonexistent function with message", func(t *testing.T) {
		t.Parallel()

		res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallWithMessageIfMissing(ctx, "doesnt_exist", missingMessage, 4)
		})
		assert.True(t, res.Empty())
		assert.Equal(t, missingMessage, out)

		res, out = capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallWithMessageIfMissing(ctx, []any{obj, "fake_object_function"}, missingMessage)
		})
		assert.True(t, res.Empty())
		assert.Equal(t, missingMessage, out)
	})

	t.Run("existing function ignores the message", func(t *testing.T) {
		t.Parallel()

		res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallWithMessageIfMissing(ctx, "sfc_test_real_function", missingMessage, 5, "a")
		})
		assert.Equal(t, callable.Some("5 + a"), res)
		assert.Empty(t, out)

		res, out = capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallWithMessageIfMissing(ctx, []any{obj, "RealObjectFunction"}, missingMessage, 5, "a")
		})
		assert.Equal(t, callable.Some("a + 5"), res)
		assert.Empty(t, out)
	})

	t.Run("existing function returning nothing still emits nothing", func(t *testing.T) {
		t.Parallel()

		res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
			return d.CallWithMessageIfMissing(ctx, func() {}, missingMessage)
		})
		assert.True(t, res.Empty())
		assert.Empty(t, out)
	})
}

var errDownstream = errors.New("downstream failure")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed pipe") //nolint:err113
}

func TestDownstreamFailuresPropagate(t *testing.T) {
	t.Parallel()

	reg := callable.NewRegistry()
	reg.MustRegister("fails", func() (string, error) { return "", errDownstream })
	reg.MustRegister("panics", func() string { panic(errDownstream) })

	d := New(reg)

	ops := map[string]func(ctx context.Context, ref string) (callable.Result, error){
		"call": func(ctx context.Context, ref string) (callable.Result, error) {
			return d.CallIfExists(ctx, ref)
		},
		"emit": func(ctx context.Context, ref string) (callable.Result, error) {
			return d.CallAndEmitIfExists(ctx, ref)
		},
		"fallback": func(ctx context.Context, ref string) (callable.Result, error) {
			return d.CallWithFallbackIfExists(ctx, ref, func() string { return "fallback" })
		},
		"message": func(ctx context.Context, ref string) (callable.Result, error) {
			return d.CallWithMessageIfMissing(ctx, ref, missingMessage)
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			ctx := output.WithWriter(t.Context(), &buf)

			res, err := op(ctx, "fails")
			require.Same(t, errDownstream, err) //nolint:testifylint
			assert.True(t, res.Empty())
			assert.Empty(t, buf.String())

			assert.PanicsWithValue(t, errDownstream, func() {
				_, _ = op(ctx, "panics")
			})
		})
	}
}

func TestPackageLevelDefault(t *testing.T) { //nolint:paralleltest
	callable.MustRegister("dispatch_test_default", sfcTestRealFunction)

	t.Cleanup(func() {
		callable.Default().Unregister("dispatch_test_default")
		SetDefault(nil)
	})

	ctx := t.Context()

	res, err := CallIfExists(ctx, "dispatch_test_default", 5, "a")
	require.NoError(t, err)
	assert.Equal(t, callable.Some("5 + a"), res)

	res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
		return CallAndEmitIfExists(ctx, "dispatch_test_default", 5, "a")
	})
	assert.Equal(t, callable.Some("5 + a"), res)
	assert.Equal(t, "5 + a", out)

	res, err = CallWithFallbackIfExists(ctx, "doesnt_exist", sfcTestFallback, 5, "a")
	require.NoError(t, err)
	assert.Equal(t, callable.Some("5 / a"), res)

	res, out = capture(t, func(ctx context.Context) (callable.Result, error) {
		return CallWithMessageIfMissing(ctx, "doesnt_exist", missingMessage, 4)
	})
	assert.True(t, res.Empty())
	assert.Equal(t, missingMessage, out)

	reg := callable.NewRegistry()
	SetDefault(New(reg))
	assert.Same(t, reg, Default().Resolver())
	assert.False(t, Default().IsValid("dispatch_test_default"))

	SetDefault(nil)
	assert.True(t, Default().IsValid("dispatch_test_default"))
}

func TestFunctionValuesWithoutRegistry(t *testing.T) {
	t.Parallel()

	namesOnly := callable.ResolverFunc(func(ref callable.Ref) (callable.Invocable, bool) {
		if ref.Kind() != callable.KindName || ref.Name() != "sfc_test_real_function" {
			return nil, false
		}

		return callable.Wrap(sfcTestRealFunction), true
	})

	d := New(namesOnly)
	ctx := t.Context()

	assert.True(t, d.IsValid(func() string { return "ran" }))
	assert.True(t, d.IsValid([]any{testObject{}, "RealObjectFunction"}))
	assert.False(t, d.IsValid("sfc_test_fallback"))

	res, err := d.CallIfExists(ctx, func() string { return "ran" })
	require.NoError(t, err)
	assert.Equal(t, callable.Some("ran"), res)

	res, err = d.CallIfExists(ctx, []any{testObject{}, "RealObjectFunction"}, 5, "a")
	require.NoError(t, err)
	assert.Equal(t, callable.Some("a + 5"), res)

	res, err = d.CallWithFallbackIfExists(ctx, "missing", func(ref callable.Ref, a int) int {
		assert.Equal(t, "missing", ref.Name())

		return a * 2
	}, 21)
	require.NoError(t, err)
	assert.Equal(t, callable.Some(42), res)

	res, out := capture(t, func(ctx context.Context) (callable.Result, error) {
		return d.CallAndEmitIfExists(ctx, sfcTestRealFunction, 5, "a")
	})
	assert.Equal(t, callable.Some("5 + a"), res)
	assert.Equal(t, "5 + a", out)
}
