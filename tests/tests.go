// Package tests carries per-test metadata (name, unique id) and a test-scoped
// logger through context.Context.
//
//	func TestMyFeature(t *testing.T) {
//	    ctx := tests.GetUniqueContext(t)
//
//	    // logger.Get(ctx) now writes to t.Log
//	    info, _ := tests.GetTestInfo(ctx)
//	    t.Logf("running %s as %s", info.Name, info.Id)
//	}
package tests

import (
	"context"
	"testing"

	"github.com/amp-labs/safecall/envutil"
	"github.com/amp-labs/safecall/logger"
	"github.com/google/uuid"
	"github.com/neilotoole/slogt"
)

type contextKey string

const (
	// testIdKey holds a UUID prefixed with "test-".
	testIdKey contextKey = "testId"

	// testNameKey holds t.Name(), subtest path included.
	testNameKey contextKey = "testName"

	testTestKey contextKey = "testTest"
)

// GetUniqueContext derives a context from t.Context() that carries:
//   - a unique test identifier ("test-" + UUID)
//   - the test name
//   - the *testing.T itself
//   - a slog logger that writes through t.Log, installed with logger.WithLogger
func GetUniqueContext(t *testing.T) context.Context {
	t.Helper()

	ctx := context.WithValue(t.Context(), testTestKey, t)
	ctx = context.WithValue(ctx, testIdKey, "test-"+uuid.New().String())
	ctx = context.WithValue(ctx, testNameKey, t.Name())

	return logger.WithLogger(ctx, slogt.New(t))
}

// CheckSkipped skips the test when the boolean environment variable envKey is
// true. defaultValue[0] is used when the variable is unset; defaultValue[1],
// when true, inverts the check.
//
//	// Skip unless RUN_SLOW_TESTS=true.
//	tests.CheckSkipped(t, "RUN_SLOW_TESTS", false, true)
func CheckSkipped(t *testing.T, envKey string, defaultValue ...bool) {
	t.Helper()

	defl := false
	invert := false

	if len(defaultValue) > 0 {
		defl = defaultValue[0]
	}

	if len(defaultValue) > 1 {
		invert = defaultValue[1]
	}

	shouldSkip := envutil.Bool(envKey, envutil.Default(defl)).ValueOrElse(defl)

	original := shouldSkip

	if invert {
		shouldSkip = !shouldSkip
	}

	if shouldSkip {
		t.Skipf("Skipping test because of environment variable: %s=%v",
			envKey, original)
	}
}

func getValue[T any](ctx context.Context, key contextKey) (T, bool) {
	var zero T

	if ctx == nil {
		return zero, false
	}

	val, ok := ctx.Value(key).(T)
	if !ok {
		return zero, false
	}

	return val, true
}

// GetTestName returns the test name stored by GetUniqueContext.
func GetTestName(ctx context.Context) (string, bool) {
	return getValue[string](ctx, testNameKey)
}

// GetTestId returns the unique test identifier stored by GetUniqueContext.
func GetTestId(ctx context.Context) (string, bool) {
	return getValue[string](ctx, testIdKey)
}

// GetTest returns the *testing.T stored by GetUniqueContext.
func GetTest(ctx context.Context) (*testing.T, bool) {
	return getValue[*testing.T](ctx, testTestKey)
}

// Info is the test metadata carried on a context.
type Info struct {
	Test *testing.T `json:"-"`
	Id   string     `json:"id"`
	Name string     `json:"name"`
}

// GetTestInfo combines GetTest, GetTestId and GetTestName. It returns false
// only if none of them is present.
func GetTestInfo(ctx context.Context) (Info, bool) {
	name, nameOk := GetTestName(ctx)
	id, idOk := GetTestId(ctx)
	t, tOk := GetTest(ctx)

	if !nameOk && !idOk && !tOk {
		return Info{}, false
	}

	return Info{
		Test: t,
		Id:   id,
		Name: name,
	}, true
}
