// Package should holds cleanup helpers for operations that should succeed
// but whose failure is not worth propagating. Failures are logged instead.
package should

import (
	"context"
	"io"

	"github.com/amp-labs/safecall/logger"
)

// Close closes closer and logs msg with the error if that fails. Meant for
// defer statements.
//
//	defer should.Close(ctx, ext, "failed to close lua extension")
func Close(ctx context.Context, closer io.Closer, msg string) {
	if err := closer.Close(); err != nil {
		logger.Get(ctx).Error(msg, "error", err)
	}
}
