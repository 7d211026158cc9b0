package async

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/utils/logging"
)

// Dispatch executes a handler function asynchronously in a new goroutine.
// The knowledge feedback path (extraction after a reply is delivered) runs
// through here so that a slow or failing provider call never blocks the
// reply itself. A fresh background context is used, detached from the
// request lifecycle, but the request logger is preserved.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			logging.From(bgCtx).Error("async handler failed", "error", goerr.Unwrap(err))
		}
	}()
}
