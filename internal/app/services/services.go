package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yigit/noteverse/internal/pkg/cache"
)

// bestEffort runs a side effect whose failure must not fail the request.
// Failures are logged as warnings.
func bestEffort(logger zerolog.Logger, op string, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn().Err(err).Str("op", op).Msg("Best-effort side effect failed")
	}
}

// invalidate drops cached keys; a cache failure only costs freshness.
func invalidate(ctx context.Context, logger zerolog.Logger, c cache.Cache, keys ...string) {
	bestEffort(logger, "cache.invalidate", func() error {
		return c.Delete(ctx, keys...)
	})
}
