package middleware

import (
	"context"
	"log/slog"

	"github.com/m3rciful/openspace/core/logger"
	"github.com/m3rciful/openspace/core/telegram/event"
)

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject event.Handler
}

// AdminOnly wraps a handler so that only the configured admin can run it.
// With AdminID unset every caller is rejected.
func AdminOnly(opts AdminOptions, next event.Handler) event.Handler {
	return func(ctx context.Context, ev event.Event) error {
		if opts.AdminID == 0 || ev.Key.UserID != opts.AdminID {
			logger.Warn(ctx, "tg", "access.denied",
				slog.String("status", "skip"),
				slog.Int64("user_id", ev.Key.UserID),
			)
			if opts.OnReject != nil {
				return opts.OnReject(ctx, ev)
			}
			return nil
		}
		return next(ctx, ev)
	}
}
