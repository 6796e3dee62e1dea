package middleware

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/openspace/core/cache"
	"github.com/m3rciful/openspace/core/clock"
	"github.com/m3rciful/openspace/core/logger"
	tghelpers "github.com/m3rciful/openspace/core/telegram/helpers"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	Clock     clock.Clock
}

// RateLimitMiddleware enforces a minimum interval between updates from the
// same user. A user's slot lives in an expiring cache for exactly one
// interval, so idle users cost nothing.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lastSeen := cache.New(cache.Options[int64, time.Time]{
		Name:          "tg.rate_limit",
		Sliding:       opts.Interval,
		Absolute:      opts.Interval,
		SweepInterval: time.Minute,
		Clock:         opts.Clock,
	})
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}

			if _, skip := opts.Exclude[updateKind(c.Update())]; skip {
				return next(c)
			}

			if _, admitted := lastSeen.AddIfAbsent(user.ID, clock.OrReal(opts.Clock).Now()); !admitted {
				attrs := []slog.Attr{
					slog.String("status", "rate_limited"),
					slog.Int64("user_id", user.ID),
				}
				if chat := c.Chat(); chat != nil {
					attrs = append(attrs, slog.Int64("chat_id", chat.ID))
				}
				logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit", attrs...)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	default:
		return "other"
	}
}
