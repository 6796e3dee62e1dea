package telegram

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/openspace/core/config"
	"github.com/m3rciful/openspace/core/telegram/middleware"
)

// DefaultMiddlewares builds the shared middleware chain: panic recovery,
// per-user rate limiting when configured, update logging and counters.
// A nil onLimited answers limited button presses so the client stops
// showing a spinner.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		if onLimited == nil {
			onLimited = answerLimited
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Exclude:   excludeSet(cfg.RateLimit.ExcludeUpdates),
				OnLimited: onLimited,
			}),
		})
	}

	return append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}

func excludeSet(kinds []string) map[string]struct{} {
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		set[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}
	return set
}

func answerLimited(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return c.Respond(&tele.CallbackResponse{Text: "Too many requests, slow down."})
}
