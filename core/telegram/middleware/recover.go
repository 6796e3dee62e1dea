package middleware

import (
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/openspace/core/logger"
	tghelpers "github.com/m3rciful/openspace/core/telegram/helpers"
)

// RecoverMiddleware catches panics in handlers and prevents the bot from crashing.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				attrs := []slog.Attr{
					slog.String("status", "fail"),
					slog.Any("err", r),
				}
				if logger.StacksEnabled() {
					attrs = append(attrs, slog.String("stack", string(debug.Stack())))
				}
				logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic", attrs...)
			}
		}()
		return next(c)
	}
}
