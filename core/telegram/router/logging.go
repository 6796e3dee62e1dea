package router

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/openspace/core/logger"
	"github.com/m3rciful/openspace/core/telegram/event"
	"github.com/m3rciful/openspace/core/telegram/middleware"
)

func withHandler(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithHandler(ctx, name)
}

func logHandled(ctx context.Context, ev event.Event, handlerName string, start time.Time, status, outcome string, err error, extras ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	replies := middleware.RepliesFrom(ev.Tele)

	if status == "" {
		status = "ok"
		if err != nil {
			status = "fail"
		}
	}
	if outcome == "" {
		outcome = "ok"
		if err != nil {
			outcome = "fail"
		}
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handlerName),
		slog.String("op", ev.Kind.String()),
		slog.String("outcome", outcome),
		slog.Int("messages", replies.Total()),
		slog.Int("edited", replies.Edited()),
		slog.Bool("kb", replies.Keyboard()),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if ev.Kind == event.KindCallback && ev.CallbackID != "" {
		attrs = append(attrs, slog.String("cb_key", ev.CallbackID))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
			slog.String("cause", handlerName),
		)
	}
	attrs = append(attrs, extras...)
	logger.Info(ctx, "tg", "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	if c, ok := err.(coder); ok {
		code := strings.TrimSpace(c.Code())
		if code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
