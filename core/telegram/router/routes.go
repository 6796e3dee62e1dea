package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/openspace/core/telegram"
	"github.com/m3rciful/openspace/core/telegram/event"
	tghelpers "github.com/m3rciful/openspace/core/telegram/helpers"
	"github.com/m3rciful/openspace/core/telegram/middleware"
)

// Routes binds the router to telebot. Commands are not registered as
// separate endpoints so that every text update, slash commands included,
// reaches the waiter registry first.
func (r *EventRouter) Routes() []tg.Route {
	h := middleware.RecoverMiddleware(middleware.LoggerMiddleware(r.handleTele))
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: h},
		{Endpoint: tele.OnCallback, Handler: h},
	}
}

func (r *EventRouter) handleTele(c tele.Context) error {
	ev := event.FromTele(c)
	ctx := tghelpers.BuildContext(c)
	if ev.Kind == event.KindCallback {
		// Handlers may block on a prompt; answer the callback first.
		_ = c.Respond()
	}
	return r.Dispatch(ctx, ev)
}
