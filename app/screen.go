package app

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/openspace/core/telegram/event"
	tghelpers "github.com/m3rciful/openspace/core/telegram/helpers"
)

var errNoChat = errors.New("app: event has no chat context")

// Screen renders a handler's reply. Replies to button presses replace the
// pressed message; replies to messages are sent as new messages.
type Screen interface {
	Show(ctx context.Context, ev event.Event, text string, markup *tele.ReplyMarkup) error
}

// TeleScreen renders through the telebot context carried by the event.
type TeleScreen struct{}

func (TeleScreen) Show(_ context.Context, ev event.Event, text string, markup *tele.ReplyMarkup) error {
	c := ev.Tele
	if c == nil {
		return errNoChat
	}
	opts := &tele.SendOptions{ReplyMarkup: markup}
	if ev.Kind == event.KindCallback {
		err := c.Edit(text, opts)
		if err == nil || notModified(err) {
			return nil
		}
	}
	return tghelpers.SendText(c, text, opts)
}

func notModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
