package prompt

import (
	"context"
	"errors"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/openspace/core/telegram/event"
	"github.com/m3rciful/openspace/core/telegram/sender"
)

// ErrNoBot is returned by BotSink before Bind is called.
var ErrNoBot = errors.New("prompt: bot not bound")

// BotSink implements Sink on top of a telebot bot. Deletes are queued on
// the sender dispatcher when one is configured.
type BotSink struct {
	bot        atomic.Pointer[tele.Bot]
	dispatcher *sender.Dispatcher
}

// NewBotSink returns a sink that queues deletes on d. d may be nil.
func NewBotSink(d *sender.Dispatcher) *BotSink {
	return &BotSink{dispatcher: d}
}

// Bind attaches the running bot. The bot is only known once the runtime
// has started, so handlers registered earlier share this sink.
func (s *BotSink) Bind(b *tele.Bot) {
	s.bot.Store(b)
}

// Send posts text to chatID.
func (s *BotSink) Send(_ context.Context, chatID int64, text string) (event.MessageRef, error) {
	b := s.bot.Load()
	if b == nil {
		return event.MessageRef{}, ErrNoBot
	}
	msg, err := b.Send(tele.ChatID(chatID), text)
	if err != nil {
		return event.MessageRef{}, err
	}
	ref := event.MessageRef{ChatID: chatID, MessageID: msg.ID}
	if msg.Chat != nil {
		ref.ChatID = msg.Chat.ID
	}
	return ref, nil
}

// Edit replaces the text of ref.
func (s *BotSink) Edit(_ context.Context, ref event.MessageRef, text string) error {
	b := s.bot.Load()
	if b == nil {
		return ErrNoBot
	}
	_, err := b.Edit(ref, text)
	return err
}

// Delete removes ref from the chat.
func (s *BotSink) Delete(ctx context.Context, ref event.MessageRef) error {
	b := s.bot.Load()
	if b == nil {
		return ErrNoBot
	}
	run := func() error { return b.Delete(ref) }
	if s.dispatcher == nil {
		return run()
	}
	if err := s.dispatcher.Enqueue(ctx, "delete.message", "deleteMessage", run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			return run()
		}
		return err
	}
	return nil
}
