// Package event converts telebot updates into transport-neutral events that
// carry a correlation key and a classification.
package event

import (
	"context"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Key correlates inbound input with a pending waiter: one sender in one chat.
type Key struct {
	UserID int64
	ChatID int64
}

// Kind classifies an inbound event.
type Kind int

const (
	KindOther Kind = iota
	KindMessage
	KindCommand
	KindCallback
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindCommand:
		return "command"
	case KindCallback:
		return "callback"
	case KindQuery:
		return "query"
	default:
		return "other"
	}
}

// MessageRef identifies a sent message. It satisfies tele.Editable.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// MessageSig implements tele.Editable.
func (r MessageRef) MessageSig() (string, int64) {
	return strconv.Itoa(r.MessageID), r.ChatID
}

// IsZero reports whether r points at no message.
func (r MessageRef) IsZero() bool {
	return r.MessageID == 0
}

// Event is one inbound update reduced to what routing and prompts need.
type Event struct {
	Key  Key
	Kind Kind

	// Text is the raw message text or the inline query text.
	Text string

	// Command and Args are set for KindCommand. Command keeps its leading slash.
	Command string
	Args    []string

	// CallbackID and CallbackArg are set for KindCallback.
	CallbackID  string
	CallbackArg string

	// Message references the user's message, or the message a callback button belongs to.
	Message MessageRef

	// Tele is the originating telebot context; nil for synthetic events.
	Tele tele.Context
}

// Handler processes a routed event.
type Handler func(ctx context.Context, ev Event) error

// FromTele classifies a telebot update.
func FromTele(c tele.Context) Event {
	ev := Event{Tele: c}
	if u := c.Sender(); u != nil {
		ev.Key.UserID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		ev.Key.ChatID = ch.ID
	}

	switch {
	case c.Callback() != nil:
		cb := c.Callback()
		ev.Kind = KindCallback
		ev.CallbackID, ev.CallbackArg = ParseCallback(cb.Unique, cb.Data)
		if cb.Message != nil {
			ev.Message = refOf(cb.Message)
		}
	case c.Query() != nil:
		ev.Kind = KindQuery
		ev.Text = c.Query().Text
	case c.Message() != nil:
		msg := c.Message()
		ev.Text = msg.Text
		ev.Message = refOf(msg)
		if cmd, args, ok := ParseCommand(msg.Text); ok {
			ev.Kind = KindCommand
			ev.Command = cmd
			ev.Args = args
		} else {
			ev.Kind = KindMessage
		}
	default:
		ev.Kind = KindOther
	}
	return ev
}

func refOf(msg *tele.Message) MessageRef {
	ref := MessageRef{MessageID: msg.ID}
	if msg.Chat != nil {
		ref.ChatID = msg.Chat.ID
	}
	return ref
}

// ParseCallback splits callback data into an id and optional argument.
// Data built by telebot buttons ("\funique|payload") arrives with unique
// already split off; plain data uses the "id:arg" form.
func ParseCallback(unique, data string) (string, string) {
	if unique != "" {
		return strings.TrimSpace(unique), data
	}
	if strings.HasPrefix(data, "\f") {
		raw := strings.TrimPrefix(data, "\f")
		id, arg, _ := strings.Cut(raw, "|")
		return strings.TrimSpace(id), arg
	}
	id, arg, _ := strings.Cut(data, ":")
	return strings.TrimSpace(id), arg
}

// ParseCommand recognises "/name[@bot] args..." and returns the lower-cased
// command with its slash and the whitespace-separated arguments.
func ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '/' {
		return "", nil, false
	}
	fields := strings.Fields(text)
	name := fields[0]
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	if len(name) < 2 {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}
