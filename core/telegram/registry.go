package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/openspace/core/logger"
	"github.com/m3rciful/openspace/core/telegram/commands"
	"github.com/m3rciful/openspace/core/telegram/event"
)

const wireComponent = "tg.wire"

// ErrInvalidCallback is returned for a callback registration without id or handler.
var ErrInvalidCallback = errors.New("telegram: invalid callback registration")

// Registry holds command and callback handlers keyed by name.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	callbacks        map[string]event.Handler
	callbackNotFound event.Handler
	textFallback     event.Handler
}

// NewRegistry creates an empty Registry. Unknown callbacks and plain text
// are dropped until fallbacks are set.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]event.Handler),
	}
}

// RegisterCommand adds a new command. name must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	ctx := context.Background()
	if r == nil || name == "" || cmd.Handler == nil || cmd.Description == "" {
		logger.Warn(ctx, wireComponent, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return
	}
	if name[0] != '/' {
		logger.Warn(ctx, wireComponent, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "no_slash_prefix"),
		)
		return
	}
	name = strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		logger.Warn(ctx, wireComponent, "register.command.duplicate",
			slog.String("name", name),
		)
		return
	}
	r.commands[name] = cmd
}

// ListCommands returns the menu entries, optionally without hidden and admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []tele.Command
	for cmd, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: cmd, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand finds a command by name or alias and returns its canonical key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if alias == name || "/"+alias == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// RegisterCallback maps a callback id to its handler.
func (r *Registry) RegisterCallback(id string, handler event.Handler) error {
	if r == nil || id == "" || handler == nil {
		logger.Warn(context.Background(), wireComponent, "register.callback.skip",
			slog.String("key", id),
			slog.Bool("handler_nil", handler == nil),
		)
		return ErrInvalidCallback
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[id]; exists {
		logger.Warn(context.Background(), wireComponent, "register.callback.duplicate",
			slog.String("key", id),
		)
		return fmt.Errorf("telegram: callback already registered: %s", id)
	}
	r.callbacks[id] = handler
	return nil
}

// GetCallback returns the handler registered for id.
func (r *Registry) GetCallback(id string) (event.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[id]
	return h, ok
}

// ListCallbacks returns sorted callback ids.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// CommandCount returns the number of registered commands.
func (r *Registry) CommandCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// SetCallbackNotFound sets the handler for callbacks with an unknown id.
func (r *Registry) SetCallbackNotFound(h event.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbackNotFound = h
}

// CallbackNotFound returns the handler for unknown callbacks, or nil.
func (r *Registry) CallbackNotFound() event.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for plain text that matched no command.
func (r *Registry) SetTextFallback(h event.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.textFallback = h
}

// TextFallback returns the plain text handler, or nil.
func (r *Registry) TextFallback() event.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// InitBotCommands publishes the visible commands to the Telegram menu.
func InitBotCommands(ctx context.Context, bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.Error(ctx, wireComponent, "register.commands.set_failed",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(ctx, wireComponent, "register.commands",
		slog.String("status", "ok"),
		slog.Int("count", len(list)),
	)
}
