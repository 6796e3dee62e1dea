package commands

import (
	"github.com/m3rciful/openspace/core/telegram/event"
)

// Command describes a slash command: its handler, menu description and
// visibility.
type Command struct {
	Handler     event.Handler
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
