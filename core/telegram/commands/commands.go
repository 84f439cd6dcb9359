// Package commands declares the command descriptor shared by the registry
// and routers.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command couples a handler with its menu metadata. Aliases let plain
// message text, such as reply-keyboard button labels, trigger the same
// handler as the slash command.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// HasAlias reports whether text matches one of the command's aliases,
// with or without a leading slash.
func (c Command) HasAlias(text string) bool {
	for _, alias := range c.Aliases {
		if alias == text || "/"+alias == text {
			return true
		}
	}
	return false
}
