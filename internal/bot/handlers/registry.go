package handlers

import (
	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/botforge/internal/wizard"
)

// RegisteredHandler represents a handler with its pattern and middleware.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands returns the commands and callback handlers of the manager bot.
// Free text is handled by NewMessageHandler, installed as the default handler.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)
	access := []tgbot.Middleware{Authorized(deps)}

	commands := map[string]step{
		"start":       deps.Engine.Start,
		"help":        deps.Engine.Help,
		"menu":        deps.Engine.Menu,
		"create_bot":  deps.Engine.CreateBot,
		"list_bots":   deps.Engine.ListBots,
		"delete_bot":  deps.Engine.DeleteBot,
		"restart_bot": deps.Engine.RestartBot,
		"cancel":      deps.Engine.Cancel,
	}
	for name, fn := range commands {
		handlers["/"+name] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     name,
			Handler:     NewCommandHandler(deps, name, fn),
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  access,
		}
	}

	for _, prefix := range []string{"menu_", wizard.CallbackTemplatePrefix} {
		handlers["callback:"+prefix] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeCallbackQueryData,
			Pattern:     prefix,
			Handler:     NewCallbackHandler(deps),
			MatchType:   tgbot.MatchTypePrefix,
			Middleware:  access,
		}
	}

	return handlers
}
