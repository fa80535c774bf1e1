// Package handlers contains the manager bot's command, callback and message
// handlers, along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const msgNotAuthorized = "You are not allowed to use this bot."

// Authorized drops updates from users rejected by the configured allow and block lists.
func Authorized(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			in, ok := inputFromUpdate(update)
			if !ok || deps.Config == nil || deps.Config.Telegram.IsUserAuthorized(in.UserID) {
				next(ctx, bot, update)
				return
			}

			log := deps.Logger.With("middleware", "Authorized")
			log.WarnContext(ctx, "Unauthorized access attempt", "user_id", in.UserID, "chat_id", in.ChatID)

			if update.CallbackQuery != nil {
				answerCallback(ctx, bot, log, update.CallbackQuery.ID)
			}
			if _, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: in.ChatID,
				Text:   msgNotAuthorized,
			}); err != nil {
				log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", in.ChatID)
			}
		}
	}
}
