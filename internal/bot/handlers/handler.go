package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/botforge/internal/text"
	"github.com/edgard/botforge/internal/wizard"
)

// step is one wizard entry point.
type step func(ctx context.Context, in wizard.Input) wizard.Reply

// NewCommandHandler returns a handler that runs fn for a slash command.
func NewCommandHandler(deps HandlerDeps, name string, fn step) bot.HandlerFunc {
	return commandHandler{deps: deps, name: name, fn: fn}.Handle
}

type commandHandler struct {
	deps HandlerDeps
	name string
	fn   step
}

func (h commandHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.name)

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Command handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	in, _ := inputFromUpdate(update)
	log.InfoContext(ctx, "Handling command", "command", h.name, "chat_id", in.ChatID, "user_id", in.UserID)

	sendReply(ctx, b, log, in.ChatID, h.fn(ctx, in))
}

// NewCallbackHandler returns a handler for inline keyboard presses.
func NewCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return callbackHandler{deps}.Handle
}

type callbackHandler struct {
	deps HandlerDeps
}

func (h callbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "callback")

	if update.CallbackQuery == nil {
		log.WarnContext(ctx, "Callback handler received update without callback query", "update_id", update.ID)
		return
	}
	answerCallback(ctx, b, log, update.CallbackQuery.ID)

	in, _ := inputFromUpdate(update)
	log.InfoContext(ctx, "Handling callback", "data", in.Text, "chat_id", in.ChatID, "user_id", in.UserID)

	sendReply(ctx, b, log, in.ChatID, h.deps.Engine.Callback(ctx, in))
}

// NewMessageHandler returns the default handler feeding free text to the
// conversation in progress.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		log.DebugContext(ctx, "Ignoring update without text message", "update_id", update.ID)
		return
	}

	in, _ := inputFromUpdate(update)
	sendReply(ctx, b, log, in.ChatID, h.deps.Engine.Message(ctx, in))
}

// inputFromUpdate extracts the sender, chat and text of a message or callback update.
func inputFromUpdate(update *models.Update) (wizard.Input, bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		m := update.Message
		return wizard.Input{
			ChatID:    m.Chat.ID,
			UserID:    m.From.ID,
			Username:  m.From.Username,
			FirstName: m.From.FirstName,
			LastName:  m.From.LastName,
			Text:      m.Text,
		}, true

	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		in := wizard.Input{
			ChatID:    q.From.ID,
			UserID:    q.From.ID,
			Username:  q.From.Username,
			FirstName: q.From.FirstName,
			LastName:  q.From.LastName,
			Text:      q.Data,
		}
		switch {
		case q.Message.Message != nil:
			in.ChatID = q.Message.Message.Chat.ID
		case q.Message.InaccessibleMessage != nil:
			in.ChatID = q.Message.InaccessibleMessage.Chat.ID
		}
		return in, true
	}

	return wizard.Input{}, false
}

// sendReply escapes the reply and sends it as MarkdownV2.
func sendReply(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, reply wizard.Reply) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text.Render(reply.Text),
		ParseMode: models.ParseModeMarkdown,
	}
	if markup := keyboard(reply.Keyboard); markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
		return
	}
	log.DebugContext(ctx, "Successfully sent reply", "chat_id", chatID)
}

func keyboard(rows [][]wizard.Button) *models.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}

	markup := &models.InlineKeyboardMarkup{InlineKeyboard: make([][]models.InlineKeyboardButton, 0, len(rows))}
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, models.InlineKeyboardButton{Text: btn.Text, CallbackData: btn.Data})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}

	return markup
}

func answerCallback(ctx context.Context, b *bot.Bot, log *slog.Logger, id string) {
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: id}); err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "error", err, "callback_query_id", id)
	}
}
