// Package logger configures slog for botforge and provides the update logging
// middleware of the manager bot.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewLogger creates a slog Logger writing to stdout and installs it as the default.
// Unknown levels fall back to info.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := New(os.Stdout, levelStr, jsonOutput)
	slog.SetDefault(logger)
	return logger
}

// New creates a slog Logger writing to w without touching the default logger.
func New(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(levelStr string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(levelStr))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Middleware logs every incoming update of the manager bot together with the
// time spent handling it.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()
			logEntry := log.With(append([]any{"update_id", update.ID}, updateAttrs(update)...)...)

			logEntry.DebugContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.InfoContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

// updateAttrs extracts the loggable fields of an update.
func updateAttrs(update *models.Update) []any {
	switch {
	case update.Message != nil:
		attrs := []any{
			"update_type", "message",
			"message_id", update.Message.ID,
			"chat_id", update.Message.Chat.ID,
			"text_preview", truncateString(update.Message.Text, 50),
		}
		if update.Message.From != nil {
			attrs = append(attrs, "user_id", update.Message.From.ID)
		}
		return attrs

	case update.CallbackQuery != nil:
		attrs := []any{
			"update_type", "callback_query",
			"callback_query_id", update.CallbackQuery.ID,
			"user_id", update.CallbackQuery.From.ID,
			"data", update.CallbackQuery.Data,
		}
		msg := update.CallbackQuery.Message
		switch {
		case msg.Message != nil:
			attrs = append(attrs, "chat_id", msg.Message.Chat.ID, "message_accessible", true)
		case msg.InaccessibleMessage != nil:
			attrs = append(attrs, "chat_id", msg.InaccessibleMessage.Chat.ID, "message_accessible", false)
		}
		return attrs

	default:
		return []any{"update_type", "other"}
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
