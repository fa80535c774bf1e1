// Package bot orchestrates the manager bot: startup reconciliation, the
// Telegram listener and the maintenance scheduler.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"
)

// Reconciler brings persisted process handles in line with the processes that
// actually exist.
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

// Bot represents the manager application and manages its components' lifecycle.
type Bot struct {
	logger     *slog.Logger
	reconciler Reconciler
	tgBot      *tgbot.Bot
	scheduler  *Scheduler
}

// NewBot creates the orchestrator. tgBot may be nil to run only the scheduler.
func NewBot(logger *slog.Logger, reconciler Reconciler, tgBot *tgbot.Bot, scheduler *Scheduler) *Bot {
	return &Bot{
		logger:     logger.With("component", "bot_orchestrator"),
		reconciler: reconciler,
		tgBot:      tgBot,
		scheduler:  scheduler,
	}
}

// Run reconciles process handles and then runs the listener and scheduler until
// ctx is cancelled or one of them fails. A failed reconciliation is logged and
// does not prevent startup.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	if b.reconciler != nil {
		if err := b.reconciler.Reconcile(ctx); err != nil {
			b.logger.Error("Startup reconciliation failed", "error", err)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	if b.tgBot != nil {
		g.Go(func() error {
			b.logger.Info("Starting Telegram bot listener...")

			b.tgBot.Start(gCtx)
			b.logger.Info("Telegram bot listener stopped.")

			if gCtx.Err() == nil {
				b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
				return fmt.Errorf("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
