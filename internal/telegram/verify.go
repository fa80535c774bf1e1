package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	errs "github.com/edgard/botforge/internal/errors"
	"github.com/edgard/botforge/internal/resilience"
)

// Verifier checks tokens by calling getMe with them. Transport failures are
// retried and, when they persist, short-circuited for all tokens.
type Verifier struct {
	serverURL string
	timeout   time.Duration
	guard     *resilience.Guard
}

// NewVerifier creates a Verifier. An empty serverURL uses the public Bot API.
func NewVerifier(serverURL string, timeout time.Duration, logger *slog.Logger) *Verifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Verifier{
		serverURL: serverURL,
		timeout:   timeout,
		guard: resilience.New(resilience.Config{
			Name:      "telegram_get_me",
			Permanent: isRejection,
		}, logger),
	}
}

// isRejection reports errors that are Telegram's answer about the token itself.
func isRejection(err error) bool {
	return errors.Is(err, bot.ErrorUnauthorized) ||
		errors.Is(err, bot.ErrorNotFound) ||
		errors.Is(err, bot.ErrorBadRequest) ||
		errors.Is(err, bot.ErrorForbidden)
}

// Verify returns the username of the bot owning token. Rejected tokens yield
// a CredentialError carrying the platform's description.
func (v *Verifier) Verify(ctx context.Context, token string) (string, error) {
	opts := []bot.Option{bot.WithSkipGetMe()}
	if v.serverURL != "" {
		opts = append(opts, bot.WithServerURL(v.serverURL))
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return "", errs.NewCredentialError("invalid token", err)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	var me *models.User
	err = v.guard.Do(ctx, func(ctx context.Context) error {
		var callErr error
		me, callErr = b.GetMe(ctx)
		return callErr
	})
	switch {
	case err == nil:
		return me.Username, nil
	case isRejection(err):
		return "", errs.NewCredentialError(fmt.Sprintf("token rejected by Telegram: %v", err), nil)
	default:
		return "", errs.NewCredentialError("could not reach Telegram to verify the token, try again later", err)
	}
}
