// Package service implements the bot creation pipeline and the owner-scoped
// bot operations shared by the manager bot and the CLI.
package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/edgard/botforge/internal/botspec"
	"github.com/edgard/botforge/internal/database"
	errs "github.com/edgard/botforge/internal/errors"
	"github.com/edgard/botforge/internal/presets"
)

// CredentialVerifier confirms with the platform that a token is valid and
// returns the bot username it belongs to.
type CredentialVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Supervisor is the process lifecycle used by the service.
type Supervisor interface {
	Launch(ctx context.Context, cfg *botspec.Configuration, token string, configID int64) error
	Delete(ctx context.Context, configID, userID int64) (bool, error)
	ReconcileOnStartup(ctx context.Context) error
}

const notOwnerMessage = "bot not found or you are not the owner"

// BotService wires validation, persistence and supervision together.
type BotService struct {
	store      database.Store
	supervisor Supervisor
	verifier   CredentialVerifier
	logger     *slog.Logger
}

// New creates a BotService. A nil verifier skips platform verification.
func New(store database.Store, supervisor Supervisor, verifier CredentialVerifier, logger *slog.Logger) *BotService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BotService{
		store:      store,
		supervisor: supervisor,
		verifier:   verifier,
		logger:     logger.With("component", "bot_service"),
	}
}

// VerifyToken checks the token format and, when a verifier is configured,
// asks the platform to confirm it.
func (s *BotService) VerifyToken(ctx context.Context, token string) error {
	if err := presets.ValidateTokenFormat(token); err != nil {
		return err
	}
	if s.verifier == nil {
		return nil
	}

	username, err := s.verifier.Verify(ctx, token)
	if err != nil {
		if errs.Is(err, errs.CodeCredential) {
			return err
		}
		return errs.NewCredentialError("token rejected: "+err.Error(), nil)
	}

	s.logger.DebugContext(ctx, "Token verified", "bot_username", username)
	return nil
}

// CreateBot verifies the token, validates cfg, stores it for userID and
// launches the bot. Nothing is stored when verification or validation fails.
// When only the launch fails the config id is returned with the error so the
// bot can be restarted or deleted.
func (s *BotService) CreateBot(ctx context.Context, userID int64, token string, cfg *botspec.Configuration) (int64, error) {
	log := s.logger.With("user_id", userID)

	if err := s.VerifyToken(ctx, token); err != nil {
		log.InfoContext(ctx, "Bot creation rejected: invalid token", "error", err)
		return 0, err
	}

	if err := botspec.Validate(cfg); err != nil {
		log.InfoContext(ctx, "Bot creation rejected: invalid configuration", "error", err)
		return 0, err
	}

	doc, err := json.Marshal(cfg)
	if err != nil {
		return 0, errs.NewValidationError("failed to encode configuration", err)
	}

	configID, err := s.store.InsertBotConfig(ctx, userID, cfg.BotName, string(doc), token)
	if err != nil {
		return 0, errs.NewDatabaseError("failed to save bot", err)
	}

	if err := s.supervisor.Launch(ctx, cfg, token, configID); err != nil {
		log.ErrorContext(ctx, "Bot saved but launch failed", "config_id", configID, "error", err)
		return configID, err
	}

	log.InfoContext(ctx, "Bot created", "config_id", configID, "bot_name", cfg.BotName)
	return configID, nil
}

// RegisterUser records a user. It reports false if the user was already registered.
func (s *BotService) RegisterUser(ctx context.Context, user *database.User) (bool, error) {
	created, err := s.store.RegisterUser(ctx, user)
	if err != nil {
		return false, errs.NewDatabaseError("failed to register user", err)
	}
	return created, nil
}

// IsRegistered reports whether userID has registered.
func (s *BotService) IsRegistered(ctx context.Context, userID int64) (bool, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, errs.NewDatabaseError("failed to look up user", err)
	}
	return user != nil, nil
}

// ListBots returns the bots owned by userID.
func (s *BotService) ListBots(ctx context.Context, userID int64) ([]database.BotSummary, error) {
	bots, err := s.store.ListBotConfigs(ctx, userID)
	if err != nil {
		return nil, errs.NewDatabaseError("failed to list bots", err)
	}
	return bots, nil
}

// DeleteBot stops and deletes a bot owned by userID. Missing bots and bots
// owned by someone else yield the same OwnershipError.
func (s *BotService) DeleteBot(ctx context.Context, configID, userID int64) error {
	deleted, err := s.supervisor.Delete(ctx, configID, userID)
	if err != nil {
		return errs.NewDatabaseError("failed to delete bot", err)
	}
	if !deleted {
		return errs.NewOwnershipError(notOwnerMessage)
	}
	return nil
}

// RestartBot relaunches a bot owned by userID from its stored configuration.
func (s *BotService) RestartBot(ctx context.Context, configID, userID int64) error {
	stored, err := s.store.GetBotConfig(ctx, configID)
	if err != nil {
		return errs.NewDatabaseError("failed to load bot", err)
	}
	if stored == nil || stored.UserID != userID {
		return errs.NewOwnershipError(notOwnerMessage)
	}

	cfg, err := botspec.Parse([]byte(stored.ConfigJSON))
	if err != nil {
		return err
	}

	if err := s.supervisor.Launch(ctx, cfg, stored.BotToken, configID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Bot restarted", "config_id", configID, "user_id", userID)
	return nil
}

// Reconcile terminates bots left over from a previous run.
func (s *BotService) Reconcile(ctx context.Context) error {
	if err := s.supervisor.ReconcileOnStartup(ctx); err != nil {
		return errs.NewProcessError("failed to reconcile bot processes", err)
	}
	return nil
}
