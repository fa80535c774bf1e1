package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Every method is a single statement, so each call is atomic on its own.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RegisterUser inserts the user if absent. created is false when the user already existed.
	RegisterUser(ctx context.Context, user *User) (created bool, err error)

	// GetUser retrieves a user by ID. Returns nil, nil if not found.
	GetUser(ctx context.Context, userID int64) (*User, error)

	// InsertBotConfig stores a new bot configuration and returns its config_id.
	InsertBotConfig(ctx context.Context, userID int64, botName, configJSON, botToken string) (int64, error)

	// GetBotConfig retrieves a bot configuration by ID. Returns nil, nil if not found.
	GetBotConfig(ctx context.Context, configID int64) (*BotConfig, error)

	// ListBotConfigs returns the bots owned by userID ordered by config_id.
	ListBotConfigs(ctx context.Context, userID int64) ([]BotSummary, error)

	// SetProcessHandle records the running process of a bot. A nil handle clears it.
	SetProcessHandle(ctx context.Context, configID int64, handle *ProcessHandle) error

	// GetProcessHandle returns the persisted handle of a bot, or nil if none is set.
	GetProcessHandle(ctx context.Context, configID int64) (*ProcessHandle, error)

	// ListProcessHandles returns every bot that has a persisted process handle.
	ListProcessHandles(ctx context.Context) ([]TrackedProcess, error)

	// DeleteBotConfig deletes the bot only if it is owned by requestingUserID.
	// It reports whether a row was deleted.
	DeleteBotConfig(ctx context.Context, configID, requestingUserID int64) (bool, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) RegisterUser(ctx context.Context, user *User) (bool, error) {
	if user == nil {
		return false, fmt.Errorf("cannot register nil user")
	}
	if user.UserID == 0 {
		return false, fmt.Errorf("user must have a non-zero user_id")
	}
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = s.now()
	}

	query := `
        INSERT INTO users (user_id, username, first_name, last_name, registered_at)
        VALUES (:user_id, :username, :first_name, :last_name, :registered_at)
        ON CONFLICT(user_id) DO NOTHING;
    `

	result, err := s.db.NamedExecContext(ctx, query, user)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error registering user", "user_id", user.UserID, "error", err)
		return false, fmt.Errorf("failed to register user %d: %w", user.UserID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 1 {
		s.logger.InfoContext(ctx, "User registered", "user_id", user.UserID)
	}
	return affected == 1, nil
}

func (s *sqlxStore) GetUser(ctx context.Context, userID int64) (*User, error) {
	var user User
	query := `
        SELECT user_id, username, first_name, last_name, registered_at
        FROM users
        WHERE user_id = ?;
    `

	err := s.db.GetContext(ctx, &user, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "Error fetching user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	return &user, nil
}

func (s *sqlxStore) InsertBotConfig(ctx context.Context, userID int64, botName, configJSON, botToken string) (int64, error) {
	query := `
        INSERT INTO bot_configs (user_id, bot_name, config_json, bot_token, created_at)
        VALUES (?, ?, ?, ?, ?);
    `

	result, err := s.db.ExecContext(ctx, query, userID, botName, configJSON, botToken, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error inserting bot config", "user_id", userID, "bot_name", botName, "error", err)
		return 0, fmt.Errorf("failed to insert bot config for user %d: %w", userID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted config id: %w", err)
	}

	s.logger.DebugContext(ctx, "Bot config inserted", "config_id", id, "user_id", userID)
	return id, nil
}

func (s *sqlxStore) GetBotConfig(ctx context.Context, configID int64) (*BotConfig, error) {
	var cfg BotConfig
	query := `
        SELECT config_id, user_id, bot_name, config_json, bot_token, pid, pid_started_at, created_at
        FROM bot_configs
        WHERE config_id = ?;
    `

	err := s.db.GetContext(ctx, &cfg, query, configID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "Error fetching bot config", "config_id", configID, "error", err)
		return nil, fmt.Errorf("failed to get bot config %d: %w", configID, err)
	}

	return &cfg, nil
}

func (s *sqlxStore) ListBotConfigs(ctx context.Context, userID int64) ([]BotSummary, error) {
	bots := []BotSummary{}
	query := `
        SELECT config_id, bot_name, pid, created_at
        FROM bot_configs
        WHERE user_id = ?
        ORDER BY config_id;
    `

	if err := s.db.SelectContext(ctx, &bots, query, userID); err != nil {
		s.logger.ErrorContext(ctx, "Error listing bot configs", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list bot configs for user %d: %w", userID, err)
	}

	return bots, nil
}

func (s *sqlxStore) SetProcessHandle(ctx context.Context, configID int64, handle *ProcessHandle) error {
	var pid, startedAt sql.NullInt64
	if handle != nil {
		pid = sql.NullInt64{Int64: int64(handle.PID), Valid: true}
		startedAt = sql.NullInt64{Int64: handle.StartedAt, Valid: true}
	}

	query := `UPDATE bot_configs SET pid = ?, pid_started_at = ? WHERE config_id = ?;`

	result, err := s.db.ExecContext(ctx, query, pid, startedAt, configID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating process handle", "config_id", configID, "error", err)
		return fmt.Errorf("failed to update process handle of bot %d: %w", configID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected != 1 {
		return fmt.Errorf("bot config %d not found", configID)
	}

	s.logger.DebugContext(ctx, "Process handle updated", "config_id", configID, "pid", pid.Int64)
	return nil
}

func (s *sqlxStore) GetProcessHandle(ctx context.Context, configID int64) (*ProcessHandle, error) {
	cfg, err := s.GetBotConfig(ctx, configID)
	if err != nil || cfg == nil {
		return nil, err
	}

	return cfg.Handle(), nil
}

func (s *sqlxStore) ListProcessHandles(ctx context.Context) ([]TrackedProcess, error) {
	var rows []struct {
		ConfigID     int64         `db:"config_id"`
		PID          int64         `db:"pid"`
		PIDStartedAt sql.NullInt64 `db:"pid_started_at"`
	}
	query := `
        SELECT config_id, pid, pid_started_at
        FROM bot_configs
        WHERE pid IS NOT NULL
        ORDER BY config_id;
    `

	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing process handles", "error", err)
		return nil, fmt.Errorf("failed to list process handles: %w", err)
	}

	tracked := make([]TrackedProcess, 0, len(rows))
	for _, r := range rows {
		tracked = append(tracked, TrackedProcess{
			ConfigID: r.ConfigID,
			Handle:   ProcessHandle{PID: int(r.PID), StartedAt: r.PIDStartedAt.Int64},
		})
	}

	return tracked, nil
}

func (s *sqlxStore) DeleteBotConfig(ctx context.Context, configID, requestingUserID int64) (bool, error) {
	query := `DELETE FROM bot_configs WHERE config_id = ? AND user_id = ?;`

	result, err := s.db.ExecContext(ctx, query, configID, requestingUserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting bot config", "config_id", configID, "user_id", requestingUserID, "error", err)
		return false, fmt.Errorf("failed to delete bot config %d: %w", configID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	s.logger.InfoContext(ctx, "Bot config delete requested", "config_id", configID, "user_id", requestingUserID, "deleted", affected == 1)
	return affected == 1, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	start := time.Now()

	// VACUUM must run outside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("vacuum operation interrupted: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Failed to execute VACUUM", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully", "duration", time.Since(start))
	return nil
}
