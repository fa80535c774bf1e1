package database

import (
	"database/sql"
	"time"
)

// User is a registered owner of generated bots.
type User struct {
	UserID       int64     `db:"user_id"`
	Username     string    `db:"username"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	RegisteredAt time.Time `db:"registered_at"`
}

// BotConfig is a generated bot together with its stored configuration
// document and the handle of the process currently running it.
type BotConfig struct {
	ConfigID     int64         `db:"config_id"`
	UserID       int64         `db:"user_id"`
	BotName      string        `db:"bot_name"`
	ConfigJSON   string        `db:"config_json"`
	BotToken     string        `db:"bot_token"`
	PID          sql.NullInt64 `db:"pid"`
	PIDStartedAt sql.NullInt64 `db:"pid_started_at"`
	CreatedAt    time.Time     `db:"created_at"`
}

// Handle returns the persisted process handle, or nil if none is set.
func (c *BotConfig) Handle() *ProcessHandle {
	if !c.PID.Valid || c.PID.Int64 <= 0 {
		return nil
	}
	return &ProcessHandle{PID: int(c.PID.Int64), StartedAt: c.PIDStartedAt.Int64}
}

// BotSummary is the listing view of a BotConfig.
type BotSummary struct {
	ConfigID  int64         `db:"config_id"`
	BotName   string        `db:"bot_name"`
	PID       sql.NullInt64 `db:"pid"`
	CreatedAt time.Time     `db:"created_at"`
}

// Running reports whether a process handle is recorded for the bot.
func (s BotSummary) Running() bool {
	return s.PID.Valid && s.PID.Int64 > 0
}

// ProcessHandle identifies an OS process by pid and creation time in unix
// milliseconds. A zero StartedAt means the creation time is unknown.
type ProcessHandle struct {
	PID       int
	StartedAt int64
}

// TrackedProcess pairs a config with its persisted process handle.
type TrackedProcess struct {
	ConfigID int64
	Handle   ProcessHandle
}
