package handlers

import (
	"log/slog"

	"github.com/edgard/botforge/internal/config"
	"github.com/edgard/botforge/internal/wizard"
)

// HandlerDeps provides dependencies for the manager bot handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Engine *wizard.Engine
}
