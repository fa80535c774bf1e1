package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/botforge/internal/config"
	"github.com/edgard/botforge/internal/database"
	"github.com/edgard/botforge/internal/generator"
	"github.com/edgard/botforge/internal/logger"
	"github.com/edgard/botforge/internal/service"
	"github.com/edgard/botforge/internal/supervisor"
	"github.com/edgard/botforge/internal/telegram"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	db         *sqlx.DB
	store      database.Store
	supervisor *supervisor.Supervisor
	service    *service.BotService
}

// newApp loads the configuration and wires the database, supervisor and service.
func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Debug("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Database.Path, err)
	}
	store := database.NewStore(db, log)

	sup, err := supervisor.New(store, supervisor.Config{
		Layout: generator.Layout{Dir: cfg.Generator.OutputDir},
		Builder: supervisor.GoBuilder{
			GoBinary:  cfg.Generator.GoBinary,
			ModuleDir: cfg.Generator.ModuleDir,
			Timeout:   cfg.Generator.BuildTimeout,
		},
		ServerURL:            cfg.Telegram.ServerURL,
		StopTimeout:          cfg.Generator.StopTimeout,
		ReconcileConcurrency: cfg.Generator.ReconcileConcurrency,
	}, log)
	if err != nil {
		database.CloseDB(db)
		return nil, fmt.Errorf("failed to create supervisor: %w", err)
	}

	var verifier service.CredentialVerifier
	if cfg.Telegram.VerifyTokens {
		verifier = telegram.NewVerifier(cfg.Telegram.ServerURL, cfg.Telegram.RequestTimeout, log)
	}

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		store:      store,
		supervisor: sup,
		service:    service.New(store, sup, verifier, log),
	}, nil
}

func (a *app) close() {
	database.CloseDB(a.db)
}

// ensureOwner registers the CLI owner so created bots have a valid user.
func (a *app) ensureOwner(ctx context.Context, ownerID int64) error {
	created, err := a.service.RegisterUser(ctx, &database.User{UserID: ownerID, FirstName: "cli"})
	if err != nil {
		return err
	}
	if created {
		a.log.Info("Registered CLI owner", "user_id", ownerID)
	}
	return nil
}
