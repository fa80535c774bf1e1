package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tgbot "github.com/go-telegram/bot"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/edgard/botforge/internal/bot"
	"github.com/edgard/botforge/internal/bot/handlers"
	"github.com/edgard/botforge/internal/bot/tasks"
	"github.com/edgard/botforge/internal/config"
	"github.com/edgard/botforge/internal/generator"
	"github.com/edgard/botforge/internal/logger"
	"github.com/edgard/botforge/internal/presets"
	"github.com/edgard/botforge/internal/telegram"
	"github.com/edgard/botforge/internal/wizard"
)

const defaultOwnerID = 1

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "botforge",
		Short:         "Build and run Telegram bots from JSON configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file (env: BOTFORGE_*)")

	root.AddCommand(
		newServeCmd(&configPath),
		newBusinessCardCmd(&configPath),
		newFAQCmd(&configPath),
		newRestartCmd(&configPath),
		newReconcileCmd(&configPath),
		newInspectCmd(),
	)
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the manager bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	if a.cfg.Telegram.Token == "" {
		return errors.New("telegram.token is required to run the manager bot")
	}
	log := a.log

	sessions, purger, err := newSessionStore(ctx, a.cfg.Sessions)
	if err != nil {
		return err
	}

	hDeps := handlers.HandlerDeps{
		Logger: log,
		Config: a.cfg,
		Engine: wizard.NewEngine(a.service, sessions, log),
	}
	tDeps := tasks.TaskDeps{
		Logger:     log,
		Store:      a.store,
		Supervisor: a.supervisor,
	}
	if purger != nil {
		tDeps.Sessions = purger
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.Authorized(hDeps)(handlers.NewMessageHandler(hDeps))),
	}
	if a.cfg.Telegram.ServerURL != "" {
		botOpts = append(botOpts, tgbot.WithServerURL(a.cfg.Telegram.ServerURL))
	}
	tg, err := telegram.NewTelegramBot(a.cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		return err
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}

	sched, err := bot.NewScheduler(log, &a.cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		return err
	}

	return bot.NewBot(log, a.service, tg, sched).Run(ctx)
}

// newSessionStore opens the configured wizard session backend. The returned
// MemoryStore is nil for backends that expire sessions themselves.
func newSessionStore(ctx context.Context, cfg config.SessionsConfig) (wizard.Store, *wizard.MemoryStore, error) {
	if cfg.Backend != "redis" {
		m := wizard.NewMemoryStore(cfg.TTL)
		return m, m, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	return wizard.NewRedisStore(client, cfg.TTL), nil, nil
}

func newBusinessCardCmd(configPath *string) *cobra.Command {
	var (
		args  businessCardArgs
		owner int64
	)

	cmd := &cobra.Command{
		Use:   "business_card",
		Short: "Create and start a business card bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := args.input()
			if err != nil {
				return err
			}
			cfg, err := presets.BusinessCard(in)
			if err != nil {
				return err
			}
			return create(cmd, *configPath, owner, args.token, cfg.BotName, func(ctx context.Context, a *app) (int64, error) {
				return a.service.CreateBot(ctx, owner, args.token, cfg)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&args.name, "name", "", "bot name")
	f.StringVar(&args.token, "token", "", "bot token from @BotFather")
	f.StringVar(&args.welcome, "welcome", "", "welcome text for /start")
	f.StringVar(&args.phone, "phone", "", "contact phone number")
	f.StringVar(&args.email, "email", "", "contact email")
	f.StringVar(&args.website, "website", "", "website URL")
	f.StringVar(&args.help, "help-text", "", "text for /help")
	f.Int64Var(&owner, "owner", defaultOwnerID, "user id owning the bot")
	for _, name := range []string{"name", "token", "welcome", "help-text"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newFAQCmd(configPath *string) *cobra.Command {
	var (
		name, token string
		pairs       []string
		owner       int64
	)

	cmd := &cobra.Command{
		Use:   "faq",
		Short: "Create and start an FAQ bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			botName, err := checkText("name", name)
			if err != nil {
				return err
			}
			faqs, err := faqArgs(pairs)
			if err != nil {
				return err
			}
			cfg, err := presets.FAQ(botName, faqs)
			if err != nil {
				return err
			}
			return create(cmd, *configPath, owner, token, botName, func(ctx context.Context, a *app) (int64, error) {
				return a.service.CreateBot(ctx, owner, token, cfg)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "bot name")
	f.StringVar(&token, "token", "", "bot token from @BotFather")
	f.StringArrayVar(&pairs, "faqs", nil, `question and answer as "question:answer" (repeatable)`)
	f.Int64Var(&owner, "owner", defaultOwnerID, "user id owning the bot")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

// create runs a creation pipeline for owner and reports the outcome.
func create(cmd *cobra.Command, configPath string, owner int64, token, botName string, run func(context.Context, *app) (int64, error)) error {
	if err := presets.ValidateTokenFormat(token); err != nil {
		return err
	}

	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if err := a.ensureOwner(ctx, owner); err != nil {
		return err
	}

	id, err := run(ctx, a)
	if err != nil {
		if id != 0 {
			return fmt.Errorf("bot %q saved with ID %d but not started: %w", botName, id, err)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Bot %q created with ID %d\n", botName, id)
	return nil
}

func newRestartCmd(configPath *string) *cobra.Command {
	var id, owner int64

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Regenerate and restart a stored bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.service.RestartBot(cmd.Context(), id, owner); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bot %d restarted\n", id)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "bot config id")
	cmd.Flags().Int64Var(&owner, "owner", defaultOwnerID, "user id owning the bot")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newReconcileCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Terminate bots left running by a previous run and clear their handles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			return a.service.Reconcile(cmd.Context())
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <artifact.go>",
		Short: "List the commands declared by a generated bot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			commands, err := generator.DeclaredCommands(src)
			if err != nil {
				return err
			}
			for _, c := range commands {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}
