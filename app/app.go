// Package app wires configuration, storage, the workflow engine, and the
// Telegram surface into a runnable bot.
package app

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	coreconfig "helpcenterbot/core/config"
	"helpcenterbot/core/helpcenter"
	"helpcenterbot/core/logger"
	"helpcenterbot/core/storage"
	"helpcenterbot/core/telegram"
	"helpcenterbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// App holds the bot's long-lived components.
type App struct {
	cfg     *coreconfig.Config
	store   helpcenter.Store
	service *helpcenter.Service
	sender  *telegram.Sender
}

// Bootstrap initializes the logger, opens the configured state backend, and
// builds the workflow engine.
func Bootstrap(cfg *coreconfig.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config provided")
	}
	if err := logger.InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("app: logger init failed: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	sender := telegram.NewSender()
	service := helpcenter.New(helpcenter.Options{
		Store:         store,
		Policy:        helpcenter.ParsePolicy(cfg.Telegram.AdminIDs),
		Transport:     sender,
		FanoutWorkers: cfg.Fanout.Workers,
	})

	return &App{
		cfg:     cfg,
		store:   store,
		service: service,
		sender:  sender,
	}, nil
}

func openStore(cfg *coreconfig.Config) (helpcenter.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case coreconfig.StorageDriverPostgres:
		if err := storage.RunMigrations(cfg.Storage.Database); err != nil {
			return nil, fmt.Errorf("app: migrations failed: %w", err)
		}
		db, err := storage.Connect(cfg.Storage.Database)
		if err != nil {
			return nil, fmt.Errorf("app: database initialization failed: %w", err)
		}
		return storage.NewPostgresStore(db), nil
	default:
		return storage.NewFileStore(cfg.Storage.StatePath), nil
	}
}

// CoreConfig exposes the loaded configuration to the runner.
func (a *App) CoreConfig() *coreconfig.Config {
	return a.cfg
}

// Service exposes the workflow engine, mainly for tests.
func (a *App) Service() *helpcenter.Service {
	return a.service
}

// TelegramRunOptions assembles the registry, middleware chain, and routes.
func (a *App) TelegramRunOptions() (telegram.RunOptions, error) {
	reg := telegram.NewRegistry()
	a.registerMenuCallbacks(reg)
	a.registerCommands(reg)

	onLimited := func(c tele.Context) error {
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: textRateLimited})
		}
		return nil
	}

	adminOpts := middleware.AdminOptions{
		Checker: a.service.Policy(),
		OnReject: func(c tele.Context) error {
			return c.Send(textNotAllowed)
		},
	}

	reg.SetTextFallback(a.handleText(reg))

	routes := []telegram.Route{
		{Endpoint: tele.OnCallback, Handler: a.handleCallback(reg)},
		{Endpoint: tele.OnText, Handler: reg.TextFallback()},
		{Endpoint: tele.OnPhoto, Handler: a.handlePhoto},
		{Endpoint: tele.OnDocument, Handler: a.handleDocument},
	}
	for name, cmd := range reg.Commands() {
		h := cmd.Handler
		// An active admin session swallows the next text even when it
		// parses as a command. /cancel stays reachable mid-session.
		if name != "/cancel" {
			h = a.withSessionPrecedence(h)
		}
		h = middleware.WithAdminCheck(adminOpts, cmd.AdminOnly, h)
		routes = append(routes, telegram.Route{Endpoint: name, Handler: h})
		for _, alias := range cmd.Aliases {
			routes = append(routes, telegram.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.Info(logger.Background(), "tg.wire", "wire.complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return telegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: telegram.DefaultMiddlewares(a.cfg, onLimited),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt telegram.Runtime) error {
			a.sender.Bind(rt.Bot)
			return nil
		},
		OnStop: func(ctx context.Context, rt telegram.Runtime) error {
			return a.store.Close()
		},
	}, nil
}
