// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package client

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkamenev/memobox/internal/adapter"
	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/service"
	"github.com/mkamenev/memobox/internal/store"
)

// App is the client application: local-first storage plus background sync.
type App struct {
	storages *store.ClientStorages
	services *service.ClientServices
	logger   *logger.Logger
}

// NewApp opens the local SQLite mirror, builds the HTTP server adapter and
// wires the client services.
func NewApp(cfg *config.ClientConfig, logger *logger.Logger) (*App, error) {
	ctx := context.Background()

	storages, err := store.NewClientStorages(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open local storage: %w", err)
	}

	serverAdapter, err := adapter.NewHTTPServerAdapter(cfg.Adapter, logger)
	if err != nil {
		_ = storages.Close()
		return nil, fmt.Errorf("create server adapter: %w", err)
	}

	services := service.NewClientServices(storages, serverAdapter, cfg.Sync, logger)

	return &App{storages: storages, services: services, logger: logger}, nil
}

// Run implements [Client]. The first argument selects the command; no
// argument defaults to the long-running agent mode.
func (a *App) Run(args []string) error {
	defer func() {
		if err := a.storages.Close(); err != nil {
			a.logger.Err(err).Msg("close local storage")
		}
	}()

	command := "agent"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	ctx := context.Background()

	switch command {
	case "agent":
		return a.runAgent()
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "add-memo":
		return a.addMemo(ctx, args)
	case "edit-memo":
		return a.editMemo(ctx, args)
	case "delete-memo":
		return a.deleteMemo(ctx, args)
	case "list-memos":
		return a.listMemos(ctx)
	case "add-category":
		return a.addCategory(ctx, args)
	case "list-categories":
		return a.listCategories(ctx)
	case "sync":
		return a.syncNow(ctx)
	case "status":
		return a.status(ctx)
	case "resolve":
		return a.resolve(ctx, args)
	case "auto-resolve":
		return a.autoResolve(ctx)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// runAgent restores the stored session and keeps syncing in the background
// until the process receives a termination signal. A missing session is not
// fatal: the agent stays up and starts syncing once login happens from
// another invocation sharing the same database.
func (a *App) runAgent() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	if _, err := a.services.AuthService.RestoreSession(ctx); err != nil {
		if !errors.Is(err, store.ErrLocalSessionNotFound) {
			return fmt.Errorf("restore session: %w", err)
		}
		a.logger.Info().Msg("no stored session, waiting for login")
	}

	a.services.Orchestrator.Start(ctx)
	defer a.services.Orchestrator.Stop()

	a.logger.Info().Msg("sync agent running")
	<-ctx.Done()
	a.logger.Info().Msg("sync agent shutting down")

	return nil
}

// restoreSession arms the transport with the stored token before a command
// that talks to the server.
func (a *App) restoreSession(ctx context.Context) error {
	if _, err := a.services.AuthService.RestoreSession(ctx); err != nil {
		if errors.Is(err, store.ErrLocalSessionNotFound) {
			return errors.New("not logged in, run `memobox-client login` first")
		}
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
