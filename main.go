package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/invite-bot/api/handlers"
	"github.com/linesmerrill/invite-bot/bot"
	"github.com/linesmerrill/invite-bot/config"
	"github.com/linesmerrill/invite-bot/databases"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		// the global logger is a no-op until the environment parsed
		fmt.Fprintln(os.Stderr, "invite-bot:", err)
		zap.S().Errorw("invite-bot stopped", "error", err)
		_ = zap.S().Sync()
		os.Exit(1)
	}
}

func run() error {
	conf, err := config.New()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	defer func() { _ = zap.S().Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	invites, disconnect, err := openInviteStore(ctx, conf)
	if err != nil {
		return err
	}
	defer disconnect()

	stores := bot.Stores{
		Invites:     invites,
		Quota:       databases.NewQuotaDatabase(conf.BotStateFile),
		Eligibility: databases.NewEligibilityDatabase(conf.WhitelistFile),
		Violations:  databases.NewViolationDatabase(conf.ModLogFile),
	}
	if err := stores.Quota.Load(ctx); err != nil {
		return fmt.Errorf("loading bot state: %w", err)
	}
	if err := stores.Eligibility.Load(ctx); err != nil {
		return fmt.Errorf("loading whitelist: %w", err)
	}
	if err := stores.Violations.Load(ctx); err != nil {
		return fmt.Errorf("loading moderation log: %w", err)
	}
	zap.S().Infow("state loaded",
		"claimLimit", stores.Quota.State().Limit,
		"whitelistedRoles", len(stores.Eligibility.Roles()),
		"violators", stores.Violations.Users(),
	)

	b, err := bot.New(conf, stores)
	if err != nil {
		return err
	}
	if err := b.Open(); err != nil {
		return err
	}

	var srv *http.Server
	if conf.Port != "" {
		a := handlers.App{
			Config:      *conf,
			Invites:     stores.Invites,
			Quota:       stores.Quota,
			Eligibility: stores.Eligibility,
		}
		a.Initialize()
		srv = &http.Server{Addr: fmt.Sprintf(":%v", conf.Port), Handler: a.Router}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zap.S().Errorw("ops server failed", "error", err)
			}
		}()
	}

	zap.S().Infow("invite-bot is up and running",
		"store", conf.InviteStore,
		"port", conf.Port,
		"inviteChannels", conf.InviteChannel,
	)

	<-ctx.Done()
	zap.S().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.S().Warnw("ops server shutdown", "error", err)
		}
	}
	if err := b.Close(shutdownCtx); err != nil {
		zap.S().Warnw("closing discord session", "error", err)
	}
	return nil
}

// openInviteStore picks the flat file or mongo backed invite table. The
// returned func releases whatever connection was opened.
func openInviteStore(ctx context.Context, conf *config.Config) (databases.InviteCodeDatabase, func(), error) {
	if conf.InviteStore != config.StoreMongo {
		return databases.NewInviteCSVDatabase(conf.InvitesFile), func() {}, nil
	}

	client, err := databases.NewClient(conf)
	if err != nil {
		return nil, nil, fmt.Errorf("creating mongo client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	db := databases.NewDatabase(conf, client)
	disconnect := func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			zap.S().Warnw("disconnecting from mongo", "error", err)
		}
	}
	zap.S().Infow("invite table backed by mongo", "database", conf.DatabaseName)
	return databases.NewInviteMongoDatabase(db), disconnect, nil
}
