package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anonchat/goclaw-anon/internal/bot"
	"github.com/anonchat/goclaw-anon/internal/config"
	"github.com/anonchat/goclaw-anon/internal/fanout"
	"github.com/anonchat/goclaw-anon/internal/mask"
	"github.com/anonchat/goclaw-anon/internal/member"
	"github.com/anonchat/goclaw-anon/internal/store"
	"github.com/anonchat/goclaw-anon/internal/store/pg"
	"github.com/anonchat/goclaw-anon/internal/transport"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run every active group's bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// runServe is the fan-out engine's entry point: load config, connect to
// Postgres, spin up one Group worker and one Bot per active group, and
// run until signaled.
func runServe() error {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Logging.Level != "" {
		if err := logLevel.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
			logLevel = slog.LevelInfo
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if cfg.Database.PostgresDSN == "" {
		slog.Error("ANONCHAT_POSTGRES_DSN is not set")
		os.Exit(1)
	}

	db, err := pg.OpenDB(cfg.Database.PostgresDSN)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	stores := pg.NewStores(db)

	groups, err := stores.Groups.ListActive(context.Background())
	if err != nil {
		slog.Error("failed to list active groups", "error", err)
		os.Exit(1)
	}
	if len(groups) == 0 {
		slog.Warn("no active groups configured, nothing to serve")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	globalStatus := &fanout.Status{}

	var wg sync.WaitGroup
	for i := range groups {
		g := groups[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			runGroup(ctx, cfg, stores, globalStatus, &g)
		}()
	}

	slog.Info("serving", "groups", len(groups))
	wg.Wait()
	return nil
}

// runGroup wires one Group's fan-out engine and bot, and blocks until
// ctx is canceled. A transport/dial failure for one group is logged and
// does not bring down the others.
func runGroup(ctx context.Context, cfg *config.Config, stores *store.Stores, global *fanout.Status, g *store.Group) {
	tc, err := transport.NewTelegramClient(g.BotToken, cfg.Fanout.TransportRatePerSecond)
	if err != nil {
		slog.Error("failed to start transport", "group", g.ID, "error", err)
		return
	}

	dir := member.NewDirectory(stores.Members, stores.Groups, stores.Bans)
	pool := mask.NewPool(cfg.Fanout.MaskUniverse, cfg.MaskTTL())
	if entries, err := stores.Masks.ListByGroup(ctx, g.ID); err != nil {
		slog.Warn("failed to restore mask assignments", "group", g.ID, "error", err)
	} else {
		restored := make([]mask.Entry, 0, len(entries))
		for _, e := range entries {
			restored = append(restored, mask.Entry{MemberID: e.MemberID, Mask: e.Mask, Pinned: e.Pinned, LastSeen: e.LastSeen})
		}
		pool.Restore(restored)
	}

	fg := fanout.NewGroup(ctx, g.ID, stores, dir, pool, tc, global)
	go fg.Run(ctx)

	timeouts := bot.DefaultTimeouts()
	timeouts.OperationWait = cfg.OperationTimeout()

	b := bot.New(g.ID, stores, dir, pool, fg, tc, timeouts)
	if err := b.Start(ctx); err != nil {
		slog.Error("bot stopped", "group", g.ID, "error", err)
	}
}
