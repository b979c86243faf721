package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/voyago/voyago/db"
	"github.com/voyago/voyago/internal/api"
	"github.com/voyago/voyago/internal/chat"
	"github.com/voyago/voyago/internal/config"
	"github.com/voyago/voyago/internal/gemini"
	"github.com/voyago/voyago/internal/persona"
	"github.com/voyago/voyago/internal/turn"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe wires the full service and blocks until SIGINT/SIGTERM.
func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger()
	logger.Info("starting voyago", "version", Version, "config", cfg)

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := db.Migrate(cfg.ConnString(), logger); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	store, err := turn.NewStore(pool, logger)
	if err != nil {
		return fmt.Errorf("creating turn store: %w", err)
	}

	client, err := gemini.New(ctx, gemini.Config{
		APIKey:     cfg.GeminiAPIKey,
		Model:      cfg.ModelName,
		TitleModel: cfg.TitleModelName,
		QPS:        cfg.ModelQPS,
		Burst:      cfg.ModelBurst,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating gemini client: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}

	svc := chat.NewService(store, client,
		persona.NewRegistry(cfg.ExtraPersonas()...),
		chat.Config{
			MaxHistoryTurns: cfg.MaxHistoryTurns,
			RateLimit:       cfg.RateLimit,
			RateWindow:      cfg.RateWindow(),
			Location:        loc,
		}, logger)

	srv := api.NewServer(svc, pool, api.ServerConfig{
		Addr:       cfg.Addr,
		TrustProxy: cfg.TrustProxy,
	}, logger)

	return srv.Run(ctx)
}
