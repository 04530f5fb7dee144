package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/valyu-go/internal/cache"
	"github.com/kitbuilder587/valyu-go/internal/config"
	"github.com/kitbuilder587/valyu-go/internal/metrics"
	"github.com/kitbuilder587/valyu-go/internal/repository/postgres"
	"github.com/kitbuilder587/valyu-go/internal/server"
	"github.com/kitbuilder587/valyu-go/internal/service"
	"github.com/kitbuilder587/valyu-go/internal/telegram"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot and the metrics server",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

func init() {
	botCmd.Flags().Bool("debug", false, "Log Telegram API traffic")
	botCmd.Flags().String("metrics-addr", "", "Metrics listen address (default $METRICS_ADDR or :9090)")

	_ = viper.BindPFlag("metrics_addr", botCmd.Flags().Lookup("metrics-addr"))

	rootCmd.AddCommand(botCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}
	if v := viper.GetString("metrics_addr"); v != "" {
		cfg.Metrics.Addr = v
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	db, err := postgres.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	c, cacheCloser, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	defer cacheCloser.Close()

	m := metrics.New()
	client := newClient(cfg.Valyu, logger, m)

	researchSvc := service.NewResearchService(service.Deps{
		API:     client,
		Tasks:   postgres.NewTaskRepo(db),
		Cache:   c,
		Logger:  logger,
		Metrics: m,
		Config:  researchConfig(cfg),
	})
	userSvc := service.NewUserService(postgres.NewUserRepo(db), logger)

	debug, _ := cmd.Flags().GetBool("debug")
	bot, err := telegram.New(telegram.BotConfig{
		Token:             cfg.Telegram.Token,
		Debug:             debug,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
	}, userSvc, researchSvc, logger, m)
	if err != nil {
		return err
	}

	checks := map[string]server.Pinger{"postgres": db}
	if p, ok := c.(server.Pinger); ok {
		checks["cache"] = p
	}
	srv := server.New(checks, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Metrics.Addr)
	})
	g.Go(func() error {
		return bot.Run(gctx)
	})

	logger.Info("bot running",
		zap.String("metrics_addr", cfg.Metrics.Addr),
		zap.String("cache", cfg.Cache.Type),
	)

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("shutdown complete")
		return nil
	}
	return err
}
