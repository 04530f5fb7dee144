package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kitbuilder587/valyu-go/internal/cache"
	"github.com/kitbuilder587/valyu-go/internal/config"
	"github.com/kitbuilder587/valyu-go/internal/service"
	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

// app holds what the one-shot commands share.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *valyu.Client
	research service.ResearchService
	cache    io.Closer
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	c, closer, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("create cache: %w", err)
	}

	client := newClient(cfg.Valyu, logger, nil)

	return &app{
		cfg:    cfg,
		logger: logger,
		client: client,
		research: service.NewResearchService(service.Deps{
			API:    client,
			Cache:  c,
			Logger: logger,
			Config: researchConfig(cfg),
		}),
		cache: closer,
	}, nil
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close cache", zap.Error(err))
	}
	a.logger.Sync()
}

func researchConfig(cfg *config.Config) service.Config {
	return service.Config{
		CacheTTL:     cfg.Cache.TTL,
		PollInterval: cfg.Research.PollInterval,
		MaxWait:      cfg.Research.MaxWait,
	}
}
