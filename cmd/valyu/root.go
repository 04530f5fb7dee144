package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kitbuilder587/valyu-go/internal/config"
	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

var rootCmd = &cobra.Command{
	Use:          "valyu",
	Short:        "Valyu search, answer and research from the command line",
	Long:         "valyu calls the Valyu API: deep search, content extraction, answers and DeepResearch tasks. The bot command runs the Telegram front-end.",
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("api-key", "", "Valyu API key (default $VALYU_API_KEY)")
	rootCmd.PersistentFlags().String("base-url", "", "API base URL")
	rootCmd.PersistentFlags().Duration("timeout", 0, "HTTP timeout per call")
	rootCmd.PersistentFlags().Float64("rps", 0, "Client-side request rate limit, 0 disables it")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("cache", "", "Response cache: memory, redis, none")

	_ = viper.BindPFlag("api_key", rootCmd.PersistentFlags().Lookup("api-key"))
	_ = viper.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("rps", rootCmd.PersistentFlags().Lookup("rps"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("cache", rootCmd.PersistentFlags().Lookup("cache"))
}

func initConfig() {
	viper.SetEnvPrefix("VALYU")
	viper.AutomaticEnv()
}

// loadConfig reads .env and the environment, then applies flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if v := viper.GetString("api_key"); v != "" {
		cfg.Valyu.APIKey = v
	}
	if v := viper.GetString("base_url"); v != "" {
		cfg.Valyu.BaseURL = v
	}
	if v := viper.GetDuration("timeout"); v > 0 {
		cfg.Valyu.Timeout = v
	}
	if v := viper.GetFloat64("rps"); v > 0 {
		cfg.Valyu.RPS = v
	}
	if v := viper.GetString("log_level"); v != "" {
		cfg.Log.Level = v
	}
	if v := viper.GetString("cache"); v != "" {
		cfg.Cache.Type = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newClient(cfg config.ValyuConfig, logger *zap.Logger, observer valyu.Observer) *valyu.Client {
	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	return valyu.New(valyu.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Timeout,
		Limiter:  limiter,
		Observer: observer,
	}, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
