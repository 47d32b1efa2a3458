package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fxconvert/internal/bootstrap"
	"fxconvert/internal/config"
	"fxconvert/internal/infrastructure/logx"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type appFactory func(ctx context.Context, cfg config.Config) (*bootstrap.App, func(), error)

// cli holds state shared by every subcommand of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	build   appFactory
	app     *bootstrap.App
	cleanup func()
}

func newRootCmd(build appFactory) *cobra.Command {
	c := &cli{v: viper.New(), build: build, cleanup: func() {}}
	root := &cobra.Command{
		Use:   "fxconv",
		Short: "Detect and convert currency amounts",
		Long: `fxconv finds currency amounts in text, converts them with live rates
and keeps a local conversion history, statistics and favorites.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.initConfig,
		PersistentPostRun: func(*cobra.Command, []string) { c.cleanup() },
	}

	f := root.PersistentFlags()
	f.StringVar(&c.cfgFile, "config", "", "config file (default: $HOME/.config/fxconv/config.yaml)")
	f.String("storage", "sqlite", "storage backend (memory, sqlite, redis, pg)")
	f.String("db", defaultDBPath(), "sqlite database path")
	f.StringSlice("providers", nil, "rate providers in priority order")
	f.String("log-level", "error", "log level (debug, info, warn, error)")
	_ = c.v.BindPFlag("storage", f.Lookup("storage"))
	_ = c.v.BindPFlag("sqlite_path", f.Lookup("db"))
	_ = c.v.BindPFlag("providers", f.Lookup("providers"))
	_ = c.v.BindPFlag("log_level", f.Lookup("log-level"))

	root.AddCommand(
		c.detectCmd(),
		c.convertCmd(),
		c.historyCmd(),
		c.statsCmd(),
		c.favoritesCmd(),
		c.exportCmd(),
		c.importCmd(),
		c.settingsCmd(),
		c.credentialsCmd(),
	)
	return root
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "fxconvert.db"
	}
	return filepath.Join(home, ".config", "fxconv", "fxconvert.db")
}

func (c *cli) initConfig(*cobra.Command, []string) error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			c.v.AddConfigPath(filepath.Join(home, ".config", "fxconv"))
		}
		c.v.AddConfigPath(".")
		c.v.SetConfigName("config")
		c.v.SetConfigType("yaml")
	}
	c.v.SetEnvPrefix("FXCONV")
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	c.v.AutomaticEnv()

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return logx.SetLevel(c.v.GetString("log_level"))
}

// loadConfig starts from the service environment and applies fxconv
// overrides from flags, FXCONV_* variables and the config file.
func (c *cli) loadConfig() config.Config {
	cfg := config.Load()
	cfg.Storage = strings.ToLower(c.v.GetString("storage"))
	cfg.SQLitePath = c.v.GetString("sqlite_path")
	if p := c.v.GetStringSlice("providers"); len(p) > 0 {
		cfg.Providers = lowerAll(p)
	}
	for key, dst := range map[string]*string{
		"database_url":     &cfg.DatabaseURL,
		"redis_addr":       &cfg.RedisAddr,
		"exchange_api_key": &cfg.ExchangeAPIKey,
		"currency_api_key": &cfg.CurrencyAPIKey,
	} {
		if c.v.IsSet(key) {
			*dst = c.v.GetString(key)
		}
	}
	if cfg.Storage == "sqlite" {
		_ = os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	}
	return cfg
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// App builds the service graph on first use.
func (c *cli) App(ctx context.Context) (*bootstrap.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	app, cleanup, err := c.build(ctx, c.loadConfig())
	if err != nil {
		return nil, err
	}
	c.app, c.cleanup = app, cleanup
	return app, nil
}
