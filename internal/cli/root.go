// Package cli implements the kernel-memory CLI commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rcliao/kernel-memory/internal/config"
	"github.com/rcliao/kernel-memory/internal/embedding"
	"github.com/rcliao/kernel-memory/internal/kv"
	"github.com/rcliao/kernel-memory/internal/memory"
)

var (
	cfgFile    string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "kernel-memory",
	Short: "Persistent memory for the Kernel chat assistant",
	Long: `Persistent memory for the Kernel chat assistant: a bounded chat transcript
with an archive of evicted entries, learned subjects, and keyword and
similarity search. SQLite-backed by default.

Example:
  kernel-memory learn go "a statically typed, compiled language"
  kernel-memory chat "tell me about go"`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.kernel-memory/config.yaml)")
	RootCmd.PersistentFlags().String("backend", "", "Store backend: sqlite, file, memory, postgres")
	RootCmd.PersistentFlags().StringP("db", "d", "", "Database or file path (default: ~/.kernel-memory/memory.db)")
	RootCmd.PersistentFlags().StringP("ns", "n", "", "Session namespace")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json, yaml or text")
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	_ = viper.BindPFlag("store.backend", RootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("store.path", RootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("memory.namespace", RootCmd.PersistentFlags().Lookup("ns"))
	_ = viper.BindPFlag("verbose", RootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.DefaultDataDir())
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	config.ConfigureEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else if cfgFile != "" {
		exitErr("read config", err)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		exitErr("load config", err)
	}
	if viper.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		exitErr("invalid config", err)
	}
	return cfg
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func openStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	return kv.Open(ctx, kv.Options{
		Backend: cfg.Store.Backend,
		Path:    cfg.Store.Path,
		DSN:     cfg.Store.DSN,
		Timeout: cfg.Store.Timeout,
	})
}

// openEngine builds the configured engine. Callers must Close the store.
func openEngine(ctx context.Context) (*memory.Engine, kv.Store, *config.Config) {
	cfg := loadConfig()
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	s, err := openStore(ctx, cfg)
	if err != nil {
		exitErr("open store", err)
	}

	emb, err := embedding.New(embedding.Options{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
		Dims:     cfg.Embedding.Dims,
	})
	if err != nil {
		s.Close()
		exitErr("embedder", err)
	}

	e := memory.New(s, memory.Options{
		TranscriptLimit: cfg.Memory.TranscriptLimit,
		DiscardEvicted:  cfg.Memory.DiscardEvicted,
		Namespace:       cfg.Memory.Namespace,
		Embedder:        emb,
		Logger:          logger,
	})
	return e, s, cfg
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
