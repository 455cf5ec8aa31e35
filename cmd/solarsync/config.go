package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/solarsync/internal/config"
	"github.com/openmined/solarsync/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// persistent flag name -> config key
var boundFlags = map[string]string{
	"backend":     "backend",
	"credentials": "credentials",
	"log-level":   "log_level",
	"log-file":    "log_file",
	"concurrency": "concurrency",
}

func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := a.v

	if cmd.Flags().Changed("config") {
		path, _ := cmd.Flags().GetString("config")
		v.SetConfigFile(path)
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(config.DefaultConfigDir)
		v.AddConfigPath(filepath.Join(home, ".config", "solarsync"))
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	defaults := config.Default()
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("history_db", defaults.HistoryDB)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("concurrency", defaults.Concurrency)

	for flag, key := range boundFlags {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	v.SetEnvPrefix("SOLARSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &config.Config{
		Backend:     v.GetString("backend"),
		Credentials: v.GetString("credentials"),
		S3: config.S3{
			Bucket:        v.GetString("s3.bucket"),
			Region:        v.GetString("s3.region"),
			Endpoint:      v.GetString("s3.endpoint"),
			AccessKey:     v.GetString("s3.access_key"),
			SecretKey:     v.GetString("s3.secret_key"),
			Prefix:        v.GetString("s3.prefix"),
			UseAccelerate: v.GetBool("s3.use_accelerate"),
		},
		Concurrency: v.GetInt("concurrency"),
		HistoryDB:   v.GetString("history_db"),
		LogLevel:    v.GetString("log_level"),
		LogFile:     v.GetString("log_file"),
		Path:        v.ConfigFileUsed(),
	}
	if cfg.Path == "" {
		cfg.Path = config.DefaultConfigPath
	}

	return cfg, nil
}

// setupLogging sends colored logs to stderr and, when configured, plain text logs at
// debug level to the log file. The returned func closes the file.
func setupLogging(cfg *config.Config) (func(), error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	stderrHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})

	if cfg.LogFile == "" {
		slog.SetDefault(slog.New(stderrHandler))
		return func() {}, nil
	}

	if err := utils.EnsureParent(cfg.LogFile); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	interceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(interceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// the interceptor stamps each line
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	handler := utils.NewMultiLogHandler(stderrHandler, fileHandler).Own(file, interceptor)
	slog.SetDefault(slog.New(handler))
	return func() { _ = handler.Close() }, nil
}
