package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/openmined/solarsync/internal/config"
	"github.com/openmined/solarsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

// app is the state shared by the commands of one invocation.
type app struct {
	v         *viper.Viper
	cfg       *config.Config
	closeLogs func()
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: viper.New(), closeLogs: func() {}}

	rootCmd := &cobra.Command{
		Use:           "solarsync",
		Short:         "Mirror solar plant data between local folders and a remote store, and merge it",
		Version:       version.Detailed(),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			closeLogs, err := setupLogging(cfg)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.closeLogs = closeLogs
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultConfigPath, "config file")
	flags.String("backend", config.BackendDrive, "remote store backend: drive or s3 (mem is in-process, for tests only)")
	flags.StringP("credentials", "c", "", "base64 encoded service account key (drive backend)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-file", config.DefaultLogFilePath, "log file, empty to disable")

	rootCmd.AddCommand(
		newDownloadCmd(a),
		newUploadCmd(a),
		newUpdateCmd(a),
		newStandardizeCmd(a),
		newAggregateCmd(a),
		newHistoryCmd(a),
		newInitRootCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return rootCmd, a
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	rootCmd, a := newRootCmd()
	rootCmd.SetArgs(args)
	defer a.closeLogs()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Debug("solarsync exit", "error", err)
		fmt.Fprintln(rootCmd.ErrOrStderr(), red("error:"), err)
		return 1
	}
	return 0
}
