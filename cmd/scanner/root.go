package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xelth-com/lotscan/internal/buildinfo"
	"github.com/xelth-com/lotscan/internal/config"
	"github.com/xelth-com/lotscan/internal/logger"
	"github.com/xelth-com/lotscan/internal/scanner"
)

var (
	cfg    *config.ClientConfig
	queue  *scanner.Queue
	client *scanner.Client
	log    *logrus.Logger

	serverFlag string
	queueFlag  string
	tokenFlag  string
)

var rootCmd = &cobra.Command{
	Use:           "lotscan",
	Short:         "Scanner station: queue lot placements offline and sync them",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadClient()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if serverFlag != "" {
			cfg.Server = serverFlag
		}
		if queueFlag != "" {
			cfg.QueueFile = queueFlag
		}
		if tokenFlag != "" {
			cfg.Token = tokenFlag
		}

		if err := logger.Init(&logger.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: cfg.Log.Output,
			Path:   cfg.Log.Path,
		}); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		log = logger.GetLogger("app")

		queue, err = scanner.OpenQueue(cfg.QueueFile)
		if err != nil {
			return fmt.Errorf("open queue: %w", err)
		}
		client = scanner.NewClient(cfg.Server, cfg.Token, nil)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	// Overrides the root hook: printing the version needs no queue or server
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(buildinfo.Version)
	},
}

// signalContext is cancelled on Ctrl-C so a hanging request can be abandoned
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Server base URL (LOTSCAN_SERVER)")
	rootCmd.PersistentFlags().StringVar(&queueFlag, "queue", "", "Queue file (LOTSCAN_QUEUE)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Bearer token identifying the worker (LOTSCAN_TOKEN)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}
