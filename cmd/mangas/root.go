package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kerbaras/mangareader/pkg/app"
	"github.com/kerbaras/mangareader/pkg/config"
	"github.com/kerbaras/mangareader/pkg/logger"
	"github.com/kerbaras/mangareader/pkg/services"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	cfg        *config.Config
	log        zerolog.Logger
	logCloser  io.Closer
	controller *services.MangaController
)

var rootCmd = &cobra.Command{
	Use:   "mangas",
	Short: "A beautiful manga bookshelf CLI",
	Long:  "Search, download and read your manga collection with a beautiful TUI and CLI",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logger.Level = logLevel
		}

		log, logCloser, err = logger.New(cfg.Logger)
		if err != nil {
			return err
		}

		controller, err = services.NewMangaController(cfg, log)
		if err != nil {
			logCloser.Close()
			return err
		}
		log.Debug().Str("command", cmd.Name()).Msg("controller ready")
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdown()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Launch TUI by default
		return app.NewApp(controller, log).Run(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $HOME/.mangas/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")

	// Add all subcommands
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(removeCmd)
}

func shutdown() error {
	var err error
	if controller != nil {
		err = controller.Close()
		controller = nil
	}
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
	return err
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// PersistentPostRunE is skipped when the command fails.
		shutdown()
		stop()
		os.Exit(1)
	}
}
