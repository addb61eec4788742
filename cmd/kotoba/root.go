package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/teilomillet/kotoba/config"
	"github.com/teilomillet/kotoba/errors"
	"github.com/teilomillet/kotoba/server"
	"github.com/teilomillet/kotoba/server/dispatch"
	"github.com/teilomillet/kotoba/server/handlers"
	"github.com/teilomillet/kotoba/server/metrics"
	"github.com/teilomillet/kotoba/server/provider"
	"go.uber.org/zap"
)

type options struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "kotoba",
		Short: "LINE webhook relay that rewrites messages and answers questions",
		Long: `kotoba receives LINE Messaging API webhooks. Plain text messages are
rewritten between Japanese and English, "/q" messages are answered, and
every reply goes back to the conversation through the Messaging API.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default: read environment variables)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the configuration")

	root.AddCommand(newServeCmd(opts), newValidateCmd(opts), newVersionCmd())
	return root
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			errors.SetLogger(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (profiles: %v)\n", cfg.ProfileNames())
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of kotoba",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kotoba %s\n", Version)
		},
	}
}

// loadConfig loads the dotenv file if present, then the YAML file or the
// environment.
func loadConfig(opts *options) (*config.Config, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewConfigError("failed to load env file", err)
		}
	}

	var (
		cfg *config.Config
		err error
	)
	if opts.configFile != "" {
		cfg, err = config.LoadFile(opts.configFile)
	} else {
		cfg, err = config.LoadEnv()
	}
	if err != nil {
		return nil, errors.NewConfigError("invalid configuration", err)
	}
	return cfg, nil
}

// serve wires the relay and blocks until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	m := metrics.NewMetrics()

	client, err := provider.NewClient(cfg.Completion, cfg.ProfileList(), logger.Named("provider"), m)
	if err != nil {
		return fmt.Errorf("create completion client: %w", err)
	}

	replier, err := dispatch.NewLineReplier(cfg.Line, logger.Named("line"))
	if err != nil {
		return fmt.Errorf("create reply client: %w", err)
	}

	dispatcher, err := dispatch.NewDispatcher(cfg, client, replier, logger.Named("dispatch"), m)
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	webhook := handlers.NewWebhookHandler(cfg.Line.ChannelSecret, dispatcher, logger.Named("webhook"), m)
	router := server.NewRouter(cfg, webhook, logger, m)
	srv := server.NewServer(cfg.Server, router, logger)

	logger.Info("Starting kotoba",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port),
		zap.Strings("profiles", cfg.ProfileNames()),
	)
	return srv.Start(ctx)
}
