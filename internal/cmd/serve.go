package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lessonmark/lessonmark/internal/content"
	"github.com/lessonmark/lessonmark/internal/identity"
	"github.com/lessonmark/lessonmark/internal/server"
)

func serveCmd() *cobra.Command {
	var (
		addr    string
		tracing bool
	)

	cmd := cobra.Command{
		Use:   "serve",
		Short: "Start an HTTP server rendering lessons from the content store.",
		Long: `The server exposes the renderer, the course catalog and learner sessions over HTTP.

Set --tracing to export OpenTelemetry spans to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("address") {
				cfg.Server.Address = addr
			}
			if cmd.Flags().Changed("tracing") {
				cfg.Server.Tracing = tracing
			}

			logger, err := getLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, err := openStore(cfg, content.WithLogger(logger))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ids, err := identity.New(cfg.Identity, identity.WithLogger(logger))
			if err != nil {
				return err
			}

			s, err := server.New(
				cfg.Server,
				newRenderer(cfg, logger),
				store,
				ids,
				server.WithLogger(logger),
				server.WithTraceWriter(cmd.ErrOrStderr()),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("serving lessons", zap.String("address", s.Addr()), zap.String("content", cfg.Content.Driver))
			return s.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "address", "", "Address to listen on, for example localhost:8080 or unix:///tmp/lessonmark.sock.")
	cmd.Flags().BoolVar(&tracing, "tracing", false, "Export traces to stderr.")

	return &cmd
}
