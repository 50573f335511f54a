package cli

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/vizcrn/internal/application/pipeline"
	"github.com/turtacn/vizcrn/internal/config"
	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	vizhttp "github.com/turtacn/vizcrn/internal/interfaces/http"
)

func newServeCmd() *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Render the network page and serve it for live preview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config
			if cmd.Flags().Changed("addr") {
				cfg.Serve.Addr = addr
			}
			if cmd.Flags().Changed("watch") {
				cfg.Serve.Watch = watch
			}

			p, err := pipeline.New(cfg, cliCtx.Logger)
			if err != nil {
				return err
			}
			var current atomic.Pointer[pipeline.Pipeline]
			current.Store(p)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := vizhttp.NewServer(vizhttp.Config{
				Addr:     cfg.Serve.Addr,
				PagePath: cfg.Output.File,
				Version:  Version,
			}, func(ctx context.Context) error {
				_, err := current.Load().Render(ctx)
				return err
			}, p.Collector(), cliCtx.Logger)

			// A failed first render shows up on /healthz.
			_ = srv.Rerender(ctx)

			if cfg.Serve.Watch {
				w, err := vizhttp.NewFileWatcher(
					[]string{cfg.Files.Reactions.Path, cfg.Files.Compounds.Path},
					vizhttp.DefaultDebounce,
					func() { _ = srv.Rerender(ctx) },
					cliCtx.Logger,
				)
				if err != nil {
					return err
				}
				go w.Run(ctx)

				if cliCtx.ConfigPath != "" {
					config.Watch(cliCtx.ConfigPath, func(next *config.Config) {
						// The server keeps serving the page path it started with.
						next.Output.File = cfg.Output.File
						np, err := pipeline.New(next, cliCtx.Logger, pipeline.WithCollector(p.Collector()))
						if err != nil {
							cliCtx.Logger.Warn("config reload rejected", logging.Err(err))
							return
						}
						current.Store(np)
						cliCtx.Logger.Info("config reloaded", logging.String("path", cliCtx.ConfigPath))
						_ = srv.Rerender(ctx)
					}, func(err error) {
						cliCtx.Logger.Warn("config reload failed", logging.Err(err))
					})
				}
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				cliCtx.Logger.Info("shutting down", logging.String("addr", cfg.Serve.Addr))
				return srv.Stop(context.Background())
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from serve.addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-render when the edge, compound or config file changes")
	return cmd
}
