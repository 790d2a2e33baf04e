package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/pipekit/logger"
	"github.com/kbukum/pipekit/server"
)

func newServeCmd(global *globalFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run, stream and registry HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, global)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(ctx))

			cfg := a.cfg.Server
			if port > 0 {
				cfg.Port = port
			}
			srv := server.New(cfg, a.log)
			pipelines := server.NewPipelines(server.PipelinesConfig{
				Registry: a.registry,
				Loader:   a.loader,
				Options:  a.runOptions(),
				Timeout:  a.cfg.Runtime.Timeout,
				Logger:   logger.Get("server"),
			})
			srv.RegisterPipelines(pipelines)
			srv.RegisterDefaultEndpoints(a.cfg.Name, a.cfg.Version, pipelines)
			srv.ApplyMiddleware()

			if err := srv.Start(ctx); err != nil {
				return err
			}
			for _, r := range srv.Routes() {
				a.log.Debug("Route", logger.Fields("method", r.Method, "path", r.Path, "handler", r.Handler))
			}

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides server.port)")
	return cmd
}
