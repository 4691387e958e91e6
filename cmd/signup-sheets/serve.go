package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-signupsheets/pkg/mail"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server and background jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			if addr == "" {
				addr = c.cfg.Listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to the configured one)")
	return cmd
}

func serve(ctx context.Context, c *cli, addr string) error {
	a, err := openApp(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.updater.Check(ctx); err != nil {
		return err
	}
	if err := a.scheduler.Add(mail.ReminderJobName, c.cfg.Scheduler.Reminders, a.remind); err != nil {
		return err
	}
	srv, err := a.server(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, addr, c.cfg.ShutdownGrace)
	})
	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})
	c.logger.Info("serving", zap.String("addr", addr), zap.String("version", version))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
