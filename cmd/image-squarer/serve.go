package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/menta2k/image-squarer/internal/server"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	var addr string

	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			sq, err := newSquarer(cfg)
			if err != nil {
				return err
			}

			api := server.New(sq, log, server.Options{
				MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
				SuffixEnabled:  cfg.Output.SuffixEnabled,
				Suffix:         cfg.Output.Suffix,
			})
			httpServer := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           api.Router(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       2 * time.Minute,
				WriteTimeout:      5 * time.Minute,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Infof("listening on %s", cfg.Server.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				log.Infof("received signal: %v, shutting down", sig)
			case err := <-errCh:
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return httpServer.Shutdown(ctx)
		},
	}

	c.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return c
}
