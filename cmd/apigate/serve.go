package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/api"
	"git.sr.ht/~jakintosh/apigate/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: withRuntime(opts, func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			if listenAddr != "" {
				rt.cfg.ListenAddr = listenAddr
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt, nil)
		}),
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address, overrides listen_addr")
	return cmd
}

// serve runs until ctx is cancelled, then drains in-flight requests for up
// to the configured shutdown timeout. When ready is non-nil it receives the
// bound address once the listener is open.
func serve(ctx context.Context, rt *runtime, ready chan<- string) error {
	log := rt.logger.Logger

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a := api.New(rt.service, api.Options{
		Logger:   log.Named("api"),
		Registry: registry,
		Ready:    rt.db.Ping,
		Version:  version,
	})

	rt.loader.Watch(
		func(cfg *config.Config) {
			if err := rt.logger.SetLevel(cfg.Log.Level); err != nil {
				log.Warn("ignoring config change", zap.Error(err))
			}
		},
		func(err error) {
			log.Warn("ignoring invalid config change", zap.Error(err))
		},
	)

	listener, err := net.Listen("tcp", rt.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	server := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(log.Named("http")),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(listener)
	}()
	log.Info("apigate listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("issuer", rt.cfg.Issuer),
		zap.String("db_path", rt.cfg.DBPath),
	)
	if ready != nil {
		ready <- listener.Addr().String()
	}

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
