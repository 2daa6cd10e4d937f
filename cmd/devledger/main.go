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

	"sealedstate/internal/ledger"
	"sealedstate/internal/log"
)

func main() {
	var (
		addr  string
		level string
	)
	cmd := &cobra.Command{
		Use:           "devledger",
		Short:         "In-memory development ledger",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lvl, err := log.ParseLevel(level)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), addr, log.New(nil, lvl, false))
		},
	}
	cmd.Flags().StringVar(&addr, "listen", ":8080", "listen address")
	cmd.Flags().StringVar(&level, "log-level", "info", "debug, info, warn or error")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.DefaultLogger().Errorw("devledger stopped", "err", err)
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, addr string, l log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           ledger.Handler(ledger.NewMemory(l), l),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	l.Infow("ledger listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
