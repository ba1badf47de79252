package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/tripboard/internal/dashboard"
	"github.com/KaramelBytes/tripboard/internal/logging"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive dashboard over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load up front: a missing or malformed file aborts startup.
		src, cache, err := sharedSources()
		if err != nil {
			return err
		}
		addr := cfg.ListenAddr
		if cmd.Flags().Changed("addr") && serveAddr != "" {
			addr = serveAddr
		}
		srv := &http.Server{
			Addr: addr,
			Handler: dashboard.New(cache, cfg.Files(), dashboard.Options{
				PreviewRows: cfg.PreviewRows,
				AssetsHost:  cfg.AssetsHost,
			}).Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		errCh := make(chan error, 1)
		go func() {
			logging.Info().Str("addr", addr).Str("session", src.Session).Str("cache_policy", string(cache.Policy())).Msg("dashboard listening")
			errCh <- srv.ListenAndServe()
		}()
		fmt.Printf("✓ Dashboard at http://%s/\n", addr)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logging.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config listen_addr)")
}
