package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/stub"
)

// Serve the in-memory archive API for local dry runs.
func stubCmd(a *app) *cobra.Command {
	var (
		addr   string
		apiKey string
	)
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve an in-memory archive API for local dry runs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			srv := stub.New(stub.Options{APIKey: apiKey, Logger: a.logger})
			httpSrv := &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 10 * time.Second}

			errCh := make(chan error, 1)
			go func() { errCh <- httpSrv.ListenAndServe() }()
			a.logger.Info("stub listening", zap.String("addr", addr), zap.String("api_key", srv.APIKey()))

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			a.logger.Info("stub stopped", zap.Int("calls", len(srv.Calls())))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8081", "Listen address.")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key required on login (default stub-api-key).")

	return cmd
}
