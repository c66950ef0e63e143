package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	transport "github.com/cybrty/redops/internal/transport/http"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the assessment HTTP server",
		Long: `Start the HTTP server exposing the assessment API.

Example:
  redops serve --db ./redops.db --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, cfg, cleanup, err := buildService(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			if port != 0 {
				cfg.HTTPPort = port
			}

			e := transport.NewServer(svc)
			errCh := make(chan error, 1)
			go func() {
				errCh <- e.Start(fmt.Sprintf(":%d", cfg.HTTPPort))
			}()
			log.Printf("listening on :%d", cfg.HTTPPort)

			select {
			case err := <-errCh:
				if err != nil && err != http.ErrServerClosed {
					return fmt.Errorf("server failed: %w", err)
				}
			case <-ctx.Done():
				log.Println("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := e.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown failed: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (defaults to HTTP_PORT)")
	return cmd
}
