package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/notification-center/internal/server"
	"github.com/nhle/notification-center/internal/store"
)

func newServeCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference notification server",
		Long: `Run a local notification server backed by SQLite.

Bearer tokens are read from server.tokens in the config file, mapping each
token to the user id it authenticates.

Examples:
  notifyctl serve
  notifyctl serve --seed   # add sample notifications for every configured user
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closer, err := loadRuntime()
			if err != nil {
				return err
			}
			defer closer.Close()

			if len(cfg.Server.Tokens) == 0 {
				return errors.New("no tokens configured; set server.tokens in the config file")
			}

			st, err := store.NewSQLiteStore(cfg.Server.DBPath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if seed {
				seeded := map[string]bool{}
				for _, userID := range cfg.Server.Tokens {
					if seeded[userID] {
						continue
					}
					seeded[userID] = true
					if err := server.Seed(ctx, st, userID, time.Now()); err != nil {
						return err
					}
					logger.WithField("user_id", userID).Info("seeded sample notifications")
				}
			}

			srv := server.New(st, cfg.Server.Tokens, logger)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(cfg.Server.Addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "create sample notifications on start")

	return cmd
}
