package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/va-pc/buildscout/internal/api"
	"github.com/va-pc/buildscout/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for build listings and comparisons",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		opts := []api.Option{
			api.WithPriceRange(cfg.Server.PriceComparisonRange),
			api.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		}

		// Ingest endpoint only when a VK token is configured.
		if cfg.VK.Token != "" {
			p, err := newParser()
			if err != nil {
				return err
			}
			defaultGroups, err := cfg.LoadGroupIDs()
			if err != nil {
				return err
			}
			starter := func(groupIDs []int64, source model.Source) (string, error) {
				runID := uuid.NewString()
				go func() {
					stored, err := runIngest(context.WithoutCancel(ctx), st, p, runID, groupIDs, source)
					if err != nil {
						zap.L().Error("background ingest failed",
							zap.String("run_id", runID),
							zap.Int("stored", stored),
							zap.Error(err),
						)
						return
					}
					zap.L().Info("background ingest complete",
						zap.String("run_id", runID),
						zap.Int("stored", stored),
					)
				}()
				return runID, nil
			}
			opts = append(opts, api.WithParseStarter(starter, defaultGroups))
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.New(st, opts...).Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
