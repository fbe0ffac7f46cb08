package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sadopc/datagate/internal/config"
	"github.com/sadopc/datagate/internal/registry"
	"github.com/sadopc/datagate/internal/server"
)

func newServeCmd(configFlag *string) *cobra.Command {
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			if addrFlag != "" {
				cfg.Server.Addr = addrFlag
			}

			logger, err := newLogger(os.Stderr, cfg.Log)
			if err != nil {
				return err
			}

			auditLog := openAudit(cfg.Audit, logger)
			if auditLog != nil {
				defer auditLog.Close()
			}

			hist := openHistory(cfg.History, logger)
			defer hist.Close()

			conns := registry.NewConnections(registry.ConnectionsOptions{
				Logger:          logger,
				Audit:           auditLog,
				History:         hist,
				DefaultPageSize: cfg.Server.DefaultPageSize,
				MaxPageSize:     cfg.Server.MaxPageSize,
			}, adapters()...)
			defer conns.Shutdown()
			files := registry.NewDatasets(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			openSaved(ctx, conns, cfg.Connections, logger)

			srv := server.New(conns, files, server.Options{
				Version:         version,
				Logger:          logger,
				History:         hist,
				RequestTimeout:  cfg.Server.RequestTimeout,
				MaxUploadBytes:  int64(cfg.Server.MaxUploadMB) << 20,
				DefaultPageSize: cfg.Server.DefaultPageSize,
				MaxPageSize:     cfg.Server.MaxPageSize,
				CORSOrigins:     cfg.Server.CORSOrigins,
			})
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

// openSaved opens the connections listed in the config. A connection that
// fails to open is logged and skipped.
func openSaved(ctx context.Context, conns *registry.Connections, saved []config.SavedConnection, logger *slog.Logger) {
	for i := range saved {
		sc := &saved[i]
		id, err := conns.Open(ctx, sc.Engine, sc.EngineConfig())
		if err != nil {
			logger.Warn("saved connection failed",
				"name", sc.Name,
				"target", sc.DisplayString(),
				"error", err,
			)
			continue
		}
		logger.Info("saved connection opened",
			"name", sc.Name,
			"id", id,
			"target", sc.DisplayString(),
		)
	}
}
