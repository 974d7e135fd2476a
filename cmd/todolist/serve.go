package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MaraisMark/NotetakingMark/internal/config"
	"github.com/MaraisMark/NotetakingMark/internal/logging"
	"github.com/MaraisMark/NotetakingMark/internal/store"
	"github.com/MaraisMark/NotetakingMark/internal/store/mongostore"
	"github.com/MaraisMark/NotetakingMark/internal/store/pgstore"
	"github.com/MaraisMark/NotetakingMark/internal/store/sqlitestore"
	"github.com/MaraisMark/NotetakingMark/internal/telemetry"
	"github.com/MaraisMark/NotetakingMark/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	config.RegisterFlags(serveCmd.Flags())
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logging.Init(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("Error shutting down telemetry", "error", err)
		}
	}()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Backend, err)
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Error("Error closing store", "error", err)
		}
	}()

	srv := web.NewServer(st, web.Options{
		Mode:        cfg.Mode,
		ServiceName: cfg.Telemetry.ServiceName,
		Logger:      logger,
	})
	return srv.Run(ctx, cfg.Addr)
}

// openStore connects the configured backend and wraps it with tracing.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMongo:
		st, err := mongostore.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		slog.Info("connected to MongoDB", "database", cfg.Mongo.Database)
		return store.WithTracing(st, "mongodb"), nil
	case config.BackendPostgres:
		st, err := pgstore.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		slog.Info("connected to PostgreSQL")
		return store.WithTracing(st, "postgresql"), nil
	case config.BackendSQLite:
		st, err := sqlitestore.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		slog.Info("opened SQLite database", "path", cfg.SQLite.Path)
		return store.WithTracing(st, "sqlite"), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrBackendUnknown, cfg.Backend)
	}
}
