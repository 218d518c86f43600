package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/solatis/docupdate/internal/core/api"
	"github.com/solatis/docupdate/internal/core/auth"
	"github.com/solatis/docupdate/internal/core/config"
	"github.com/solatis/docupdate/internal/core/db"
	"github.com/solatis/docupdate/internal/core/httpapi"
	"github.com/solatis/docupdate/internal/core/server"
	"github.com/solatis/docupdate/internal/core/store"
	"github.com/solatis/docupdate/internal/update"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC and HTTP document services",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("grpc-port", 50051, "gRPC port")
	serveCmd.Flags().Int("http-port", 8080, "HTTP port (0 disables HTTP)")
}

// openDatabase opens --db-url and fails unless every migration is applied.
func openDatabase() (*sqlx.DB, *db.Queries, error) {
	if dbURL == "" {
		return nil, nil, fmt.Errorf("--db-url required")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	statuses, err := db.MigrateStatus(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return nil, nil, fmt.Errorf("migration %s not applied - run 'docupdate migrate' first", s.ID)
		}
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("grpc-port") {
		cfg.GRPCPort, _ = cmd.Flags().GetInt("grpc-port")
	}
	if cmd.Flags().Changed("http-port") {
		cfg.HTTPPort, _ = cmd.Flags().GetInt("http-port")
	}

	database, queries, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set %s_HMAC_SECRET environment variable)", config.EnvPrefix)
	}
	authenticator := auth.NewAuthenticator(secrets, queries)

	engine := update.NewEngine(update.WithLogger(logger))
	st, err := store.New(queries, engine, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	service, err := api.NewDocumentService(st, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	grpcServer, err := server.NewGRPCServer(cfg, service, authenticator, logger)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}

	var httpServer *server.HTTPServer
	if cfg.HTTPPort != 0 {
		handler, err := httpapi.NewHandler(st, authenticator, logger, httpapi.Options{
			MaxBodyBytes:   int64(cfg.MaxDocumentSize),
			RequestTimeout: cfg.RequestTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create HTTP handler: %w", err)
		}
		if httpServer, err = server.NewHTTPServer(cfg, handler, logger); err != nil {
			return fmt.Errorf("failed to create HTTP server: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting docupdate", "version", Version, "host", cfg.Host,
		"grpc_port", cfg.GRPCPort, "http_port", cfg.HTTPPort)

	errChan := make(chan error, 2)
	go func() { errChan <- grpcServer.Start(ctx) }()
	if httpServer != nil {
		go func() { errChan <- httpServer.Start(ctx) }()
	}

	var runErr error
	select {
	case runErr = <-errChan:
		logger.Error("server stopped", "error", runErr)
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown", "error", err)
		}
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("gRPC shutdown", "error", err)
	}
	return runErr
}

