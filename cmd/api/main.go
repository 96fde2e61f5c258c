package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/aromastream/internal/config"
	"github.com/Dan9191/aromastream/internal/handler"
	"github.com/Dan9191/aromastream/internal/scheduler"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aromastream",
	Short: "Video streaming and aroma trigger API",
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.migrate(cmd.Context())
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired change requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.newService(cmd.Context())
		if err != nil {
			return err
		}
		n, err := svc.SweepExpiredChangeRequests(cmd.Context())
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		fmt.Printf("Deleted %d expired change requests\n", n)
		return nil
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote <username>",
	Short: "Grant staff privileges to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.newService(cmd.Context())
		if err != nil {
			return err
		}
		if err := svc.Promote(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to promote %s: %w", args[0], err)
		}
		fmt.Printf("User %s is now staff\n", args[0])
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	if cfg.AutoMigrate {
		if err := a.migrate(ctx); err != nil {
			logger.Errorf("Failed to migrate database: %v", err)
			return err
		}
	}

	svc, err := a.newService(ctx)
	if err != nil {
		return err
	}

	if cfg.SweepSchedule != "" {
		sweeper, err := scheduler.NewSweeper(cfg.SweepSchedule, svc.SweepExpiredChangeRequests, logger)
		if err != nil {
			return err
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	opts := handler.RouterOptions{}
	if cfg.StorageType == config.StorageFilesystem {
		opts.MediaRoot = cfg.MediaRoot
		opts.MediaURL = cfg.MediaURL
	}
	router := handler.NewRouter(handler.NewHandler(svc, logger, cfg), opts)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Errorf("Server failed: %v", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file (defaults to $CONFIG_FILE)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(promoteCmd)
}
