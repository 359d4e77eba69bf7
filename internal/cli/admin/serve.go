package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/api/handlers"
	"github.com/cloo-solutions/taskpriority/internal/config"
	"github.com/cloo-solutions/taskpriority/internal/database"
	"github.com/cloo-solutions/taskpriority/internal/jobs"
	"github.com/cloo-solutions/taskpriority/internal/repository"
	"github.com/cloo-solutions/taskpriority/internal/server"
	"github.com/cloo-solutions/taskpriority/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the taskpriority API server and the background duplicate check worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", database.DefaultMigrationsDir, "Directory holding SQL migrations")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// 10% sampling in production, everything elsewhere
		sampleRate := 1.0
		if cfg.Environment == "production" {
			sampleRate = 0.1
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		dir, _ := cmd.Flags().GetString("migrations")
		if err := database.Migrate(cfg.DatabaseURL, dir, database.Up); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	jobRepo := repository.NewDuplicateCheckJobRepository(a.pool)
	duplicateWorker := jobs.NewWorker(
		"duplicate-check",
		jobs.NewDuplicateCheckWorker(jobRepo, a.taskSvc),
		cfg.WorkerPollInterval,
	)
	go duplicateWorker.Start(ctx)
	log.Println("duplicate check worker started")

	// Pass a nil interface, not a nil pointer, when vectors are not persisted.
	var purger handlers.PersistentCachePurger
	if a.persistent != nil {
		purger = a.persistent
	}

	router := server.NewRouter(server.RouterConfig{
		TaskHandler:           handlers.NewTaskHandler(a.taskSvc),
		GroupHandler:          handlers.NewGroupHandler(a.grouping),
		EmbeddingCacheHandler: handlers.NewEmbeddingCacheHandler(a.embeddings, purger),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	duplicateWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
