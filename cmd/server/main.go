package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"discovery/internal/app"
	"discovery/internal/config"
	"discovery/internal/logging"
	"discovery/internal/transport/rest"
	"discovery/internal/transport/ws"
)

func main() {
	os.Exit(serve())
}

// serve returns the process exit code once every deferred cleanup has run
func serve() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}

	logger, err := logging.New(cfg.Log.Level, cfg.IsDevelopment())
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return 1
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	// Initialize WebSocket hub
	wsHub := ws.NewHub(logger)
	defer wsHub.Close()

	// Inject broadcaster (wsHub implements service.Broadcaster)
	a.SetBroadcaster(wsHub)

	router := rest.NewRouter(&rest.Container{
		AuthService:          a.Auth,
		QuestionnaireService: a.Questionnaire,
		CompletionService:    a.Completion,
		Catalog:              a.Catalog,
		WSHub:                wsHub,
		AllowedOrigins:       cfg.CORS.AllowedOrigins,
		Logger:               logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
