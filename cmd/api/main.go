package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/cofrinho-service/internal/config"
	"github.com/Dan9191/cofrinho-service/internal/handler"
	"github.com/Dan9191/cofrinho-service/internal/integrations/bcb"
	"github.com/Dan9191/cofrinho-service/internal/repository"
	"github.com/Dan9191/cofrinho-service/internal/service"
	"github.com/Dan9191/cofrinho-service/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	var rates repository.RateStore = repository.NewRepository(db)
	if cfg.RedisAddr != "" {
		cached := repository.NewCachedRateStore(rates, cfg.RedisAddr, time.Hour)
		defer cached.Close()
		rates = cached
	}
	bcbClient := bcb.NewBCBClient(cfg, logger)
	sender := email.NewSender(cfg, logger)
	svc, err := service.NewService(rates, bcbClient, sender, logger, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize service: %v", err)
	}
	h := handler.NewHandler(svc, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := svc.StartRateScheduler(ctx, cfg.RateRefreshCron)
	if err != nil {
		logger.Fatalf("Failed to schedule rate refresh: %v", err)
	}
	defer scheduler.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Fatalf("Server failed: %v", err)
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
}
