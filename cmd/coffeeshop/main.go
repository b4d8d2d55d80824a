// Package main запускает HTTP-сервер сервиса кофейни.
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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/coffeeshop-system/internal/config"
	"github.com/mmeshcher/coffeeshop-system/internal/events"
	"github.com/mmeshcher/coffeeshop-system/internal/handler"
	"github.com/mmeshcher/coffeeshop-system/internal/middleware"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/service"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	taxRate, err := cfg.Tax()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	// без брокера события не публикуются
	var publisher service.EventPublisher
	if cfg.AMQPURL != "" {
		p, err := events.Dial(cfg.AMQPURL)
		if err != nil {
			sugar.Fatalw("event broker connection error", "error", err.Error())
		}
		defer p.Close()
		publisher = p
	}

	if cfg.JWTSecret == "" {
		sugar.Warn("JWT secret is not set, tokens will not survive a restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, cfg.JWTTTL)

	h := handler.NewHandler(handler.Services{
		Accounts:   service.NewAccountService(repo, authMiddleware),
		Staff:      service.NewStaffService(repo),
		Menu:       service.NewMenuService(repo),
		Promotions: service.NewPromotionService(repo),
		Orders:     service.NewOrderService(repo, publisher, taxRate, logger),
		History:    service.NewHistoryService(repo),
		WorkLogs:   service.NewWorkLogService(repo),
	}, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting coffeeshop server", "addr", cfg.RunAddress, "tax_rate", taxRate.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
