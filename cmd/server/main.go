package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"kedaipos-backend/internal/config"
	"kedaipos-backend/internal/db"
	"kedaipos-backend/internal/handler"
	"kedaipos-backend/internal/repository"
	"kedaipos-backend/internal/server"
	"kedaipos-backend/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	// repositories
	userRepo := repository.UserRepository{DB: pg}
	categoryRepo := repository.CategoryRepository{DB: pg}
	menuRepo := repository.MenuRepository{DB: pg}
	orderRepo := repository.OrderRepository{DB: pg}
	shiftRepo := repository.ShiftRepository{DB: pg}
	reportRepo := repository.ReportRepository{DB: pg}
	settingsRepo := repository.SettingsRepository{DB: pg}

	// services
	authSvc := service.AuthService{Config: cfg, Users: userRepo, Logger: logger}
	shiftSvc := service.ShiftService{Shifts: shiftRepo, Logger: logger}

	// handlers
	healthHandler := handler.HealthHandler{DB: pg}
	authHandler := handler.AuthHandler{Service: &authSvc}
	categoryHandler := handler.CategoryHandler{Repo: categoryRepo}
	menuHandler := handler.MenuHandler{Repo: menuRepo, Currency: cfg.DefaultCurrency}
	orderHandler := handler.OrderHandler{Repo: orderRepo, Shifts: shiftRepo, Currency: cfg.DefaultCurrency}
	shiftHandler := handler.ShiftHandler{Service: shiftSvc}
	syncHandler := handler.SyncHandler{Orders: orderRepo}
	reportHandler := handler.ReportHandler{Repo: reportRepo}
	settingsHandler := handler.SettingsHandler{Repo: settingsRepo}

	router := server.NewRouter(cfg, logger, healthHandler, authHandler, categoryHandler, menuHandler, orderHandler, shiftHandler, syncHandler, reportHandler, settingsHandler)

	if err := server.Start(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
