package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/testerwork/backend/internal/config"
	"github.com/testerwork/backend/internal/db"
	"github.com/testerwork/backend/internal/goroutine"
	httpHandlers "github.com/testerwork/backend/internal/http/handlers"
	httpRouter "github.com/testerwork/backend/internal/http/router"
	"github.com/testerwork/backend/internal/logger"
	"github.com/testerwork/backend/internal/repository"
	"github.com/testerwork/backend/internal/service"
	"github.com/testerwork/backend/internal/storage"
	"github.com/testerwork/backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	proofStorage, err := storage.NewProofStorage(cfg.ProofStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	walletRepo := repository.NewWalletRepository(dbConn)
	depositRepo := repository.NewDepositRepository(dbConn)
	jobRepo := repository.NewJobRepository(dbConn)
	orderRepo := repository.NewOrderRepository(dbConn, cfg.PlatformFeeRate, cfg.DownloadTokenTTL)
	tokenRepo := repository.NewTokenRepository(dbConn)

	// Вебсокеты: доставка событий расчётов подключённым пользователям.
	hub := ws.NewHub(ctx)
	goroutine.SafeGo(hub.Run)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	walletService := service.NewWalletService(walletRepo)
	depositService := service.NewDepositService(depositRepo, hub)
	jobService := service.NewJobService(jobRepo, hub)
	marketService := service.NewMarketService(orderRepo, hub)
	downloadService := service.NewDownloadTokenService(tokenRepo, orderRepo, cfg.DownloadTokenTTL)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	walletHandler := httpHandlers.NewWalletHandler(walletService)
	depositHandler := httpHandlers.NewDepositHandler(depositService, proofStorage)
	jobHandler := httpHandlers.NewJobHandler(jobService)
	marketHandler := httpHandlers.NewMarketHandler(marketService, userRepo)
	downloadHandler := httpHandlers.NewDownloadHandler(downloadService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, walletHandler, depositHandler, jobHandler, marketHandler, downloadHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
