package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/freelance-market/internal/config"
	"github.com/ignatzorin/freelance-market/internal/db"
	"github.com/ignatzorin/freelance-market/internal/events"
	httpHandlers "github.com/ignatzorin/freelance-market/internal/http/handlers"
	httpRouter "github.com/ignatzorin/freelance-market/internal/http/router"
	"github.com/ignatzorin/freelance-market/internal/logger"
	"github.com/ignatzorin/freelance-market/internal/repository"
	"github.com/ignatzorin/freelance-market/internal/repository/common"
	"github.com/ignatzorin/freelance-market/internal/service"
	"github.com/ignatzorin/freelance-market/internal/storage"
	"github.com/ignatzorin/freelance-market/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(dbConn); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	files, err := storage.NewFileStorage(cfg.MediaStoragePath, cfg.MediaBaseURL, cfg.MaxUploadSizeMB)
	if err != nil {
		logger.Log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	tx := common.NewTransactor(dbConn)
	userRepo := repository.NewUserRepository(dbConn)
	orderRepo := repository.NewOrderRepository(dbConn)
	historyRepo := repository.NewOrderHistoryRepository(dbConn)
	bidRepo := repository.NewBidRepository(dbConn)
	assignmentRepo := repository.NewAssignmentRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	ledgerRepo := repository.NewLedgerRepository(dbConn)
	catalogRepo := repository.NewCatalogRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Доставка событий после коммита: вебсокеты, уведомления, кэш списков и, если задан, Redis.
	hub := ws.NewHub(ctx)
	go hub.Run()

	cache := service.NewCacheService(ctx, cfg.ListCacheTTL)
	notifications := service.NewNotificationService(notificationRepo)
	dispatcher := events.NewDispatcher(hub, notifications, cache)
	defer dispatcher.Wait()

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Log.Warnf("main: ошибка закрытия redis: %v", err)
			}
		}()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Log.Warnf("main: redis недоступен, события пойдут только локально: %v", err)
		} else {
			dispatcher.AddSink(events.NewRedisSink(rdb, cfg.RedisChannel))
		}
	}

	// Сервисы.
	policy := service.OrderPolicy{
		RefundOnCancel:      cfg.Policy.RefundOnCancel,
		PayoutOnComplete:    cfg.Policy.PayoutOnComplete,
		StrictDeliveryCheck: cfg.Policy.StrictDeliveryCheck,
	}
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	authService := service.NewAuthService(userRepo, tokenManager)
	ledgerService := service.NewLedgerService(tx, ledgerRepo, cfg.Policy.DepositMax)
	assignmentService := service.NewAssignmentService(assignmentRepo)
	reviewService := service.NewReviewService(tx, orderRepo, assignmentService, reviewRepo, userRepo)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Tx:          tx,
		Publisher:   dispatcher,
		Files:       files,
		Orders:      orderRepo,
		History:     historyRepo,
		Catalog:     catalogRepo,
		Users:       userRepo,
		Bids:        bidRepo,
		Ledger:      ledgerService,
		Assignments: assignmentService,
		Reviews:     reviewService,
		Cache:       cache,
		Policy:      policy,
	})
	bidService := service.NewBidService(tx, dispatcher, orderRepo, historyRepo, bidRepo, ledgerService, assignmentService)
	disputeService := service.NewDisputeService(tx, dispatcher, orderRepo, historyRepo, disputeRepo, ledgerService, assignmentService, policy.PayoutOnComplete)

	// HTTP хэндлеры.
	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Auth:          httpHandlers.NewAuthHandler(authService),
		Orders:        httpHandlers.NewOrderHandler(orderService, assignmentService),
		Bids:          httpHandlers.NewBidHandler(bidService),
		Disputes:      httpHandlers.NewDisputeHandler(disputeService),
		Reviews:       httpHandlers.NewReviewHandler(reviewService),
		Balance:       httpHandlers.NewBalanceHandler(ledgerService),
		Admin:         httpHandlers.NewAdminHandler(service.NewAdminService(userRepo)),
		Notifications: httpHandlers.NewNotificationHandler(notifications),
		Catalog:       httpHandlers.NewCatalogHandler(service.NewCatalogService(catalogRepo)),
		Users:         httpHandlers.NewUserHandler(service.NewUserService(userRepo, assignmentRepo)),
		WS:            httpHandlers.NewWSHandler(hub, authService, cfg.AllowedOrigins),
		Health:        httpHandlers.NewHealthHandler(dbConn),
	}, authService)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	logger.Log.Infof("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.Errorf("main: ошибка закрытия базы: %v", err)
	}
}
