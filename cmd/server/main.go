package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"swimmer-tracker-go/internal/alert"
	"swimmer-tracker-go/internal/client"
	"swimmer-tracker-go/internal/config"
	"swimmer-tracker-go/internal/database"
	"swimmer-tracker-go/internal/geo"
	"swimmer-tracker-go/internal/handler"
	"swimmer-tracker-go/internal/repository"
	"swimmer-tracker-go/internal/service"
	"swimmer-tracker-go/internal/tracker"
	"swimmer-tracker-go/internal/water"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// Инициализируем логгер
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.Info("Запуск Swimmer Tracker API Server")

	// Получаем конфигурацию из переменных окружения
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warnf("Конфигурация трекинга: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	// Инициализируем хранилище тревог
	alertRepo := initAlertRepository(cfg, logger)
	defer database.Close()

	// Инициализируем движок трекинга
	classifier := water.NewClassifier(cfg.Tracking.WaterConfig())
	projector := geo.NewProjector(cfg.Tracking.LandscapeTopOffset)
	trk := tracker.New(cfg.Tracking.TrackerConfig(), projector)

	// Инициализируем клиент детектора
	detector := client.NewDetectorAPIClient(
		cfg.DetectorAPI.BaseURL,
		time.Duration(cfg.DetectorAPI.Timeout)*time.Second,
		logger,
	)

	// Исполнители тревог
	dispatchers := alert.Multi{alert.NewLogDispatcher(logger)}
	if cfg.Alert.WebhookURL != "" {
		logger.Infof("Тревоги отправляются на %s", cfg.Alert.WebhookURL)
		dispatchers = append(dispatchers, alert.NewWebhookDispatcher(cfg.Alert.WebhookURL, cfg.Alert.WebhookTimeout, logger))
	}

	// Инициализируем сервисы
	frameService := service.NewFrameService(detector, classifier, trk, alertRepo, dispatchers, logger)

	// Инициализируем обработчики
	frameHandler := handler.NewFrameHandler(frameService, logger)

	// gRPC health для оркестратора
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reporter := handler.NewHealthReporter(frameService, 3*time.Second, logger)
	go reporter.Run(ctx, 10*time.Second)
	go serveGRPC(cfg.Server.GRPCPort, reporter, logger)

	// Настраиваем Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Добавляем middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Регистрируем маршруты
	frameHandler.RegisterRoutes(router)

	// Добавляем базовый маршрут для проверки
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Swimmer Tracker API Server",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	// Запускаем сервер
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Сервер запущен на порту %d", cfg.Server.Port)
	logger.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)

	if err := router.Run(serverAddr); err != nil {
		logger.Fatalf("Ошибка запуска сервера: %v", err)
	}
}

// initAlertRepository выбирает PostgreSQL или хранилище в памяти
func initAlertRepository(cfg *config.Config, logger *logrus.Logger) repository.AlertRepository {
	if !cfg.Database.Enabled {
		logger.Info("База данных отключена, тревоги хранятся в памяти")
		return repository.NewMemoryAlertRepository()
	}

	logger.Info("Подключение к базе данных...")
	if err := database.Connect(cfg.DSN(), logger); err != nil {
		logger.Fatalf("Ошибка подключения к базе данных: %v", err)
	}

	// Выполняем миграции
	if err := database.Migrate(logger); err != nil {
		logger.Fatalf("Ошибка выполнения миграций: %v", err)
	}

	// Проверяем здоровье базы данных
	if err := database.HealthCheck(); err != nil {
		logger.Fatalf("База данных недоступна: %v", err)
	}

	logger.Info("База данных успешно подключена и готова к работе")
	return repository.NewAlertRepository(database.DB)
}

// serveGRPC запускает gRPC сервер со службой health
func serveGRPC(port int, reporter *handler.HealthReporter, logger *logrus.Logger) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Errorf("Ошибка запуска gRPC listener: %v", err)
		return
	}

	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, reporter.Server())

	logger.Infof("gRPC health запущен на порту %d", port)
	if err := server.Serve(lis); err != nil {
		logger.Errorf("gRPC сервер остановлен: %v", err)
	}
}

// corsMiddleware добавляет заголовки CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
