package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"swimmer-tracker-go/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB глобальная переменная для подключения к базе данных
var DB *gorm.DB

// Connect подключается к базе данных PostgreSQL
func Connect(dsn string, appLogger *logrus.Logger) error {
	// Настройка логгера GORM
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second,   // Slow SQL threshold
			LogLevel:                  logger.Silent, // Log level
			IgnoreRecordNotFoundError: true,          // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,         // Disable color
		},
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Настройка пула соединений
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	appLogger.Info("Подключение к PostgreSQL установлено")
	return nil
}

// Migrate выполняет автомиграции
func Migrate(appLogger *logrus.Logger) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	appLogger.Info("Выполнение миграций базы данных...")

	if err := DB.AutoMigrate(&model.AlertRecord{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	appLogger.Info("Миграции базы данных выполнены")
	return nil
}

// Close закрывает соединение с базой данных
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// HealthCheck проверяет состояние подключения к базе данных
func HealthCheck() error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}
