package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"swimmer-tracker-go/internal/geo"
	"swimmer-tracker-go/internal/tracker"
	"swimmer-tracker-go/internal/water"
)

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port        int
		Host        string
		GRPCPort    int
		Environment string
	}
	DetectorAPI struct {
		BaseURL string
		Timeout int // в секундах
	}
	Database struct {
		Enabled  bool
		Host     string
		Port     string
		Name     string
		User     string
		Password string
		SSLMode  string
	}
	Logging struct {
		Level string
	}
	Alert struct {
		WebhookURL     string
		WebhookTimeout time.Duration
	}
	Tracking Tracking
}

// Tracking настраиваемые параметры движка
type Tracking struct {
	MaskStride         int
	WaterMinBlue       int
	PersonLabel        string
	MinConfidence      float64
	MinIoU             float64
	MaxMissedFrames    int
	EvictAfter         time.Duration
	AlertThreshold     time.Duration
	LandscapeTopOffset float64
}

// DefaultTracking возвращает параметры движка по умолчанию
func DefaultTracking() Tracking {
	tc := tracker.DefaultConfig()
	return Tracking{
		MaskStride:         water.DefaultStride,
		WaterMinBlue:       water.DefaultMinBlue,
		PersonLabel:        tc.PersonLabel,
		MinConfidence:      tc.MinConfidence,
		MinIoU:             tc.MinIoU,
		MaxMissedFrames:    int(tc.MaxMissedFrames),
		EvictAfter:         tc.EvictAfter,
		AlertThreshold:     tc.AlertThreshold,
		LandscapeTopOffset: geo.DefaultLandscapeTopOffset,
	}
}

// Validate проверяет диапазоны параметров движка
func (t Tracking) Validate() error {
	var errs []error
	if t.MaskStride < 1 {
		errs = append(errs, fmt.Errorf("mask stride must be positive, got %d", t.MaskStride))
	}
	if t.WaterMinBlue < 0 || t.WaterMinBlue > 255 {
		errs = append(errs, fmt.Errorf("water min blue must be in [0,255], got %d", t.WaterMinBlue))
	}
	if t.PersonLabel == "" {
		errs = append(errs, errors.New("person label must not be empty"))
	}
	if t.MinConfidence < 0 || t.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("min confidence must be in [0,1], got %v", t.MinConfidence))
	}
	if t.MinIoU < 0 || t.MinIoU > 1 {
		errs = append(errs, fmt.Errorf("min IoU must be in [0,1], got %v", t.MinIoU))
	}
	if t.MaxMissedFrames < 0 {
		errs = append(errs, fmt.Errorf("max missed frames must not be negative, got %d", t.MaxMissedFrames))
	}
	if t.EvictAfter < 0 {
		errs = append(errs, fmt.Errorf("evict window must not be negative, got %v", t.EvictAfter))
	}
	if t.AlertThreshold < 0 {
		errs = append(errs, fmt.Errorf("alert threshold must not be negative, got %v", t.AlertThreshold))
	}
	if t.LandscapeTopOffset < 0 {
		errs = append(errs, fmt.Errorf("landscape top offset must not be negative, got %v", t.LandscapeTopOffset))
	}
	return errors.Join(errs...)
}

// WaterConfig параметры классификатора воды
func (t Tracking) WaterConfig() water.Config {
	return water.Config{Stride: t.MaskStride, MinBlue: uint8(t.WaterMinBlue)}
}

// TrackerConfig параметры трекера
func (t Tracking) TrackerConfig() tracker.Config {
	return tracker.Config{
		PersonLabel:     t.PersonLabel,
		MinConfidence:   t.MinConfidence,
		MinIoU:          t.MinIoU,
		MaxMissedFrames: int64(t.MaxMissedFrames),
		EvictAfter:      t.EvictAfter,
		AlertThreshold:  t.AlertThreshold,
	}
}

// LoadConfig загружает конфигурацию из переменных окружения.
// Некорректные параметры движка заменяются значениями по умолчанию,
// ошибка перечисляет, что было отброшено.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.GRPCPort = getEnvInt("GRPC_PORT", 9090)
	cfg.Server.Environment = getEnv("ENVIRONMENT", "development")

	// Конфигурация API детектора
	cfg.DetectorAPI.BaseURL = getEnv("DETECTOR_API_BASE_URL", "http://localhost:8000")
	cfg.DetectorAPI.Timeout = getEnvInt("DETECTOR_API_TIMEOUT_SECONDS", 5)

	// Конфигурация базы данных
	cfg.Database.Enabled = getEnvBool("DB_ENABLED", true)
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.Name = getEnv("DB_NAME", "swimmer_tracker")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres123")
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", "disable")

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	// Конфигурация оповещений
	cfg.Alert.WebhookURL = getEnv("ALERT_WEBHOOK_URL", "")
	cfg.Alert.WebhookTimeout = getEnvDuration("ALERT_WEBHOOK_TIMEOUT", 3*time.Second)

	// Параметры движка
	def := DefaultTracking()
	cfg.Tracking = Tracking{
		MaskStride:         getEnvInt("TRACK_MASK_STRIDE", def.MaskStride),
		WaterMinBlue:       getEnvInt("TRACK_WATER_MIN_BLUE", def.WaterMinBlue),
		PersonLabel:        getEnv("TRACK_PERSON_LABEL", def.PersonLabel),
		MinConfidence:      getEnvFloat("TRACK_MIN_CONFIDENCE", def.MinConfidence),
		MinIoU:             getEnvFloat("TRACK_MIN_IOU", def.MinIoU),
		MaxMissedFrames:    getEnvInt("TRACK_MAX_MISSED_FRAMES", def.MaxMissedFrames),
		EvictAfter:         getEnvDuration("TRACK_EVICT_AFTER", def.EvictAfter),
		AlertThreshold:     getEnvDuration("TRACK_ALERT_THRESHOLD", def.AlertThreshold),
		LandscapeTopOffset: getEnvFloat("TRACK_LANDSCAPE_TOP_OFFSET", def.LandscapeTopOffset),
	}

	if err := cfg.Tracking.Validate(); err != nil {
		cfg.Tracking = def
		return cfg, fmt.Errorf("invalid tracking config, using defaults: %w", err)
	}

	return cfg, nil
}

// DSN строка подключения к PostgreSQL
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name, c.Database.SSLMode,
	)
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает float64 значение переменной окружения
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool получает bool значение переменной окружения
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration принимает "30s", "1m" или число секунд
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
