package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"swimmer-tracker-go/internal/repository"
	"swimmer-tracker-go/internal/service"
	"swimmer-tracker-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FrameProcessor операции сервиса, доступные через HTTP
type FrameProcessor interface {
	ProcessFrame(ctx context.Context, request models.FrameRequest) (*models.FrameResponse, error)
	Snapshot() *models.SnapshotResponse
	Reset()
	ListAlerts(page, pageSize int) ([]models.AlertInfo, int64, error)
	GetAlert(id string) (*models.AlertInfo, error)
	AlertsSince(since time.Time) (int64, error)
	CheckHealth(ctx context.Context) error
}

// FrameHandler обрабатывает HTTP запросы трекинга пловцов
type FrameHandler struct {
	frameService FrameProcessor
	logger       *logrus.Logger
	now          func() time.Time
}

// NewFrameHandler создает новый экземпляр FrameHandler
func NewFrameHandler(frameService FrameProcessor, logger *logrus.Logger) *FrameHandler {
	return &FrameHandler{
		frameService: frameService,
		logger:       logger,
		now:          time.Now,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *FrameHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/frames", h.ProcessFrame)
		api.GET("/swimmers", h.GetSwimmers)
		api.DELETE("/swimmers", h.ResetSwimmers)
		api.GET("/alerts", h.ListAlerts)
		api.GET("/alerts/:id", h.GetAlert)
		api.GET("/health", h.CheckHealth)
	}
}

// ProcessFrame принимает кадр с камеры и возвращает состояние пловцов
func (h *FrameHandler) ProcessFrame(c *gin.Context) {
	// Парсим multipart form
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		h.logger.Errorf("Ошибка парсинга multipart form: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка парсинга формы"})
		return
	}

	request, err := parseFrameForm(c)
	if err != nil {
		h.logger.Errorf("Неверные параметры кадра: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Получаем изображение
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		h.logger.Errorf("Ошибка получения изображения: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Изображение обязательно"})
		return
	}
	defer file.Close()

	request.ImageData, err = io.ReadAll(file)
	if err != nil {
		h.logger.Errorf("Ошибка чтения изображения: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка чтения изображения"})
		return
	}
	request.ImageName = header.Filename

	result, err := h.frameService.ProcessFrame(c.Request.Context(), request)
	if err != nil {
		if errors.Is(err, service.ErrEmptyFrame) || errors.Is(err, service.ErrInvalidImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось прочитать изображение"})
			return
		}
		h.logger.Errorf("Ошибка обработки кадра: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка обработки кадра"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseFrameForm читает необязательные поля кадра
func parseFrameForm(c *gin.Context) (models.FrameRequest, error) {
	var request models.FrameRequest

	if v := c.PostForm("orientation"); v != "" {
		orientation, err := strconv.Atoi(v)
		if err != nil {
			return request, errors.New("Неверный формат orientation")
		}
		request.Orientation = orientation
	}

	sizes := []struct {
		key string
		dst *float64
	}{
		{"output_width", &request.OutputSize.Width},
		{"output_height", &request.OutputSize.Height},
		{"detector_width", &request.DetectorSize.Width},
		{"detector_height", &request.DetectorSize.Height},
	}
	for _, s := range sizes {
		v := c.PostForm(s.key)
		if v == "" {
			continue
		}
		value, err := strconv.ParseFloat(v, 64)
		if err != nil || value < 0 {
			return request, errors.New("Неверный формат " + s.key)
		}
		*s.dst = value
	}

	if v := c.PostForm("frame_index"); v != "" {
		index, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return request, errors.New("Неверный формат frame_index")
		}
		request.FrameIndex = &index
	}

	if v := c.PostForm("timestamp_ms"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return request, errors.New("Неверный формат timestamp_ms")
		}
		at := time.UnixMilli(ms)
		request.Timestamp = &at
	}

	// Детекции, уже посчитанные на устройстве
	if v := c.PostForm("detections"); v != "" {
		detections := []models.Detection{}
		if err := json.Unmarshal([]byte(v), &detections); err != nil {
			return request, errors.New("Неверный формат detections")
		}
		request.Detections = detections
	}

	return request, nil
}

// GetSwimmers возвращает текущий реестр пловцов
func (h *FrameHandler) GetSwimmers(c *gin.Context) {
	c.JSON(http.StatusOK, h.frameService.Snapshot())
}

// ResetSwimmers очищает реестр пловцов
func (h *FrameHandler) ResetSwimmers(c *gin.Context) {
	h.logger.Info("Получен запрос на сброс реестра пловцов")
	h.frameService.Reset()
	c.JSON(http.StatusOK, gin.H{"message": "Реестр пловцов очищен"})
}

// ListAlerts возвращает историю тревог с пагинацией
func (h *FrameHandler) ListAlerts(c *gin.Context) {
	// Получаем параметры пагинации
	pageStr := c.DefaultQuery("page", "1")
	sizeStr := c.DefaultQuery("size", "10")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 || size > 100 {
		size = 10
	}

	alerts, total, err := h.frameService.ListAlerts(page, size)
	if err != nil {
		h.logger.Errorf("Ошибка получения списка тревог: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка получения списка тревог"})
		return
	}

	c.JSON(http.StatusOK, models.ListAlertsResponse{
		Alerts: alerts,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// GetAlert возвращает тревогу по ID
func (h *FrameHandler) GetAlert(c *gin.Context) {
	alertID := c.Param("id")

	info, err := h.frameService.GetAlert(alertID)
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Тревога не найдена"})
			return
		}
		h.logger.Errorf("Ошибка получения тревоги %s: %v", alertID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка получения тревоги"})
		return
	}

	c.JSON(http.StatusOK, info)
}

// CheckHealth проверяет состояние сервиса
func (h *FrameHandler) CheckHealth(c *gin.Context) {
	recent, err := h.frameService.AlertsSince(h.now().Add(-time.Hour))
	if err != nil {
		h.logger.Errorf("Ошибка подсчета тревог: %v", err)
		recent = -1
	}

	if err := h.frameService.CheckHealth(c.Request.Context()); err != nil {
		h.logger.Errorf("Детектор недоступен: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":           "unhealthy",
			"error":            "Детектор недоступен",
			"alerts_last_hour": recent,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"message":          "Сервис работает нормально",
		"alerts_last_hour": recent,
	})
}
