package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"swimmer-tracker-go/internal/geo"
	"swimmer-tracker-go/internal/tracker"
	"swimmer-tracker-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// ErrDetectorUnavailable детектор не ответил или ответил ошибкой
var ErrDetectorUnavailable = errors.New("detector unavailable")

// DetectResult детекции одного кадра и размер кадра, на котором работала модель
type DetectResult struct {
	Detections []tracker.Detection
	ImageSize  geo.Size
}

// DetectorAPIClient клиент для сервиса модели детекции объектов
type DetectorAPIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewDetectorAPIClient создает новый клиент для сервиса детектора
func NewDetectorAPIClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *DetectorAPIClient {
	return &DetectorAPIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Detect отправляет кадр в сервис детектора
func (c *DetectorAPIClient) Detect(ctx context.Context, imageData []byte, filename string) (*DetectResult, error) {
	c.logger.Debug("Отправка кадра в сервис детектора")

	// Создаем multipart form-data
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if filename == "" {
		filename = "frame.jpg"
	}
	imageWriter, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания form field для изображения: %w", err)
	}
	if _, err := imageWriter.Write(imageData); err != nil {
		return nil, fmt.Errorf("ошибка записи данных изображения: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ошибка закрытия multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/detect", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debugf("Отправка POST запроса на %s", url)
	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var apiResponse models.DetectorAPIResponse
	if err := json.Unmarshal(respBody, &apiResponse); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}

	if apiResponse.Status != "" && apiResponse.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrDetectorUnavailable, apiResponse.Message)
	}

	result := &DetectResult{
		ImageSize:  geo.Size{Width: apiResponse.ImageWidth, Height: apiResponse.ImageHeight},
		Detections: make([]tracker.Detection, 0, len(apiResponse.Detections)),
	}
	for _, d := range apiResponse.Detections {
		// Берем первую категорию, как ее отдает модель
		if len(d.Categories) == 0 {
			continue
		}
		result.Detections = append(result.Detections, tracker.Detection{
			Box:   geo.BoundingBox{Left: d.Left, Top: d.Top, Right: d.Right, Bottom: d.Bottom},
			Label: d.Categories[0].Name,
			Score: d.Categories[0].Score,
		})
	}

	c.logger.Debugf("Детектор вернул %d объектов", len(result.Detections))
	return result, nil
}

// CheckHealth проверяет состояние сервиса детектора
func (c *DetectorAPIClient) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	c.logger.Debug("Проверка здоровья сервиса детектора")

	url := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var healthResponse models.HealthResponse
	if err := json.Unmarshal(respBody, &healthResponse); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}

	return &healthResponse, nil
}

// do выполняет запрос и возвращает тело успешного ответа
func (c *DetectorAPIClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка отправки HTTP запроса: %v", ErrDetectorUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: статус %d, тело: %s", ErrDetectorUnavailable, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
