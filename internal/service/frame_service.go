package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"swimmer-tracker-go/internal/alert"
	"swimmer-tracker-go/internal/client"
	"swimmer-tracker-go/internal/geo"
	"swimmer-tracker-go/internal/model"
	"swimmer-tracker-go/internal/repository"
	"swimmer-tracker-go/internal/tracker"
	"swimmer-tracker-go/internal/water"
	"swimmer-tracker-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrEmptyFrame в запросе нет изображения
var ErrEmptyFrame = errors.New("empty frame")

// Detector внешняя модель детекции объектов
type Detector interface {
	Detect(ctx context.Context, imageData []byte, filename string) (*client.DetectResult, error)
	CheckHealth(ctx context.Context) (*models.HealthResponse, error)
}

// FrameService сервис обработки кадров с камеры над бассейном
type FrameService struct {
	detector   Detector
	classifier *water.Classifier
	tracker    *tracker.Tracker
	alertRepo  repository.AlertRepository
	dispatcher alert.Dispatcher
	logger     *logrus.Logger
	now        func() time.Time

	// Реестр меняется только под mu, один кадр за раз
	mu            sync.Mutex
	registry      tracker.Registry
	lastFrame     int64
	lastTimestamp time.Time
}

// NewFrameService создает новый сервис обработки кадров
func NewFrameService(
	detector Detector,
	classifier *water.Classifier,
	trk *tracker.Tracker,
	alertRepo repository.AlertRepository,
	dispatcher alert.Dispatcher,
	logger *logrus.Logger,
) *FrameService {
	return &FrameService{
		detector:   detector,
		classifier: classifier,
		tracker:    trk,
		alertRepo:  alertRepo,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
		registry:   tracker.NewRegistry(),
	}
}

// ProcessFrame обрабатывает один кадр: маска воды, детекции, трекинг, тревоги.
// Ошибка возвращается только для пустого или нечитаемого изображения.
func (s *FrameService) ProcessFrame(ctx context.Context, request models.FrameRequest) (*models.FrameResponse, error) {
	if len(request.ImageData) == 0 {
		return nil, ErrEmptyFrame
	}

	img, err := decodeImage(request.ImageData)
	if err != nil {
		s.logger.Errorf("Ошибка декодирования кадра: %v", err)
		return nil, err
	}

	// 1. Маска воды строится по вертикальному кадру
	upright := rotateUpright(img, request.Orientation)
	mask := s.classifier.Classify(upright)

	outputSize := geo.Size{Width: request.OutputSize.Width, Height: request.OutputSize.Height}
	if outputSize.Empty() {
		outputSize = sizeOf(upright)
	}

	// 2. Детекции: от клиента или от внешней модели
	response := &models.FrameResponse{WaterCoverage: mask.Coverage()}
	detections, detectorSize := s.collectDetections(ctx, request, sizeOf(img), response)

	// 3. Трекинг
	s.mu.Lock()
	frameIndex := s.lastFrame + 1
	if request.FrameIndex != nil {
		frameIndex = *request.FrameIndex
	}
	timestamp := s.now()
	if request.Timestamp != nil {
		timestamp = *request.Timestamp
	}

	prev := s.registry
	next, alerts := s.tracker.Update(tracker.Frame{
		Index:        frameIndex,
		Timestamp:    timestamp,
		Detections:   detections,
		DetectorSize: detectorSize,
		OutputSize:   outputSize,
		Orientation:  request.Orientation,
		Mask:         mask,
	}, prev)
	s.registry = next
	s.lastFrame = frameIndex
	s.lastTimestamp = timestamp
	s.mu.Unlock()

	s.logLifecycle(frameIndex, prev, next)

	// 4. Тревоги: сохраняем и отдаем исполнителям
	response.Alerts = s.handleAlerts(alerts)

	response.FrameIndex = frameIndex
	response.Swimmers = swimmersToInfo(next, timestamp)
	response.Stats = statsToModel(tracker.Summarize(next))

	s.logger.Debugf("Кадр %d обработан: %d пловцов, %d тревог, вода %.1f%%",
		frameIndex, next.Len(), len(alerts), response.WaterCoverage*100)
	return response, nil
}

// collectDetections берет детекции из запроса или запрашивает модель.
// Недоступный детектор равносилен кадру без детекций.
func (s *FrameService) collectDetections(ctx context.Context, request models.FrameRequest, rawSize geo.Size, response *models.FrameResponse) ([]tracker.Detection, geo.Size) {
	if request.Detections != nil {
		detectorSize := geo.Size{Width: request.DetectorSize.Width, Height: request.DetectorSize.Height}
		if detectorSize.Empty() {
			detectorSize = rawSize
		}
		detections := make([]tracker.Detection, 0, len(request.Detections))
		for _, d := range request.Detections {
			detections = append(detections, tracker.Detection{
				Box:   geo.BoundingBox{Left: d.Left, Top: d.Top, Right: d.Right, Bottom: d.Bottom},
				Label: d.Label,
				Score: d.Score,
			})
		}
		return detections, detectorSize
	}

	if s.detector == nil {
		return nil, rawSize
	}

	result, err := s.detector.Detect(ctx, request.ImageData, request.ImageName)
	if err != nil {
		s.logger.Errorf("Детектор недоступен, кадр обрабатывается без детекций: %v", err)
		response.DetectorError = err.Error()
		return nil, rawSize
	}

	detectorSize := result.ImageSize
	if detectorSize.Empty() {
		detectorSize = rawSize
	}
	return result.Detections, detectorSize
}

// handleAlerts сохраняет тревоги и передает их диспетчеру
func (s *FrameService) handleAlerts(events []tracker.AlertEvent) []models.AlertInfo {
	infos := make([]models.AlertInfo, 0, len(events))
	if len(events) == 0 {
		return infos
	}

	for _, ev := range events {
		info := alert.Info(ev)
		record := &model.AlertRecord{
			ID:               uuid.New().String(),
			TrackletID:       ev.TrackletID,
			FrameIndex:       ev.FrameIndex,
			SubmergedSeconds: ev.Elapsed.Seconds(),
			BoxLeft:          ev.Box.Left,
			BoxTop:           ev.Box.Top,
			BoxRight:         ev.Box.Right,
			BoxBottom:        ev.Box.Bottom,
			FiredAt:          ev.Timestamp,
		}
		if s.alertRepo != nil {
			if err := s.alertRepo.Create(record); err != nil {
				s.logger.Errorf("Ошибка сохранения тревоги для пловца %s: %v", ev.TrackletID, err)
			} else {
				info.ID = record.ID
			}
		}
		s.logger.Warnf("Пловец %s под водой %.0f с, тревога", ev.TrackletID, ev.Elapsed.Seconds())
		infos = append(infos, info)
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(events)
	}
	return infos
}

// logLifecycle пишет в лог появление и удаление треков
func (s *FrameService) logLifecycle(frameIndex int64, prev, next tracker.Registry) {
	for id := range next.IDs() {
		if !prev.Has(id) {
			s.logger.Infof("Кадр %d: новый пловец %s", frameIndex, id)
		}
	}
	for id := range prev.IDs() {
		if !next.Has(id) {
			s.logger.Infof("Кадр %d: пловец %s потерян", frameIndex, id)
		}
	}
}

// Snapshot возвращает текущее состояние реестра
func (s *FrameService) Snapshot() *models.SnapshotResponse {
	s.mu.Lock()
	reg, frameIndex, at := s.registry, s.lastFrame, s.lastTimestamp
	s.mu.Unlock()

	return &models.SnapshotResponse{
		FrameIndex: frameIndex,
		Swimmers:   swimmersToInfo(reg, at),
		Stats:      statsToModel(tracker.Summarize(reg)),
	}
}

// Reset очищает реестр пловцов
func (s *FrameService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Сброс реестра: удалено %d пловцов", s.registry.Len())
	s.registry = tracker.NewRegistry()
}

// ListAlerts получает историю тревог с пагинацией
func (s *FrameService) ListAlerts(page, pageSize int) ([]models.AlertInfo, int64, error) {
	records, total, err := s.alertRepo.List(page, pageSize)
	if err != nil {
		s.logger.Errorf("Ошибка получения списка тревог: %v", err)
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}

	alerts := make([]models.AlertInfo, len(records))
	for i, r := range records {
		alerts[i] = recordToInfo(r)
	}
	return alerts, total, nil
}

// GetAlert получает тревогу по ID
func (s *FrameService) GetAlert(id string) (*models.AlertInfo, error) {
	record, err := s.alertRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	info := recordToInfo(record)
	return &info, nil
}

// AlertsSince количество тревог начиная с момента since
func (s *FrameService) AlertsSince(since time.Time) (int64, error) {
	count, err := s.alertRepo.CountSince(since)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

// CheckHealth проверяет состояние детектора
func (s *FrameService) CheckHealth(ctx context.Context) error {
	if s.detector == nil {
		return nil
	}

	health, err := s.detector.CheckHealth(ctx)
	if err != nil {
		s.logger.Errorf("Детектор недоступен: %v", err)
		return err
	}
	if health.Status != "healthy" || !health.ModelLoaded {
		return fmt.Errorf("%w: status %q, model loaded %t", client.ErrDetectorUnavailable, health.Status, health.ModelLoaded)
	}
	return nil
}

// swimmersToInfo преобразует реестр в ответ API
func swimmersToInfo(reg tracker.Registry, at time.Time) []models.SwimmerInfo {
	list := reg.List()
	swimmers := make([]models.SwimmerInfo, len(list))
	for i, t := range list {
		swimmers[i] = models.SwimmerInfo{
			ID:               t.ID,
			Box:              models.Box{Left: t.Box.Left, Top: t.Box.Top, Right: t.Box.Right, Bottom: t.Box.Bottom},
			Status:           string(t.Status),
			AlertFired:       t.AlertFired,
			SubmergedSeconds: t.SubmergedFor(at).Seconds(),
			LastSeenFrame:    t.LastSeenFrame,
			Score:            t.Score,
		}
	}
	return swimmers
}

func statsToModel(s tracker.Stats) models.Stats {
	return models.Stats{
		PersonsDetected: s.PersonsDetected,
		SwimmersInPool:  s.SwimmersInPool,
		Submerged:       s.Submerged,
		ActiveAlerts:    s.ActiveAlerts,
	}
}

// recordToInfo преобразует модель базы данных в ответ API
func recordToInfo(r *model.AlertRecord) models.AlertInfo {
	return models.AlertInfo{
		ID:               r.ID,
		TrackletID:       r.TrackletID,
		FrameIndex:       r.FrameIndex,
		SubmergedSeconds: r.SubmergedSeconds,
		Box:              models.Box{Left: r.BoxLeft, Top: r.BoxTop, Right: r.BoxRight, Bottom: r.BoxBottom},
		FiredAt:          r.FiredAt,
	}
}
