// Package alert доставляет события тревоги внешним исполнителям.
// Доставка асинхронная и не блокирует обработку кадров.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"swimmer-tracker-go/internal/tracker"
	"swimmer-tracker-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// Dispatcher получает тревоги кадра. Dispatch не должен блокироваться.
type Dispatcher interface {
	Dispatch(events []tracker.AlertEvent)
}

// Info переводит событие трекера в DTO
func Info(ev tracker.AlertEvent) models.AlertInfo {
	return models.AlertInfo{
		TrackletID:       ev.TrackletID,
		FrameIndex:       ev.FrameIndex,
		SubmergedSeconds: ev.Elapsed.Seconds(),
		Box: models.Box{
			Left:   ev.Box.Left,
			Top:    ev.Box.Top,
			Right:  ev.Box.Right,
			Bottom: ev.Box.Bottom,
		},
		FiredAt: ev.Timestamp,
	}
}

// LogDispatcher пишет тревоги в лог
type LogDispatcher struct {
	logger *logrus.Logger
}

// NewLogDispatcher создает диспетчер, пишущий в лог
func NewLogDispatcher(logger *logrus.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch пишет по записи на событие
func (d *LogDispatcher) Dispatch(events []tracker.AlertEvent) {
	for _, ev := range events {
		d.logger.WithFields(logrus.Fields{
			"tracklet_id": ev.TrackletID,
			"frame":       ev.FrameIndex,
			"submerged_s": ev.Elapsed.Seconds(),
		}).Warn("ТРЕВОГА: возможное утопление")
	}
}

// WebhookDispatcher отправляет каждую тревогу POST запросом с JSON
type WebhookDispatcher struct {
	url        string
	httpClient *http.Client
	logger     *logrus.Logger
	wg         sync.WaitGroup
}

// NewWebhookDispatcher создает диспетчер для webhook
func NewWebhookDispatcher(url string, timeout time.Duration, logger *logrus.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Dispatch отправляет события в фоне, без повторов
func (d *WebhookDispatcher) Dispatch(events []tracker.AlertEvent) {
	for _, ev := range events {
		info := Info(ev)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.send(context.Background(), info); err != nil {
				d.logger.Errorf("Ошибка отправки тревоги %s на webhook: %v", info.TrackletID, err)
			}
		}()
	}
}

// Wait ждет завершения отправок, запущенных до вызова
func (d *WebhookDispatcher) Wait() {
	d.wg.Wait()
}

func (d *WebhookDispatcher) send(ctx context.Context, info models.AlertInfo) error {
	body, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Multi рассылает события нескольким диспетчерам
type Multi []Dispatcher

// Dispatch передает события каждому диспетчеру
func (m Multi) Dispatch(events []tracker.AlertEvent) {
	if len(events) == 0 {
		return
	}
	for _, d := range m {
		d.Dispatch(events)
	}
}
