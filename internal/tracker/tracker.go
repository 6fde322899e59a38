// Package tracker сопоставляет детекции пловцов между кадрами и ведет
// конечный автомат погружения с однократной тревогой на эпизод.
//
// Update синхронный и не делает ввода-вывода. Вызывающий код обязан
// сериализовать вызовы для одного реестра.
package tracker

import (
	"math"
	"sort"
	"strings"
	"time"

	"swimmer-tracker-go/internal/geo"
	"swimmer-tracker-go/internal/water"

	"github.com/google/uuid"
)

// Config параметры трекера
type Config struct {
	PersonLabel     string        // Метка класса, которую считаем человеком
	MinConfidence   float64       // Минимальная уверенность детекции
	MinIoU          float64       // Порог IoU для сопоставления
	MaxMissedFrames int64         // Сколько кадров подряд трек может не находиться
	EvictAfter      time.Duration // Окно по времени без совпадений, 0 - выключено
	AlertThreshold  time.Duration // Длительность погружения до тревоги
}

// DefaultConfig возвращает параметры трекера по умолчанию
func DefaultConfig() Config {
	return Config{
		PersonLabel:     "person",
		MinConfidence:   0.5,
		MinIoU:          0.3,
		MaxMissedFrames: 5,
		EvictAfter:      2 * time.Second,
		AlertThreshold:  30 * time.Second,
	}
}

// Tracker ведет реестр пловцов
type Tracker struct {
	cfg       Config
	projector *geo.Projector
	newID     func() string
}

// New создает трекер
func New(cfg Config, projector *geo.Projector) *Tracker {
	if projector == nil {
		projector = geo.NewProjector(geo.DefaultLandscapeTopOffset)
	}
	return &Tracker{
		cfg:       cfg,
		projector: projector,
		newID:     uuid.NewString,
	}
}

// Config возвращает текущие параметры
func (t *Tracker) Config() Config {
	return t.cfg
}

// candidate пара детекция-трек для жадного сопоставления
type candidate struct {
	det     int
	trackID string
	iou     float64
}

// Update обрабатывает один кадр и возвращает новый реестр и тревоги этого кадра.
// Предыдущий реестр не изменяется.
func (t *Tracker) Update(frame Frame, prev Registry) (Registry, []AlertEvent) {
	next := prev.clone()
	var alerts []AlertEvent

	// Шаг 1: фильтрация и проекция
	dets := t.accept(frame)

	// Шаг 2: жадное сопоставление по убыванию IoU
	matches := t.associate(dets, next)

	matchedTracks := make(map[string]bool, len(matches))
	matchedDets := make(map[int]bool, len(matches))
	for det, id := range matches {
		matchedTracks[id] = true
		matchedDets[det] = true

		tr := next.tracklets[id]
		tr.Box = dets[det].overlay
		tr.ScaledBox = dets[det].scaled
		tr.Score = dets[det].score
		tr.LastSeenFrame = frame.Index
		tr.LastSeenAt = frame.Timestamp
		tr.MissedFrames = 0
		if ev, ok := t.advance(&tr, t.classify(tr.ScaledBox, frame), frame); ok {
			alerts = append(alerts, ev)
		}
		next.tracklets[id] = tr
	}

	// Шаг 3: новые треки для несопоставленных детекций
	created := make(map[string]bool)
	for det := range dets {
		if matchedDets[det] {
			continue
		}
		tr := Tracklet{
			ID:             t.newID(),
			Box:            dets[det].overlay,
			ScaledBox:      dets[det].scaled,
			Status:         StatusOutOfPool,
			Score:          dets[det].score,
			FirstSeenFrame: frame.Index,
			LastSeenFrame:  frame.Index,
			LastSeenAt:     frame.Timestamp,
		}
		if ev, ok := t.advance(&tr, t.classify(tr.ScaledBox, frame), frame); ok {
			alerts = append(alerts, ev)
		}
		next.tracklets[tr.ID] = tr
		created[tr.ID] = true
	}

	// Шаг 4: несопоставленные треки стареют и удаляются после льготного периода.
	// Счет идет по вызовам Update, а не по разнице номеров кадров.
	for id, tr := range next.tracklets {
		if matchedTracks[id] || created[id] {
			continue
		}
		tr.MissedFrames++
		if t.expired(tr, frame) {
			delete(next.tracklets, id)
			continue
		}
		// Пропавший под водой пловец продолжает отсчет
		if ev, ok := t.checkAlert(&tr, frame); ok {
			alerts = append(alerts, ev)
		}
		next.tracklets[id] = tr
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].TrackletID < alerts[j].TrackletID
	})
	return next, alerts
}

// projected детекция, принятая в обработку
type projected struct {
	scaled  geo.BoundingBox
	overlay geo.BoundingBox
	score   float64
}

// accept отбирает людей с достаточной уверенностью и переводит рамки в координаты вывода
func (t *Tracker) accept(frame Frame) []projected {
	dets := make([]projected, 0, len(frame.Detections))

	for _, d := range frame.Detections {
		if !strings.EqualFold(strings.TrimSpace(d.Label), t.cfg.PersonLabel) {
			continue
		}
		if math.IsNaN(d.Score) || d.Score < t.cfg.MinConfidence {
			continue
		}
		if !d.Box.Valid() {
			continue
		}
		scaled := t.projector.Scale(d.Box, frame.DetectorSize, frame.OutputSize, frame.Orientation)
		overlay := t.projector.Overlay(scaled, frame.OutputSize)
		if !scaled.Valid() || !overlay.Valid() {
			continue
		}
		dets = append(dets, projected{scaled: scaled, overlay: overlay, score: d.Score})
	}

	return dets
}

// associate возвращает соответствие индекс детекции -> идентификатор трека
func (t *Tracker) associate(dets []projected, reg Registry) map[int]string {
	var candidates []candidate
	for det, d := range dets {
		for id, tr := range reg.tracklets {
			iou := geo.IoU(d.scaled, tr.ScaledBox)
			if iou > 0 && iou >= t.cfg.MinIoU {
				candidates = append(candidates, candidate{det: det, trackID: id, iou: iou})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.iou != b.iou {
			return a.iou > b.iou
		}
		if a.det != b.det {
			return a.det < b.det
		}
		return a.trackID < b.trackID
	})

	matches := make(map[int]string)
	usedTracks := make(map[string]bool)
	for _, c := range candidates {
		if _, ok := matches[c.det]; ok || usedTracks[c.trackID] {
			continue
		}
		matches[c.det] = c.trackID
		usedTracks[c.trackID] = true
	}
	return matches
}

// classify определяет статус по центру рамки и середине верхней грани
func (t *Tracker) classify(box geo.BoundingBox, frame Frame) Status {
	inWater := sample(frame.Mask, box.Center(), frame.OutputSize)
	if !inWater {
		return StatusOutOfPool
	}
	if sample(frame.Mask, box.TopMid(), frame.OutputSize) {
		return StatusSubmerged
	}
	return StatusAboveWater
}

// sample читает маску в точке из пространства вывода
func sample(mask *water.Mask, p geo.Point, output geo.Size) bool {
	if mask == nil {
		return false
	}
	x, y := p.X, p.Y
	if !output.Empty() && mask.Width() > 0 && mask.Height() > 0 {
		x = x * float64(mask.Width()) / output.Width
		y = y * float64(mask.Height()) / output.Height
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	return mask.At(int(math.Floor(x)), int(math.Floor(y)))
}

// advance применяет новый статус и ведет таймер погружения
func (t *Tracker) advance(tr *Tracklet, status Status, frame Frame) (AlertEvent, bool) {
	tr.Status = status

	if status != StatusSubmerged {
		tr.SubmergedSince = nil
		tr.SubmergedSinceFrame = nil
		tr.AlertFired = false
		return AlertEvent{}, false
	}

	if tr.SubmergedSince == nil {
		since := frame.Timestamp
		sinceFrame := frame.Index
		tr.SubmergedSince = &since
		tr.SubmergedSinceFrame = &sinceFrame
		return AlertEvent{}, false
	}

	return t.checkAlert(tr, frame)
}

// checkAlert поднимает тревогу один раз за эпизод погружения
func (t *Tracker) checkAlert(tr *Tracklet, frame Frame) (AlertEvent, bool) {
	if tr.Status != StatusSubmerged || tr.SubmergedSince == nil || tr.AlertFired {
		return AlertEvent{}, false
	}

	elapsed := frame.Timestamp.Sub(*tr.SubmergedSince)
	if elapsed < t.cfg.AlertThreshold {
		return AlertEvent{}, false
	}

	tr.AlertFired = true
	return AlertEvent{
		TrackletID: tr.ID,
		FrameIndex: frame.Index,
		Timestamp:  frame.Timestamp,
		Elapsed:    elapsed,
		Box:        tr.Box,
	}, true
}

// expired проверяет льготный период по числу пропусков и по времени.
// Пропущенные выше по потоку кадры пропуском не считаются.
func (t *Tracker) expired(tr Tracklet, frame Frame) bool {
	maxMissed := t.cfg.MaxMissedFrames
	if maxMissed < 0 {
		maxMissed = 0
	}
	if tr.MissedFrames > maxMissed {
		return true
	}
	if t.cfg.EvictAfter > 0 && frame.Timestamp.Sub(tr.LastSeenAt) > t.cfg.EvictAfter {
		return true
	}
	return false
}
