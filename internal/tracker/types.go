package tracker

import (
	"sort"
	"time"

	"swimmer-tracker-go/internal/geo"
	"swimmer-tracker-go/internal/water"
)

// Status положение пловца относительно воды
type Status string

const (
	StatusOutOfPool  Status = "OUT_OF_POOL"
	StatusAboveWater Status = "ABOVE_WATER"
	StatusSubmerged  Status = "SUBMERGED"
)

// Detection одна рамка от внешнего детектора, в координатах детектора
type Detection struct {
	Box   geo.BoundingBox
	Label string
	Score float64
}

// Frame входные данные одного кадра
type Frame struct {
	Index     int64
	Timestamp time.Time

	Detections   []Detection
	DetectorSize geo.Size
	OutputSize   geo.Size
	Orientation  int

	// Mask построена по кадру, уже повернутому в ориентацию вывода
	Mask *water.Mask
}

// Tracklet запись об одном пловце, живущая между кадрами
type Tracklet struct {
	ID string
	// Box рамка для оверлея, со сдвигом альбомного превью
	Box geo.BoundingBox
	// ScaledBox рамка в координатах вывода без сдвига; по ней сопоставление и маска
	ScaledBox geo.BoundingBox
	Status    Status
	Score     float64

	FirstSeenFrame int64
	LastSeenFrame  int64
	LastSeenAt     time.Time
	// MissedFrames вызовов Update подряд без совпадения
	MissedFrames int64

	// Начало текущего погружения; nil, пока пловец не под водой
	SubmergedSinceFrame *int64
	SubmergedSince      *time.Time

	// AlertFired сбрасывается вместе с SubmergedSince
	AlertFired bool
}

// SubmergedFor длительность текущего погружения на момент now
func (t Tracklet) SubmergedFor(now time.Time) time.Duration {
	if t.SubmergedSince == nil {
		return 0
	}
	if d := now.Sub(*t.SubmergedSince); d > 0 {
		return d
	}
	return 0
}

// AlertEvent сигнал о превышении порога погружения, один на эпизод
type AlertEvent struct {
	TrackletID string
	FrameIndex int64
	Timestamp  time.Time
	Elapsed    time.Duration
	Box        geo.BoundingBox
}

// Registry набор живых треков по идентификатору. Значение неизменяемо:
// Update возвращает новый реестр и не трогает предыдущий.
type Registry struct {
	tracklets map[string]Tracklet
}

// NewRegistry создает пустой реестр
func NewRegistry() Registry {
	return Registry{tracklets: make(map[string]Tracklet)}
}

// Len количество треков
func (r Registry) Len() int {
	return len(r.tracklets)
}

// Get возвращает трек по идентификатору
func (r Registry) Get(id string) (Tracklet, bool) {
	t, ok := r.tracklets[id]
	return t, ok
}

// Has проверяет наличие трека
func (r Registry) Has(id string) bool {
	_, ok := r.tracklets[id]
	return ok
}

// List возвращает треки в порядке появления
func (r Registry) List() []Tracklet {
	list := make([]Tracklet, 0, len(r.tracklets))
	for _, t := range r.tracklets {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].FirstSeenFrame != list[j].FirstSeenFrame {
			return list[i].FirstSeenFrame < list[j].FirstSeenFrame
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// IDs идентификаторы треков
func (r Registry) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(r.tracklets))
	for id := range r.tracklets {
		ids[id] = struct{}{}
	}
	return ids
}

// With возвращает копию реестра с добавленным или замененным треком
func (r Registry) With(t Tracklet) Registry {
	next := r.clone()
	next.tracklets[t.ID] = t
	return next
}

func (r Registry) clone() Registry {
	next := Registry{tracklets: make(map[string]Tracklet, len(r.tracklets))}
	for id, t := range r.tracklets {
		next.tracklets[id] = t
	}
	return next
}

// Stats сводка для оверлея
type Stats struct {
	PersonsDetected int `json:"persons_detected"`
	SwimmersInPool  int `json:"swimmers_in_pool"`
	Submerged       int `json:"submerged"`
	ActiveAlerts    int `json:"active_alerts"`
}

// Summarize считает сводку по реестру
func Summarize(r Registry) Stats {
	var s Stats
	for _, t := range r.tracklets {
		s.PersonsDetected++
		if t.Status != StatusOutOfPool {
			s.SwimmersInPool++
		}
		if t.Status == StatusSubmerged {
			s.Submerged++
		}
		if t.AlertFired {
			s.ActiveAlerts++
		}
	}
	return s
}
