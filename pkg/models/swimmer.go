package models

import "time"

// Box рамка в координатах вывода
type Box struct {
	Left   float64 `json:"left"`   // Левая граница
	Top    float64 `json:"top"`    // Верхняя граница
	Right  float64 `json:"right"`  // Правая граница
	Bottom float64 `json:"bottom"` // Нижняя граница
}

// Detection представляет одну детекцию модели
type Detection struct {
	Left   float64 `json:"left"` // Координаты в пространстве детектора
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Label  string  `json:"label"` // Класс объекта
	Score  float64 `json:"score"` // Уверенность модели
}

// Size размеры кадра
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FrameRequest представляет кадр, пришедший на обработку
type FrameRequest struct {
	ImageData    []byte      `json:"-"`                     // Данные изображения (не сериализуем в JSON)
	ImageName    string      `json:"image_name"`            // Имя файла изображения
	Orientation  int         `json:"orientation"`           // Поворот по часовой стрелке до вертикального кадра
	OutputSize   Size        `json:"output_size"`           // Размер области вывода (превью)
	DetectorSize Size        `json:"detector_size"`         // Размер кадра детектора, если детекции переданы клиентом
	Detections   []Detection `json:"detections,omitempty"`  // Детекции, уже посчитанные на клиенте
	FrameIndex   *int64      `json:"frame_index,omitempty"` // Номер кадра у клиента
	Timestamp    *time.Time  `json:"timestamp,omitempty"`   // Время захвата кадра
}

// SwimmerInfo состояние одного пловца для оверлея
type SwimmerInfo struct {
	ID               string  `json:"id"`                // Идентификатор трека
	Box              Box     `json:"box"`               // Последняя рамка
	Status           string  `json:"status"`            // OUT_OF_POOL / ABOVE_WATER / SUBMERGED
	AlertFired       bool    `json:"alert_fired"`       // Тревога в текущем эпизоде
	SubmergedSeconds float64 `json:"submerged_seconds"` // Длительность текущего погружения
	LastSeenFrame    int64   `json:"last_seen_frame"`   // Последний кадр с совпадением
	Score            float64 `json:"score"`             // Уверенность последней детекции
}

// Stats сводка для панели статистики
type Stats struct {
	PersonsDetected int `json:"persons_detected"` // Людей в кадре
	SwimmersInPool  int `json:"swimmers_in_pool"` // Пловцов в бассейне
	Submerged       int `json:"submerged"`        // Под водой
	ActiveAlerts    int `json:"active_alerts"`    // Возможное утопление
}

// AlertInfo событие тревоги
type AlertInfo struct {
	ID               string    `json:"id,omitempty"`      // Идентификатор записи
	TrackletID       string    `json:"tracklet_id"`       // Идентификатор пловца
	FrameIndex       int64     `json:"frame_index"`       // Кадр, на котором сработала тревога
	SubmergedSeconds float64   `json:"submerged_seconds"` // Сколько пловец был под водой
	Box              Box       `json:"box"`               // Рамка на момент тревоги
	FiredAt          time.Time `json:"fired_at"`          // Время срабатывания
}

// FrameResponse представляет результат обработки кадра
type FrameResponse struct {
	FrameIndex    int64         `json:"frame_index"`    // Номер кадра
	Swimmers      []SwimmerInfo `json:"swimmers"`       // Реестр пловцов
	Stats         Stats         `json:"stats"`          // Сводка
	Alerts        []AlertInfo   `json:"alerts"`         // Тревоги этого кадра
	WaterCoverage float64       `json:"water_coverage"` // Доля кадра, похожая на воду
	DetectorError string        `json:"detector_error,omitempty"`
}

// SnapshotResponse текущее состояние реестра
type SnapshotResponse struct {
	FrameIndex int64         `json:"frame_index"`
	Swimmers   []SwimmerInfo `json:"swimmers"`
	Stats      Stats         `json:"stats"`
}

// ListAlertsResponse ответ со списком тревог
type ListAlertsResponse struct {
	Alerts []AlertInfo `json:"alerts"`
	Total  int64       `json:"total"`
	Page   int         `json:"page"`
	Size   int         `json:"size"`
}

// DetectorAPIResponse определяет структуру ответа от сервиса детектора
type DetectorAPIResponse struct {
	Status      string              `json:"status"`       // Статус выполнения
	Message     string              `json:"message"`      // Сообщение
	ImageWidth  float64             `json:"image_width"` // Размер кадра, на котором работала модель
	ImageHeight float64             `json:"image_height"`
	Detections  []DetectorDetection `json:"detections"`   // Найденные объекты
}

// DetectorDetection одна детекция в ответе детектора, категории по убыванию уверенности
type DetectorDetection struct {
	Left       float64    `json:"left"`
	Top        float64    `json:"top"`
	Right      float64    `json:"right"`
	Bottom     float64    `json:"bottom"`
	Categories []Category `json:"categories"`
}

// Category класс объекта с уверенностью
type Category struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// HealthResponse представляет ответ проверки здоровья сервиса
type HealthResponse struct {
	Status      string `json:"status"`       // Статус сервиса (healthy/unhealthy)
	ModelLoaded bool   `json:"model_loaded"` // Загружена ли модель нейронной сети
	Version     string `json:"version"`      // Версия сервиса
}
