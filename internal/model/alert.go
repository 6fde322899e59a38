package model

import (
	"time"

	"gorm.io/gorm"
)

// AlertRecord представляет сработавшую тревогу в базе данных
type AlertRecord struct {
	ID               string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TrackletID       string  `gorm:"type:varchar(36);not null;index" json:"tracklet_id"`
	FrameIndex       int64   `gorm:"not null" json:"frame_index"`
	SubmergedSeconds float64 `gorm:"not null" json:"submerged_seconds"`

	// Рамка пловца на момент тревоги
	BoxLeft   float64 `gorm:"not null" json:"box_left"`
	BoxTop    float64 `gorm:"not null" json:"box_top"`
	BoxRight  float64 `gorm:"not null" json:"box_right"`
	BoxBottom float64 `gorm:"not null" json:"box_bottom"`

	FiredAt   time.Time      `gorm:"not null;index" json:"fired_at"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName указывает имя таблицы для AlertRecord
func (AlertRecord) TableName() string {
	return "alerts"
}
