package repository

import (
	"errors"
	"fmt"
	"time"

	"swimmer-tracker-go/internal/model"

	"gorm.io/gorm"
)

// ErrAlertNotFound тревога с таким ID не найдена
var ErrAlertNotFound = errors.New("alert not found")

// AlertRepository интерфейс для работы с историей тревог
type AlertRepository interface {
	Create(alert *model.AlertRecord) error
	GetByID(id string) (*model.AlertRecord, error)
	List(page, pageSize int) ([]*model.AlertRecord, int64, error)
	CountSince(since time.Time) (int64, error)
}

// alertRepository реализация AlertRepository на GORM
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository создает новый instance AlertRepository
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{
		db: db,
	}
}

// Create сохраняет тревогу в базе данных
func (r *alertRepository) Create(alert *model.AlertRecord) error {
	if err := r.db.Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// GetByID получает тревогу по ID
func (r *alertRepository) GetByID(id string) (*model.AlertRecord, error) {
	var alert model.AlertRecord
	err := r.db.Where("id = ?", id).First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return &alert, nil
}

// List получает список тревог с пагинацией, новые первыми
func (r *alertRepository) List(page, pageSize int) ([]*model.AlertRecord, int64, error) {
	var alerts []*model.AlertRecord
	var total int64

	// Подсчитываем общее количество
	if err := r.db.Model(&model.AlertRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	offset := (page - 1) * pageSize
	err := r.db.
		Offset(offset).
		Limit(pageSize).
		Order("fired_at DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}

	return alerts, total, nil
}

// CountSince считает тревоги начиная с момента since
func (r *alertRepository) CountSince(since time.Time) (int64, error) {
	var total int64
	if err := r.db.Model(&model.AlertRecord{}).Where("fired_at >= ?", since).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return total, nil
}
