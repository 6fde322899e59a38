package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"swimmer-tracker-go/internal/model"
)

// memoryAlertRepository хранит тревоги в памяти, когда база данных отключена
type memoryAlertRepository struct {
	mu     sync.RWMutex
	alerts map[string]model.AlertRecord
}

// NewMemoryAlertRepository создает репозиторий тревог в памяти
func NewMemoryAlertRepository() AlertRepository {
	return &memoryAlertRepository{
		alerts: make(map[string]model.AlertRecord),
	}
}

func (r *memoryAlertRepository) Create(alert *model.AlertRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.alerts[alert.ID]; exists {
		return fmt.Errorf("failed to create alert: duplicate id %s", alert.ID)
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	r.alerts[alert.ID] = *alert
	return nil
}

func (r *memoryAlertRepository) GetByID(id string) (*model.AlertRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, ok := r.alerts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	return &alert, nil
}

func (r *memoryAlertRepository) List(page, pageSize int) ([]*model.AlertRecord, int64, error) {
	r.mu.RLock()
	all := make([]*model.AlertRecord, 0, len(r.alerts))
	for _, a := range r.alerts {
		alert := a
		all = append(all, &alert)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].FiredAt.Equal(all[j].FiredAt) {
			return all[i].FiredAt.After(all[j].FiredAt)
		}
		return all[i].ID < all[j].ID
	})

	total := int64(len(all))
	offset := (page - 1) * pageSize
	if offset < 0 || offset >= len(all) {
		return []*model.AlertRecord{}, total, nil
	}
	end := min(offset+pageSize, len(all))
	return all[offset:end], total, nil
}

func (r *memoryAlertRepository) CountSince(since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, a := range r.alerts {
		if !a.FiredAt.Before(since) {
			total++
		}
	}
	return total, nil
}
