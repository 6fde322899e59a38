package repository

import (
	"fmt"
	"testing"
	"time"

	"swimmer-tracker-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAlertRepository(t *testing.T) {
	repo := NewMemoryAlertRepository()
	base := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(&model.AlertRecord{
			ID:         fmt.Sprintf("alert-%d", i),
			TrackletID: "swimmer-1",
			FrameIndex: int64(i),
			FiredAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	t.Run("duplicate id", func(t *testing.T) {
		err := repo.Create(&model.AlertRecord{ID: "alert-0"})
		assert.Error(t, err)
	})

	t.Run("get by id", func(t *testing.T) {
		alert, err := repo.GetByID("alert-3")
		require.NoError(t, err)
		assert.Equal(t, int64(3), alert.FrameIndex)
		assert.False(t, alert.CreatedAt.IsZero())

		_, err = repo.GetByID("missing")
		assert.ErrorIs(t, err, ErrAlertNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		alerts, total, err := repo.List(1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, alerts, 2)
		assert.Equal(t, "alert-4", alerts[0].ID)
		assert.Equal(t, "alert-3", alerts[1].ID)

		alerts, _, err = repo.List(3, 2)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, "alert-0", alerts[0].ID)

		alerts, _, err = repo.List(4, 2)
		require.NoError(t, err)
		assert.Empty(t, alerts)
	})

	t.Run("count since", func(t *testing.T) {
		n, err := repo.CountSince(base.Add(2 * time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}
