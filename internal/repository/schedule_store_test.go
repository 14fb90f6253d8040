package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func sampleSchedule(teacherID int64, day models.DayOfWeek, start string) models.Schedule {
	st := models.MustClockTime(start)
	return models.Schedule{ClassID: 1, TeacherID: teacherID, DayOfWeek: day, StartTime: st, EndTime: st + 60}
}

func TestScheduleStoreCreateAssignsMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	store := NewScheduleStore()

	first, err := store.Create(ctx, sampleSchedule(1, models.Monday, "08:00"))
	require.NoError(t, err)
	second, err := store.Create(ctx, sampleSchedule(1, models.Monday, "09:00"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	ok, err := store.Delete(ctx, second)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.Clear(ctx)
	require.NoError(t, err)
	third, err := store.Create(ctx, sampleSchedule(1, models.Monday, "10:00"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), third)
}

func TestScheduleStoreReplaceMissingIsSilent(t *testing.T) {
	ctx := context.Background()
	store := NewScheduleStore()
	id, _ := store.Create(ctx, sampleSchedule(1, models.Monday, "08:00"))

	ok, err := store.Replace(ctx, 99, sampleSchedule(2, models.Friday, "12:00"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Replace(ctx, id, sampleSchedule(2, models.Friday, "12:00"))
	require.NoError(t, err)
	assert.True(t, ok)

	record, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, models.Friday, record.DayOfWeek)
	assert.Equal(t, int64(2), record.TeacherID)
}

func TestScheduleStoreFindMissing(t *testing.T) {
	store := NewScheduleStore()
	_, err := store.FindByID(context.Background(), 7)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestScheduleStoreListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewScheduleStore()
	_, _ = store.Create(ctx, sampleSchedule(1, models.Monday, "08:00"))

	list, err := store.List(ctx)
	require.NoError(t, err)
	list[0].TeacherID = 42

	again, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again[0].TeacherID)
}

func TestScheduleStorePreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewScheduleStore()
	for _, start := range []string{"10:00", "08:00", "09:00"} {
		_, err := store.Create(ctx, sampleSchedule(1, models.Tuesday, start))
		require.NoError(t, err)
	}
	_, _ = store.Delete(ctx, 2)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "10:00", list[0].StartTime.String())
	assert.Equal(t, "09:00", list[1].StartTime.String())
}

func TestScheduleStoreTxIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewScheduleStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithTx(ctx, func(tx *ScheduleTx) error {
				for _, existing := range tx.List() {
					if existing.TeacherID == 1 {
						return nil
					}
				}
				tx.Create(sampleSchedule(1, models.Monday, "08:00"))
				return nil
			})
		}()
	}
	wg.Wait()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestScheduleStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewScheduleStore()
	_, err := store.Create(ctx, sampleSchedule(1, models.Monday, "08:00"))
	assert.ErrorIs(t, err, context.Canceled)
}
