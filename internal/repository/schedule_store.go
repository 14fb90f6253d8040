package repository

import (
	"context"
	"database/sql"
	"sync"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ScheduleStore is the authoritative in-memory collection of schedule records.
// It never checks for teacher overlaps; callers check inside WithTx before writing.
type ScheduleStore struct {
	mu     sync.RWMutex
	items  []models.Schedule
	nextID int64
}

// NewScheduleStore constructs an empty store.
func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{nextID: 1}
}

// ScheduleTx exposes store mutations while the write lock is held.
// It must not be used after the WithTx callback returns.
type ScheduleTx struct {
	store *ScheduleStore
}

// WithTx runs fn with exclusive access to the store. Reads and writes made
// through tx form one atomic step.
func (s *ScheduleStore) WithTx(ctx context.Context, fn func(tx *ScheduleTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&ScheduleTx{store: s})
}

// List returns a copy of all records in insertion order.
func (s *ScheduleStore) List(ctx context.Context) ([]models.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(), nil
}

// Count returns the number of stored records.
func (s *ScheduleStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

// FindByID returns a copy of the record or sql.ErrNoRows.
func (s *ScheduleStore) FindByID(ctx context.Context, id int64) (*models.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, sql.ErrNoRows
	}
	record := s.items[idx]
	return &record, nil
}

// Create appends a record in its own transaction and returns the new id.
func (s *ScheduleStore) Create(ctx context.Context, record models.Schedule) (int64, error) {
	var id int64
	err := s.WithTx(ctx, func(tx *ScheduleTx) error {
		id = tx.Create(record)
		return nil
	})
	return id, err
}

// Replace updates a record in its own transaction. A missing id is a silent miss.
func (s *ScheduleStore) Replace(ctx context.Context, id int64, record models.Schedule) (bool, error) {
	var ok bool
	err := s.WithTx(ctx, func(tx *ScheduleTx) error {
		ok = tx.Replace(id, record)
		return nil
	})
	return ok, err
}

// Delete removes a record in its own transaction.
func (s *ScheduleStore) Delete(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := s.WithTx(ctx, func(tx *ScheduleTx) error {
		ok = tx.Delete(id)
		return nil
	})
	return ok, err
}

// Clear removes every record in its own transaction. Ids are not reused afterwards.
func (s *ScheduleStore) Clear(ctx context.Context) (int, error) {
	var removed int
	err := s.WithTx(ctx, func(tx *ScheduleTx) error {
		removed = tx.Clear()
		return nil
	})
	return removed, err
}

func (s *ScheduleStore) snapshot() []models.Schedule {
	out := make([]models.Schedule, len(s.items))
	copy(out, s.items)
	return out
}

func (s *ScheduleStore) indexOf(id int64) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// List returns a copy of all records in insertion order.
func (tx *ScheduleTx) List() []models.Schedule {
	return tx.store.snapshot()
}

// Find returns the record with id.
func (tx *ScheduleTx) Find(id int64) (models.Schedule, bool) {
	idx := tx.store.indexOf(id)
	if idx < 0 {
		return models.Schedule{}, false
	}
	return tx.store.items[idx], true
}

// Create assigns the next id to record and appends it.
func (tx *ScheduleTx) Create(record models.Schedule) int64 {
	record.ID = tx.store.nextID
	tx.store.nextID++
	tx.store.items = append(tx.store.items, record)
	return record.ID
}

// Replace overwrites the fields of an existing record, keeping its id and position.
func (tx *ScheduleTx) Replace(id int64, record models.Schedule) bool {
	idx := tx.store.indexOf(id)
	if idx < 0 {
		return false
	}
	record.ID = id
	tx.store.items[idx] = record
	return true
}

// Delete removes the record with id.
func (tx *ScheduleTx) Delete(id int64) bool {
	idx := tx.store.indexOf(id)
	if idx < 0 {
		return false
	}
	tx.store.items = append(tx.store.items[:idx], tx.store.items[idx+1:]...)
	return true
}

// Clear removes all records and reports how many were dropped.
func (tx *ScheduleTx) Clear() int {
	removed := len(tx.store.items)
	tx.store.items = nil
	return removed
}
