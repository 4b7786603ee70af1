package store

import (
	"context"
	"sync"
	"time"

	"github.com/edulane/streakd/models"
)

// MemoryStore is an in-process Store used by tests and by demo mode.
// A single mutex serializes record updates, which gives the same
// per-user atomicity the SQL implementation gets from row locks.
type MemoryStore struct {
	mu      sync.Mutex
	streaks map[string]*models.StreakRecord
	usage   map[string]int // userID + "/" + date key
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streaks: map[string]*models.StreakRecord{},
		usage:   map[string]int{},
	}
}

func (s *MemoryStore) GetStreak(ctx context.Context, userID string) (*models.StreakRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.streaks[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) CreateStreakIfMissing(ctx context.Context, userID string) (*models.StreakRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.streaks[userID]
	if !ok {
		now := time.Now()
		rec = &models.StreakRecord{UserID: userID, CreatedAt: now, UpdatedAt: now}
		s.streaks[userID] = rec
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) UpdateStreak(ctx context.Context, userID string, fn func(*models.StreakRecord) error) (*models.StreakRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.streaks[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	if err := fn(&cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = time.Now()
	s.streaks[userID] = &cp
	out := cp
	return &out, nil
}

func (s *MemoryStore) CommitMinutes(ctx context.Context, userID string, date time.Time, minutes int) error {
	if minutes <= 0 {
		return nil
	}
	day := models.DateOnly(date)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.streaks[userID]
	if !ok {
		return ErrNotFound
	}
	rec.DailyMinutes += minutes
	s.usage[usageMapKey(userID, day)] += minutes
	return nil
}

func (s *MemoryStore) GetDailyUsage(ctx context.Context, userID string, date time.Time) (int, error) {
	day := models.DateOnly(date)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[usageMapKey(userID, day)], nil
}

func usageMapKey(userID string, day time.Time) string {
	return userID + "/" + models.DateKey(day)
}
