package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edulane/streakd/models"
)

const (
	// updateAttempts bounds the internal retry loop for transactional
	// read-modify-write collisions (deadlocks, lock wait timeouts).
	updateAttempts = 3
	// usageKeyTTL keeps mirrored counters around long enough for the
	// midnight boundary plus a day of slack.
	usageKeyTTL = 48 * time.Hour
)

// GormStore persists streak state in MySQL and mirrors hot daily-usage
// counters into Redis for cheap reads. The Redis client is optional;
// when nil every read falls through to the database.
type GormStore struct {
	db  *gorm.DB
	rdb *redis.Client
	log *zap.SugaredLogger
}

// NewGormStore wraps db (and an optional redis client) in a Store.
func NewGormStore(db *gorm.DB, rdb *redis.Client, log *zap.SugaredLogger) *GormStore {
	return &GormStore{db: db, rdb: rdb, log: log}
}

func (s *GormStore) GetStreak(ctx context.Context, userID string) (*models.StreakRecord, error) {
	var rec models.StreakRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) CreateStreakIfMissing(ctx context.Context, userID string) (*models.StreakRecord, error) {
	// Insert-or-ignore against the unique user_id index so two sessions
	// racing on first activity cannot create two rows.
	rec := models.StreakRecord{UserID: userID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return nil, err
	}
	return s.GetStreak(ctx, userID)
}

func (s *GormStore) UpdateStreak(ctx context.Context, userID string, fn func(*models.StreakRecord) error) (*models.StreakRecord, error) {
	var out *models.StreakRecord
	var lastErr error
	for attempt := 0; attempt < updateAttempts; attempt++ {
		lastErr = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var rec models.StreakRecord
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("user_id = ?", userID).First(&rec).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			if err := fn(&rec); err != nil {
				return err
			}
			if err := tx.Save(&rec).Error; err != nil {
				return err
			}
			out = &rec
			return nil
		})
		if lastErr == nil {
			return out, nil
		}
		if errors.Is(lastErr, ErrNotFound) {
			return nil, lastErr
		}
		if s.log != nil {
			s.log.Warnf("streak update retry user=%s attempt=%d err=%v", userID, attempt+1, lastErr)
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

func (s *GormStore) CommitMinutes(ctx context.Context, userID string, date time.Time, minutes int) error {
	if minutes <= 0 {
		return nil
	}
	day := models.DateOnly(date)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Additive increments only. A read-then-overwrite here would lose
		// minutes whenever two sessions of the same user flush at once.
		res := tx.Model(&models.StreakRecord{}).
			Where("user_id = ?", userID).
			UpdateColumn("daily_minutes", gorm.Expr("daily_minutes + ?", minutes))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"minutes_used": gorm.Expr("minutes_used + ?", minutes),
				"updated_at":   time.Now(),
			}),
		}).Create(&models.DailyUsage{UserID: userID, Date: day, MinutesUsed: minutes}).Error
	})
	if err != nil {
		return err
	}
	s.mirrorUsage(ctx, userID, day, minutes)
	return nil
}

func (s *GormStore) GetDailyUsage(ctx context.Context, userID string, date time.Time) (int, error) {
	day := models.DateOnly(date)
	if n, ok := s.mirroredUsage(ctx, userID, day); ok {
		return n, nil
	}
	var usage models.DailyUsage
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, day).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return usage.MinutesUsed, nil
}

func usageKey(userID string, day time.Time) string {
	return "usage:" + userID + ":" + models.DateKey(day)
}

// mirrorUsage keeps a Redis counter in step with the database total. It is
// best-effort: on failure the next GetDailyUsage simply reads the database.
func (s *GormStore) mirrorUsage(ctx context.Context, userID string, day time.Time, minutes int) {
	if s.rdb == nil {
		return
	}
	key := usageKey(userID, day)
	pipe := s.rdb.Pipeline()
	pipe.IncrBy(ctx, key, int64(minutes))
	pipe.Expire(ctx, key, usageKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil && s.log != nil {
		s.log.Debugf("usage mirror incr failed key=%s err=%v", key, err)
	}
}

func (s *GormStore) mirroredUsage(ctx context.Context, userID string, day time.Time) (int, bool) {
	if s.rdb == nil {
		return 0, false
	}
	v, err := s.rdb.Get(ctx, usageKey(userID, day)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
