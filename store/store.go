package store

import (
	"context"
	"errors"
	"time"

	"github.com/edulane/streakd/models"
)

var (
	// ErrNotFound means no streak record exists yet for the user; callers
	// recover by calling CreateStreakIfMissing.
	ErrNotFound = errors.New("streak record not found")
	// ErrConflict means a transactional update kept colliding with
	// concurrent writers and the retry budget ran out.
	ErrConflict = errors.New("streak record update conflict")
)

// Store is the only gateway to streak persistence. Implementations must
// make UpdateStreak atomic per user and CommitMinutes an additive
// increment, never a read-then-overwrite.
type Store interface {
	GetStreak(ctx context.Context, userID string) (*models.StreakRecord, error)
	// CreateStreakIfMissing inserts a zeroed record unless one already
	// exists; concurrent callers must not produce two rows for one user.
	CreateStreakIfMissing(ctx context.Context, userID string) (*models.StreakRecord, error)
	// UpdateStreak applies fn to the current record inside a transaction
	// and persists the result. fn may be invoked more than once on retry.
	UpdateStreak(ctx context.Context, userID string, fn func(*models.StreakRecord) error) (*models.StreakRecord, error)
	// CommitMinutes adds minutes to both the user's open-day counter and
	// the daily usage row for date.
	CommitMinutes(ctx context.Context, userID string, date time.Time, minutes int) error
	GetDailyUsage(ctx context.Context, userID string, date time.Time) (int, error)
}
