package streak

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edulane/streakd/models"
	"github.com/edulane/streakd/store"
)

// Config carries the engine tuning values. Thresholds must already be
// sorted ascending by StreaksRequired (config.Load takes care of that).
type Config struct {
	MinutesPerDayRequired int
	Thresholds            []LevelThreshold
}

// Validator judges open days and rolls streak state forward. All of its
// work happens inside a single atomic store update per call, so two
// sessions validating around midnight cannot double-apply anything.
type Validator struct {
	store store.Store
	cfg   Config
	log   *zap.SugaredLogger
}

// NewValidator builds a Validator on top of st.
func NewValidator(st store.Store, cfg Config, log *zap.SugaredLogger) *Validator {
	return &Validator{store: st, cfg: cfg, log: log}
}

// dayState is the explicit shape of "where does this record stand
// relative to today", instead of inferring it from field nullability.
type dayState int

const (
	// stateNeverActive: no day has ever been judged for this user.
	stateNeverActive dayState = iota
	// stateValidatedToday: today was already judged; re-entry is a no-op.
	stateValidatedToday
	// statePendingValidation: the last judged day lies before today and
	// must now be closed out.
	statePendingValidation
)

func classify(rec *models.StreakRecord, today time.Time) dayState {
	if rec.LastActivityDate == nil {
		return stateNeverActive
	}
	// A last-activity date in the future can only come from clock skew;
	// treat it like an already-judged day rather than decaying backwards.
	if models.DaysBetween(*rec.LastActivityDate, today) <= 0 {
		return stateValidatedToday
	}
	return statePendingValidation
}

// ValidateDaily judges the user's open day as of today. It lazily creates
// the record on first activity, is idempotent per calendar day, and
// persists the whole transition in one atomic update.
func (v *Validator) ValidateDaily(ctx context.Context, userID string, today time.Time) (*models.StreakRecord, error) {
	day := models.DateOnly(today)
	if _, err := v.store.CreateStreakIfMissing(ctx, userID); err != nil {
		return nil, err
	}
	rec, err := v.store.UpdateStreak(ctx, userID, func(rec *models.StreakRecord) error {
		v.apply(rec, day)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if v.log != nil {
		v.log.Debugf("validated user=%s date=%s streak=%d level=%d",
			userID, models.DateKey(day), rec.CurrentStreak, rec.CurrentLevel)
	}
	return rec, nil
}

// apply runs the daily transition against a record already loaded under
// the store's per-user lock. Decay and credit both work off that one
// loaded state; splitting them into separate updates would reintroduce
// the lost-update race this design exists to prevent.
func (v *Validator) apply(rec *models.StreakRecord, today time.Time) {
	switch classify(rec, today) {
	case stateValidatedToday:
		return
	case stateNeverActive:
		// First-ever activity opens today without judging anything.
		rec.CurrentLevel = ResolveLevel(rec.CurrentStreak, v.cfg.Thresholds)
		rec.LastActivityDate = &today
		rec.DailyMinutes = 0
		return
	case statePendingValidation:
	}

	missed := models.DaysBetween(*rec.LastActivityDate, today) - 1
	if missed > 0 {
		rec.CurrentStreak -= missed
		if rec.CurrentStreak < 0 {
			rec.CurrentStreak = 0
		}
	}

	// The minutes being judged belong to the day being closed out
	// (LastActivityDate), accumulated there since its own validation.
	if rec.DailyMinutes >= v.cfg.MinutesPerDayRequired {
		rec.CurrentStreak++
		rec.TotalDaysActive++
	}

	rec.CurrentLevel = ResolveLevel(rec.CurrentStreak, v.cfg.Thresholds)
	if rec.CurrentStreak > rec.LongestStreak {
		rec.LongestStreak = rec.CurrentStreak
	}
	rec.LastActivityDate = &today
	rec.DailyMinutes = 0
}
