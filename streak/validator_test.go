package streak

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulane/streakd/models"
	"github.com/edulane/streakd/store"
)

func testValidator(st store.Store) *Validator {
	return NewValidator(st, Config{
		MinutesPerDayRequired: 10,
		Thresholds:            testThresholds(),
	}, nil)
}

func day(offset int) time.Time {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	return base.AddDate(0, 0, offset)
}

func TestValidateFirstActivityCreatesRecord(t *testing.T) {
	st := store.NewMemoryStore()
	v := testValidator(st)

	rec, err := v.ValidateDaily(context.Background(), "u1", day(0))
	require.NoError(t, err)

	assert.Equal(t, 0, rec.CurrentStreak, "first-ever activity judges nothing")
	assert.Equal(t, 0, rec.TotalDaysActive)
	assert.Equal(t, 1, rec.CurrentLevel, "level stays consistent with streak 0")
	require.NotNil(t, rec.LastActivityDate)
	assert.True(t, rec.LastActivityDate.Equal(day(0)))
}

func TestValidateIdempotentPerDay(t *testing.T) {
	st := store.NewMemoryStore()
	v := testValidator(st)

	_, err := v.ValidateDaily(context.Background(), "u1", day(0))
	require.NoError(t, err)
	require.NoError(t, st.CommitMinutes(context.Background(), "u1", day(0), 30))

	first, err := v.ValidateDaily(context.Background(), "u1", day(1))
	require.NoError(t, err)
	// Two sessions both logging in the same morning.
	second, err := v.ValidateDaily(context.Background(), "u1", day(1))
	require.NoError(t, err)

	assert.Equal(t, first.CurrentStreak, second.CurrentStreak)
	assert.Equal(t, first.TotalDaysActive, second.TotalDaysActive)
	assert.Equal(t, first.DailyMinutes, second.DailyMinutes)
}

func TestValidateQualifyingDayIncrements(t *testing.T) {
	st := store.NewMemoryStore()
	v := testValidator(st)

	_, err := v.ValidateDaily(context.Background(), "u1", day(0))
	require.NoError(t, err)
	require.NoError(t, st.CommitMinutes(context.Background(), "u1", day(0), 12))

	rec, err := v.ValidateDaily(context.Background(), "u1", day(1))
	require.NoError(t, err)

	assert.Equal(t, 1, rec.CurrentStreak)
	assert.Equal(t, 1, rec.TotalDaysActive)
	assert.Equal(t, 1, rec.LongestStreak)
	assert.Equal(t, 0, rec.DailyMinutes, "daily counter resets on validation")
}

func TestValidateBelowThresholdNoCredit(t *testing.T) {
	st := store.NewMemoryStore()
	v := testValidator(st)

	_, err := v.ValidateDaily(context.Background(), "u1", day(0))
	require.NoError(t, err)
	require.NoError(t, st.CommitMinutes(context.Background(), "u1", day(0), 9))

	rec, err := v.ValidateDaily(context.Background(), "u1", day(1))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.CurrentStreak)
	assert.Equal(t, 0, rec.TotalDaysActive)
}

func TestValidateLinearDecay(t *testing.T) {
	st := store.NewMemoryStore()
	v := testValidator(st)

	seedRecord(t, st, "u1", func(rec *models.StreakRecord) {
		last := day(0)
		rec.CurrentStreak = 5
		rec.LongestStreak = 5
		rec.CurrentLevel = ResolveLevel(5, testThresholds())
		rec.LastActivityDate = &last
	})

	// Four days later with no qualifying minutes: 3 full missed days
	// strictly between, streak decays linearly, not to zero.
	rec, err := v.ValidateDaily(context.Background(), "u1", day(4))
	require.NoError(t, err)

	assert.Equal(t, 2, rec.CurrentStreak)
	assert.Equal(t, 5, rec.LongestStreak, "longest streak never decays")
	assert.Equal(t, 1, rec.CurrentLevel, "level recomputed after decay")
}

func TestValidateDecayFloorsAtZero(t *testing.T) {
	st := store.NewMemoryStore()
	v := testValidator(st)

	seedRecord(t, st, "u1", func(rec *models.StreakRecord) {
		last := day(0)
		rec.CurrentStreak = 2
		rec.LongestStreak = 6
		rec.LastActivityDate = &last
	})

	rec, err := v.ValidateDaily(context.Background(), "u1", day(30))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.CurrentStreak)
	assert.Equal(t, 6, rec.LongestStreak)
}

func TestValidateDecayAndCreditSameCall(t *testing.T) {
	st := store.NewMemoryStore()
	v := testValidator(st)

	// Active on day 0 with qualifying minutes, then silent until day 4.
	// Decay (2 missed days) and the day-0 credit apply to the same loaded
	// state, in one update.
	seedRecord(t, st, "u1", func(rec *models.StreakRecord) {
		last := day(0)
		rec.CurrentStreak = 4
		rec.LongestStreak = 4
		rec.LastActivityDate = &last
		rec.DailyMinutes = 25
	})

	rec, err := v.ValidateDaily(context.Background(), "u1", day(3))
	require.NoError(t, err)
	assert.Equal(t, 3, rec.CurrentStreak, "4 - 2 missed + 1 credit")
	assert.Equal(t, 1, rec.TotalDaysActive)
	assert.Equal(t, 4, rec.LongestStreak)
}

func TestValidateLongestStreakMonotonic(t *testing.T) {
	st := store.NewMemoryStore()
	v := testValidator(st)

	_, err := v.ValidateDaily(context.Background(), "u1", day(0))
	require.NoError(t, err)

	longest := 0
	for i := 0; i < 20; i++ {
		// Qualify on even days only.
		if i%2 == 0 {
			require.NoError(t, st.CommitMinutes(context.Background(), "u1", day(i), 15))
		}
		rec, err := v.ValidateDaily(context.Background(), "u1", day(i+1))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rec.LongestStreak, longest)
		assert.GreaterOrEqual(t, rec.LongestStreak, rec.CurrentStreak)
		longest = rec.LongestStreak
	}
}

func TestValidateEndToEndScenario(t *testing.T) {
	st := store.NewMemoryStore()
	v := testValidator(st)
	ctx := context.Background()

	// Day 1: first login, then 12 minutes of activity.
	_, err := v.ValidateDaily(ctx, "u1", day(1))
	require.NoError(t, err)
	require.NoError(t, st.CommitMinutes(ctx, "u1", day(1), 12))

	// Day 2 login: day 1 qualifies.
	rec, err := v.ValidateDaily(ctx, "u1", day(2))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.CurrentStreak)
	assert.Equal(t, 1, rec.CurrentLevel)
	assert.Equal(t, 0, rec.DailyMinutes)

	// Day 2: only 4 minutes, then day 3 skipped entirely.
	require.NoError(t, st.CommitMinutes(ctx, "u1", day(2), 4))

	// Day 4 login: one full missed day between days 2 and 4, and day 2's
	// 4 minutes did not qualify.
	rec, err = v.ValidateDaily(ctx, "u1", day(4))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.CurrentStreak)
	assert.Equal(t, 1, rec.LongestStreak)
	assert.Equal(t, 1, rec.TotalDaysActive)
}

func TestValidateClockSkewBackwards(t *testing.T) {
	st := store.NewMemoryStore()
	v := testValidator(st)

	_, err := v.ValidateDaily(context.Background(), "u1", day(5))
	require.NoError(t, err)

	// A client clock behind the judged date must not decay anything.
	rec, err := v.ValidateDaily(context.Background(), "u1", day(3))
	require.NoError(t, err)
	assert.True(t, rec.LastActivityDate.Equal(day(5)))
}

func seedRecord(t *testing.T, st store.Store, userID string, mut func(*models.StreakRecord)) {
	t.Helper()
	_, err := st.CreateStreakIfMissing(context.Background(), userID)
	require.NoError(t, err)
	_, err = st.UpdateStreak(context.Background(), userID, func(rec *models.StreakRecord) error {
		mut(rec)
		return nil
	})
	require.NoError(t, err)
}
