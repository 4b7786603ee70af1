package streak

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testThresholds() []LevelThreshold {
	return []LevelThreshold{
		{Level: 1, StreaksRequired: 3},
		{Level: 2, StreaksRequired: 7},
		{Level: 3, StreaksRequired: 15},
	}
}

func TestResolveLevelBands(t *testing.T) {
	ts := testThresholds()

	cases := []struct {
		streak int
		level  int
	}{
		{0, 1},
		{1, 1},
		{2, 1},
		{3, 2},
		{6, 2},
		{7, 3},
		{14, 3},
		{15, 4},
		{100, 4}, // band above the last threshold is open-ended
	}
	for _, c := range cases {
		assert.Equal(t, c.level, ResolveLevel(c.streak, ts), "streak=%d", c.streak)
	}
}

func TestResolveLevelEmptyTable(t *testing.T) {
	assert.Equal(t, 0, ResolveLevel(0, nil))
	assert.Equal(t, 0, ResolveLevel(50, []LevelThreshold{}))
}

func TestResolveLevelMonotonic(t *testing.T) {
	tables := [][]LevelThreshold{
		testThresholds(),
		{{Level: 1, StreaksRequired: 1}},
		{{Level: 1, StreaksRequired: 2}, {Level: 2, StreaksRequired: 10}, {Level: 3, StreaksRequired: 40}},
	}
	for _, ts := range tables {
		prev := ResolveLevel(0, ts)
		for streak := 1; streak <= 200; streak++ {
			cur := ResolveLevel(streak, ts)
			assert.GreaterOrEqual(t, cur, prev, "level must never drop as streak grows")
			prev = cur
		}
	}
}
