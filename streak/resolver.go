package streak

// LevelThreshold says that reaching StreaksRequired consecutive days
// completes Level and moves the user into the band above it. Tables must
// be sorted ascending by StreaksRequired.
type LevelThreshold struct {
	Level           int `json:"level"`
	StreaksRequired int `json:"streaks_required"`
}

// ResolveLevel maps a streak count onto the threshold table. Below the
// smallest threshold the user sits at the base level 1; crossing a
// threshold promotes into that threshold's level plus one, and the band
// above the last threshold is open-ended. An empty table yields 0.
func ResolveLevel(streak int, thresholds []LevelThreshold) int {
	if len(thresholds) == 0 {
		return 0
	}
	level := 1
	for _, t := range thresholds {
		if streak < t.StreaksRequired {
			break
		}
		level = t.Level + 1
	}
	return level
}
