package xp

// Required returns the XP needed to advance from level to level+1,
// following the familiar 5L^2 + 50L + 100 curve. Strictly increasing.
func Required(level int) int {
	return 5*level*level + 50*level + 100
}

// LevelFromTotal converts a cumulative XP total into the current level,
// the XP accumulated inside that level, and the XP required to reach
// the next one. Requirements are subtracted greedily from level 0 up.
func LevelFromTotal(total int) (level, inLevel, toNext int) {
	if total < 0 {
		total = 0
	}
	remain := total
	need := Required(0)
	for remain >= need {
		remain -= need
		level++
		need = Required(level)
	}
	return level, remain, need
}
