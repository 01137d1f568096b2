package player

import "math"

const (
	// MaxLevel is the level cap.
	MaxLevel = 100
	maxLevelXP = 999999999
)

// XPToNext is the experience needed to advance from level.
func XPToNext(level int) int {
	if level >= MaxLevel {
		return maxLevelXP
	}
	l := float64(level)
	return int(100 * math.Pow(l, 1.5+l/100))
}

// GainXP adds experience and applies every level-up it pays for. Each
// level-up refills HP and MP. It returns the number of levels gained.
func (c *Character) GainXP(n int) int {
	if n <= 0 {
		return 0
	}
	c.XP += n
	gained := 0
	for c.Level < MaxLevel && c.XP >= XPToNext(c.Level) {
		c.XP -= XPToNext(c.Level)
		c.Level++
		gained++
	}
	if gained > 0 {
		c.Recalculate()
		c.Restore()
	}
	return gained
}
