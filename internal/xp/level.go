// Package xp is the reward ledger: it accumulates XP, derives levels from a
// quadratic threshold curve and keeps a short log of recent awards.
package xp

// XPRequired returns the cumulative XP needed to be at level.
func XPRequired(level int) int {
	if level <= 1 {
		return 0
	}
	n := level - 1
	return n * n * 100
}

// LevelProgress is how far currentXP sits between the player's level and the
// next one, in [0,1].
func LevelProgress(level, currentXP int) float64 {
	lo, hi := XPRequired(level), XPRequired(level+1)
	span := hi - lo
	if span <= 0 {
		return 1
	}
	p := float64(currentXP-lo) / float64(span)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// TitleForLevel maps a level to its display title.
func TitleForLevel(level int) string {
	switch {
	case level <= 3:
		return "Beginner"
	case level <= 6:
		return "Apprentice"
	case level <= 10:
		return "Scholar"
	case level <= 15:
		return "Warrior"
	case level <= 20:
		return "Champion"
	case level <= 25:
		return "Master"
	case level <= 30:
		return "Grandmaster"
	case level <= 40:
		return "Legend"
	default:
		return "Mythic"
	}
}
