package xp

// AchievementKind selects which statistic an achievement is measured against.
type AchievementKind string

const (
	KindLevel          AchievementKind = "level"
	KindTotalXP        AchievementKind = "total_xp"
	KindStudySessions  AchievementKind = "study_sessions"
	KindPerfectQuizzes AchievementKind = "perfect_quizzes"
)

// Stats are the counters achievements are evaluated against.
type Stats struct {
	Level          int
	TotalXP        int
	StudySessions  int
	PerfectQuizzes int
}

func (s Stats) value(k AchievementKind) int {
	switch k {
	case KindLevel:
		return s.Level
	case KindTotalXP:
		return s.TotalXP
	case KindStudySessions:
		return s.StudySessions
	case KindPerfectQuizzes:
		return s.PerfectQuizzes
	default:
		return 0
	}
}

type Achievement struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Kind        AchievementKind `json:"kind"`
	Threshold   int             `json:"threshold"`
	Earned      bool            `json:"earned"`
}

var catalog = []Achievement{
	{ID: "level_5", Name: "On the Path", Description: "Reach level 5", Icon: "leaf", Kind: KindLevel, Threshold: 5},
	{ID: "level_11", Name: "Warrior", Description: "Reach level 11", Icon: "shield", Kind: KindLevel, Threshold: 11},
	{ID: "level_21", Name: "Master", Description: "Reach level 21", Icon: "crown", Kind: KindLevel, Threshold: 21},
	{ID: "xp_1000", Name: "Thousand Club", Description: "Earn 1,000 XP", Icon: "star", Kind: KindTotalXP, Threshold: 1000},
	{ID: "xp_10000", Name: "Dedicated", Description: "Earn 10,000 XP", Icon: "star.fill", Kind: KindTotalXP, Threshold: 10000},
	{ID: "study_1", Name: "First Session", Description: "Finish a study block", Icon: "book", Kind: KindStudySessions, Threshold: 1},
	{ID: "study_25", Name: "Bookworm", Description: "Finish 25 study blocks", Icon: "books.vertical", Kind: KindStudySessions, Threshold: 25},
	{ID: "perfect_1", Name: "Flawless", Description: "Score 100% on a quiz", Icon: "checkmark.seal", Kind: KindPerfectQuizzes, Threshold: 1},
	{ID: "perfect_10", Name: "Sharp Mind", Description: "Score 100% on 10 quizzes", Icon: "brain", Kind: KindPerfectQuizzes, Threshold: 10},
}

// Achievements evaluates the full catalog against s.
func Achievements(s Stats) []Achievement {
	out := make([]Achievement, len(catalog))
	for i, a := range catalog {
		a.Earned = s.value(a.Kind) >= a.Threshold
		out[i] = a
	}
	return out
}

// CountEarned returns how many achievements in list are earned.
func CountEarned(list []Achievement) int {
	n := 0
	for _, a := range list {
		if a.Earned {
			n++
		}
	}
	return n
}
