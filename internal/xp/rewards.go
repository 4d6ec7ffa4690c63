package xp

import "fmt"

// Fixed reward amounts.
const (
	QuizCorrectXP      = 10
	PerfectQuizBonusXP = 50
	ExerciseXP         = 25
	YogaXP             = 20
	BreathingXP        = 15
	MoodLoggedXP       = 10
	StepGoalXP         = 50
	WaterGoalXP        = 30
)

// Award sources. Achievements count events by source, so these are stable.
const (
	SourceStudy       = "Study Session"
	SourceQuiz        = "Quiz"
	SourcePerfectQuiz = "Perfect Quiz"
	SourceExercise    = "Exercise"
	SourceYoga        = "Yoga"
	SourceBreathing   = "Breathing"
	SourceMood        = "Mood Logged"
	SourceTask        = "Daily Task"
)

// StudySessionXP is the reward for a finished study block.
func StudySessionXP(cycles, studyMinutes int) int {
	return cycles * studyMinutes * 2
}

// Activity is a standalone wellness action that earns a fixed reward.
type Activity string

const (
	ActivityExercise  Activity = "exercise"
	ActivityYoga      Activity = "yoga"
	ActivityBreathing Activity = "breathing"
	ActivityMood      Activity = "mood"
)

// ParseActivity validates an activity name from the API.
func ParseActivity(s string) (Activity, error) {
	a := Activity(s)
	switch a {
	case ActivityExercise, ActivityYoga, ActivityBreathing, ActivityMood:
		return a, nil
	default:
		return "", fmt.Errorf("unknown activity %q", s)
	}
}

// ActivityXP returns the reward, award source and icon for a.
func ActivityXP(a Activity) (amount int, source, icon string) {
	switch a {
	case ActivityExercise:
		return ExerciseXP, SourceExercise, "figure.run"
	case ActivityYoga:
		return YogaXP, SourceYoga, "figure.yoga"
	case ActivityBreathing:
		return BreathingXP, SourceBreathing, "wind"
	case ActivityMood:
		return MoodLoggedXP, SourceMood, "face.smiling"
	default:
		return 0, string(a), ""
	}
}
