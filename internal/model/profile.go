package model

import "github.com/dukerupert/daybreak/internal/timeofday"

const (
	DefaultStudyMinutes = 25
	DefaultBreakMinutes = 5
)

// UserProfile holds the daily schedule anchors the routine is built from.
type UserProfile struct {
	Name                    string         `json:"name"`
	Age                     int            `json:"age"`
	SchoolStart             timeofday.Time `json:"school_start"`
	SchoolEnd               timeofday.Time `json:"school_end"`
	HasTuition              bool           `json:"has_tuition"`
	TuitionStart            timeofday.Time `json:"tuition_start"`
	TuitionEnd              timeofday.Time `json:"tuition_end"`
	Breakfast               timeofday.Time `json:"breakfast"`
	Lunch                   timeofday.Time `json:"lunch"`
	Dinner                  timeofday.Time `json:"dinner"`
	Subjects                []string       `json:"subjects"`
	RecommendedStudyMinutes int            `json:"recommended_study_minutes"`
	RecommendedBreakMinutes int            `json:"recommended_break_minutes"`
}

// DefaultUserProfile is the profile a fresh install starts with.
func DefaultUserProfile() UserProfile {
	return UserProfile{
		Age:                     16,
		SchoolStart:             timeofday.New(8, 0),
		SchoolEnd:               timeofday.New(14, 30),
		TuitionStart:            timeofday.New(16, 0),
		TuitionEnd:              timeofday.New(17, 30),
		Breakfast:               timeofday.New(7, 0),
		Lunch:                   timeofday.New(13, 0),
		Dinner:                  timeofday.New(19, 30),
		Subjects:                []string{},
		RecommendedStudyMinutes: DefaultStudyMinutes,
		RecommendedBreakMinutes: DefaultBreakMinutes,
	}
}
