package routine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/timeofday"
)

type namedTime struct {
	name string
	t    timeofday.Time
}

// ValidateProfile checks a profile at edit time. Generate never calls it.
func ValidateProfile(p model.UserProfile) error {
	var errs []error

	if p.Age < 0 {
		errs = append(errs, errors.New("age must be >= 0"))
	}

	times := []namedTime{
		{"school_start", p.SchoolStart},
		{"school_end", p.SchoolEnd},
		{"breakfast", p.Breakfast},
		{"lunch", p.Lunch},
		{"dinner", p.Dinner},
	}
	if p.HasTuition {
		times = append(times,
			namedTime{"tuition_start", p.TuitionStart},
			namedTime{"tuition_end", p.TuitionEnd},
		)
	}
	for _, tt := range times {
		if !tt.t.Valid() {
			errs = append(errs, fmt.Errorf("%s %s is not a valid time of day", tt.name, tt.t))
		}
	}

	if !p.SchoolEnd.After(p.SchoolStart) {
		errs = append(errs, fmt.Errorf("school_end %s must be after school_start %s", p.SchoolEnd, p.SchoolStart))
	}
	if p.HasTuition && !p.TuitionEnd.After(p.TuitionStart) {
		errs = append(errs, fmt.Errorf("tuition_end %s must be after tuition_start %s", p.TuitionEnd, p.TuitionStart))
	}

	if p.RecommendedStudyMinutes <= 0 {
		errs = append(errs, errors.New("recommended_study_minutes must be > 0"))
	}
	if p.RecommendedBreakMinutes < 0 {
		errs = append(errs, errors.New("recommended_break_minutes must be >= 0"))
	}

	for i, s := range p.Subjects {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Errorf("subject %d is empty", i))
		}
	}

	return errors.Join(errs...)
}

// Conflict is a pair of blocks whose intervals overlap.
type Conflict struct {
	First  model.TimeBlock `json:"first"`
	Second model.TimeBlock `json:"second"`
}

// Conflicts lists overlapping block pairs in routine order. The sleep block
// is skipped since it spans midnight by construction.
func Conflicts(r model.DailyRoutine) []Conflict {
	var out []Conflict
	for i := 0; i < len(r.Blocks); i++ {
		a := r.Blocks[i]
		if a.Type == model.BlockSleep {
			continue
		}
		for j := i + 1; j < len(r.Blocks); j++ {
			b := r.Blocks[j]
			if b.Type == model.BlockSleep {
				continue
			}
			if overlaps(a, b) {
				out = append(out, Conflict{First: a, Second: b})
			}
		}
	}
	return out
}

func overlaps(a, b model.TimeBlock) bool {
	aStart, aEnd := a.StartMinutes(), a.StartMinutes()+a.DurationMinutes()
	bStart, bEnd := b.StartMinutes(), b.StartMinutes()+b.DurationMinutes()
	return aStart < bEnd && bStart < aEnd
}
