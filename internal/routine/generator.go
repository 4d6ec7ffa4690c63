// Package routine builds a day plan from a user profile.
//
// Generate places every block at a fixed position derived from the profile and
// then sorts by start time. Overlapping blocks are left in place; Conflicts
// reports them without moving anything.
package routine

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/timeofday"
)

const (
	earliestWakeHour    = 5
	wakeUpMinutes       = 30
	exerciseMinutes     = 30
	restMinutes         = 30
	mealMinutes         = 30
	maxStudySubjects    = 3
	cyclesPerSubject    = 2
	tuitionGapMinutes   = 15
	afterLunchMinutes   = 30
	restToStudyMinutes  = 60
	lastStudyStartHour  = 21
	sleepStartHour      = 22
	sleepEndHour        = 6
	minutesPerDay       = 24 * 60
	defaultStudyMinutes = model.DefaultStudyMinutes
	defaultBreakMinutes = model.DefaultBreakMinutes
)

// Generate returns the routine for date. The profile is only read.
func Generate(date time.Time, p model.UserProfile) model.DailyRoutine {
	var blocks []model.TimeBlock

	wakeHour := p.SchoolStart.Hour - 1
	if wakeHour < earliestWakeHour {
		wakeHour = earliestWakeHour
	}
	wake := timeofday.New(wakeHour, 0)
	blocks = append(blocks, newBlock(model.BlockWakeUp, "", wake, wake.Add(wakeUpMinutes)))

	exercise := wake.Add(30)
	blocks = append(blocks, newBlock(model.BlockExercise, "Morning Exercise", exercise, exercise.Add(exerciseMinutes)))

	blocks = append(blocks, newBlock(model.BlockSchool, "", p.SchoolStart, p.SchoolEnd))

	restEnd := p.SchoolEnd.Add(restMinutes)
	blocks = append(blocks, newBlock(model.BlockFreeTime, "Rest", p.SchoolEnd, restEnd))

	blocks = append(blocks,
		newBlock(model.BlockLunch, "Breakfast", p.Breakfast, p.Breakfast.Add(mealMinutes)),
		newBlock(model.BlockLunch, "Lunch", p.Lunch, p.Lunch.Add(mealMinutes)),
		newBlock(model.BlockLunch, "Dinner", p.Dinner, p.Dinner.Add(mealMinutes)),
	)

	if p.HasTuition {
		blocks = append(blocks, newBlock(model.BlockTuition, "", p.TuitionStart, p.TuitionEnd))
	}

	blocks = append(blocks, studyBlocks(p, restEnd)...)

	blocks = append(blocks, newBlock(model.BlockSleep, "",
		timeofday.New(sleepStartHour, 0), timeofday.New(sleepEndHour, 0)))

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].StartMinutes() < blocks[j].StartMinutes()
	})

	return model.DailyRoutine{
		Date:   clock.StartOfDay(date),
		Blocks: blocks,
	}
}

// studyBlocks chains one Pomodoro session per subject. The chain is tracked
// in absolute minutes so it never wraps: a session may only start before
// lastStudyStartHour and must end by midnight.
func studyBlocks(p model.UserProfile, restEnd timeofday.Time) []model.TimeBlock {
	studyMin := p.RecommendedStudyMinutes
	if studyMin <= 0 {
		studyMin = defaultStudyMinutes
	}
	breakMin := p.RecommendedBreakMinutes
	if breakMin < 0 {
		breakMin = defaultBreakMinutes
	}
	sessionMinutes := cyclesPerSubject * (studyMin + breakMin)

	var start timeofday.Time
	if p.HasTuition {
		start = p.TuitionEnd.Add(tuitionGapMinutes)
	} else {
		start = p.Lunch.Add(mealMinutes + afterLunchMinutes)
	}
	start = timeofday.Later(start, restEnd.Add(restToStudyMinutes))

	subjects := p.Subjects
	if len(subjects) > maxStudySubjects {
		subjects = subjects[:maxStudySubjects]
	}

	var blocks []model.TimeBlock
	startMin := start.Minutes()
	for _, subject := range subjects {
		endMin := startMin + sessionMinutes
		if startMin >= lastStudyStartHour*60 || endMin > minutesPerDay {
			break
		}
		b := newBlock(model.BlockStudy, subject, timeofday.FromMinutes(startMin), timeofday.FromMinutes(endMin))
		cycles, sMin, bMin := cyclesPerSubject, studyMin, breakMin
		b.Cycles = &cycles
		b.StudyDuration = &sMin
		b.BreakDuration = &bMin
		blocks = append(blocks, b)
		startMin = endMin
	}
	return blocks
}

func newBlock(t model.BlockType, subject string, start, end timeofday.Time) model.TimeBlock {
	return model.TimeBlock{
		ID:          uuid.NewString(),
		Type:        t,
		Subject:     subject,
		StartHour:   start.Hour,
		StartMinute: start.Minute,
		EndHour:     end.Hour,
		EndMinute:   end.Minute,
	}
}
