package model

import (
	"time"

	"github.com/dukerupert/daybreak/internal/timeofday"
)

type BlockType string

const (
	BlockWakeUp    BlockType = "wake_up"
	BlockSchool    BlockType = "school"
	BlockStudy     BlockType = "study"
	BlockBreakTime BlockType = "break_time"
	BlockLunch     BlockType = "lunch"
	BlockTuition   BlockType = "tuition"
	BlockExercise  BlockType = "exercise"
	BlockFreeTime  BlockType = "free_time"
	BlockSleep     BlockType = "sleep"
)

// AutoCompletes reports whether blocks of this type complete on their own
// once their end time has passed.
func (t BlockType) AutoCompletes() bool {
	switch t {
	case BlockSchool, BlockBreakTime, BlockLunch, BlockTuition, BlockFreeTime:
		return true
	case BlockWakeUp, BlockStudy, BlockExercise, BlockSleep:
		return false
	default:
		return false
	}
}

func (t BlockType) Label() string {
	switch t {
	case BlockWakeUp:
		return "Wake Up"
	case BlockSchool:
		return "School"
	case BlockStudy:
		return "Study"
	case BlockBreakTime:
		return "Break"
	case BlockLunch:
		return "Meal"
	case BlockTuition:
		return "Tuition"
	case BlockExercise:
		return "Exercise"
	case BlockFreeTime:
		return "Free Time"
	case BlockSleep:
		return "Sleep"
	default:
		return string(t)
	}
}

// TimeBlock is one scheduled interval of a day's routine.
type TimeBlock struct {
	ID            string    `json:"id"`
	Type          BlockType `json:"type"`
	Subject       string    `json:"subject,omitempty"`
	StartHour     int       `json:"start_hour"`
	StartMinute   int       `json:"start_minute"`
	EndHour       int       `json:"end_hour"`
	EndMinute     int       `json:"end_minute"`
	IsCompleted   bool      `json:"is_completed"`
	Cycles        *int      `json:"cycles,omitempty"`
	StudyDuration *int      `json:"study_duration,omitempty"`
	BreakDuration *int      `json:"break_duration,omitempty"`
}

func (b TimeBlock) Start() timeofday.Time { return timeofday.New(b.StartHour, b.StartMinute) }
func (b TimeBlock) End() timeofday.Time   { return timeofday.New(b.EndHour, b.EndMinute) }

// StartMinutes is the sort key used for routine ordering.
func (b TimeBlock) StartMinutes() int { return b.Start().Minutes() }

// Wraps reports whether the block ends on the following day.
func (b TimeBlock) Wraps() bool {
	return b.End().Minutes() <= b.Start().Minutes()
}

// DurationMinutes is the block length, counting past midnight when it wraps.
func (b TimeBlock) DurationMinutes() int {
	return timeofday.Duration(b.Start(), b.End())
}

// StartOn returns the block's start as an instant on day.
func (b TimeBlock) StartOn(day time.Time) time.Time {
	return b.Start().On(day)
}

// EndOn returns the block's end as an instant, on the day after day when the
// block wraps.
func (b TimeBlock) EndOn(day time.Time) time.Time {
	end := b.End().On(day)
	if b.Wraps() {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

// DisplayName is the subject when present, otherwise the type label.
func (b TimeBlock) DisplayName() string {
	if b.Subject != "" {
		return b.Subject
	}
	return b.Type.Label()
}

// DailyRoutine is the ordered set of blocks for one calendar date.
type DailyRoutine struct {
	Date   time.Time   `json:"date"`
	Blocks []TimeBlock `json:"blocks"`
}

// CompletedCount returns how many blocks are completed.
func (r DailyRoutine) CompletedCount() int {
	n := 0
	for _, b := range r.Blocks {
		if b.IsCompleted {
			n++
		}
	}
	return n
}

// BlockCompletion is a history record written when a block completes.
type BlockCompletion struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	BlockID     string    `json:"block_id"`
	BlockType   BlockType `json:"block_type"`
	Subject     string    `json:"subject,omitempty"`
	Automatic   bool      `json:"automatic"`
	CompletedAt time.Time `json:"completed_at"`
}
