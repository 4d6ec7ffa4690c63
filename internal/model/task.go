package model

type TaskCategory string

const (
	CategorySteps       TaskCategory = "steps"
	CategoryWater       TaskCategory = "water"
	CategoryDistance    TaskCategory = "distance"
	CategoryStudy       TaskCategory = "study"
	CategoryFitness     TaskCategory = "fitness"
	CategoryMindfulness TaskCategory = "mindfulness"
	CategoryCustom      TaskCategory = "custom"
)

func (c TaskCategory) IsValid() bool {
	switch c {
	case CategorySteps, CategoryWater, CategoryDistance, CategoryStudy,
		CategoryFitness, CategoryMindfulness, CategoryCustom:
		return true
	default:
		return false
	}
}

type TaskType string

const (
	TaskAuto   TaskType = "auto"
	TaskManual TaskType = "manual"
)

type DailyTask struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Category     TaskCategory `json:"category"`
	Type         TaskType     `json:"type"`
	GoalValue    float64      `json:"goal_value"`
	CurrentValue float64      `json:"current_value"`
	Unit         string       `json:"unit,omitempty"`
	IsCompleted  bool         `json:"is_completed"`
	RewardXP     int          `json:"reward_xp"`
	SortOrder    int          `json:"sort_order"`
}

// Progress is current/goal clamped to [0,1].
func (t DailyTask) Progress() float64 {
	if t.GoalValue <= 0 {
		if t.IsCompleted {
			return 1
		}
		return 0
	}
	p := t.CurrentValue / t.GoalValue
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}
