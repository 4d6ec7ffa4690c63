package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/daybreak/internal/model"
)

// TaskStore persists the daily task set keyed by calendar date.
type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = `id, title, category, type, goal_value, current_value, unit, is_completed, reward_xp, sort_order`

func scanTask(scanner interface{ Scan(...any) error }) (*model.DailyTask, error) {
	var t model.DailyTask
	var completed int
	err := scanner.Scan(&t.ID, &t.Title, &t.Category, &t.Type, &t.GoalValue, &t.CurrentValue,
		&t.Unit, &completed, &t.RewardXP, &t.SortOrder)
	if err != nil {
		return nil, err
	}
	t.IsCompleted = completed != 0
	return &t, nil
}

// ReplaceDay swaps the stored set for date with tasks in one transaction.
func (s *TaskStore) ReplaceDay(date string, tasks []model.DailyTask) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM daily_tasks WHERE date = ?`, date); err != nil {
		return fmt.Errorf("clear daily tasks: %w", err)
	}

	for _, t := range tasks {
		var completed int
		if t.IsCompleted {
			completed = 1
		}
		_, err := tx.Exec(
			`INSERT INTO daily_tasks (`+taskCols+`, date) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, t.Category, t.Type, t.GoalValue, t.CurrentValue, t.Unit, completed, t.RewardXP, t.SortOrder, date,
		)
		if err != nil {
			return fmt.Errorf("insert daily task: %w", err)
		}
	}

	return tx.Commit()
}

// ListByDate returns the tasks for date in display order.
func (s *TaskStore) ListByDate(date string) ([]model.DailyTask, error) {
	rows, err := s.db.Query(`SELECT `+taskCols+` FROM daily_tasks WHERE date = ? ORDER BY sort_order ASC`, date)
	if err != nil {
		return nil, fmt.Errorf("list daily tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.DailyTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// LatestDate returns the most recent date with stored tasks, or "".
func (s *TaskStore) LatestDate() (string, error) {
	var date sql.NullString
	if err := s.db.QueryRow(`SELECT MAX(date) FROM daily_tasks`).Scan(&date); err != nil {
		return "", fmt.Errorf("latest task date: %w", err)
	}
	return date.String, nil
}

// DeleteBefore removes task sets older than date.
func (s *TaskStore) DeleteBefore(date string) error {
	if _, err := s.db.Exec(`DELETE FROM daily_tasks WHERE date < ?`, date); err != nil {
		return fmt.Errorf("delete old daily tasks: %w", err)
	}
	return nil
}
