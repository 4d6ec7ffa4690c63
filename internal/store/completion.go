package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/daybreak/internal/model"
)

// CompletionStore keeps the per-day history of completed routine blocks.
type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

// Record stores a completion. Recording the same block twice for a date is a no-op.
func (s *CompletionStore) Record(c model.BlockCompletion) error {
	var auto int
	if c.Automatic {
		auto = 1
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO block_completions (date, block_id, block_type, subject, automatic, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.Date, c.BlockID, c.BlockType, c.Subject, auto, c.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record block completion: %w", err)
	}
	return nil
}

func (s *CompletionStore) ListByDate(date string) ([]model.BlockCompletion, error) {
	rows, err := s.db.Query(
		`SELECT id, date, block_id, block_type, subject, automatic, completed_at
		 FROM block_completions WHERE date = ? ORDER BY completed_at ASC, id ASC`, date,
	)
	if err != nil {
		return nil, fmt.Errorf("list block completions: %w", err)
	}
	defer rows.Close()

	var out []model.BlockCompletion
	for rows.Next() {
		var c model.BlockCompletion
		var auto int
		if err := rows.Scan(&c.ID, &c.Date, &c.BlockID, &c.BlockType, &c.Subject, &auto, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan block completion: %w", err)
		}
		c.Automatic = auto != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountByType counts completions of a block type across all days.
func (s *CompletionStore) CountByType(t model.BlockType) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM block_completions WHERE block_type = ?`, t).Scan(&n); err != nil {
		return 0, fmt.Errorf("count block completions: %w", err)
	}
	return n, nil
}
