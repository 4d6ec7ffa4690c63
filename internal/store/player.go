package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/daybreak/internal/model"
)

// PlayerStore persists the single XP ledger row and its event log.
type PlayerStore struct {
	db *sql.DB
}

func NewPlayerStore(db *sql.DB) *PlayerStore {
	return &PlayerStore{db: db}
}

// GetOrCreate returns the player, inserting the default row on first use.
func (s *PlayerStore) GetOrCreate() (*model.PlayerProfile, error) {
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO player (id) VALUES (1)`); err != nil {
		return nil, fmt.Errorf("insert player: %w", err)
	}

	var p model.PlayerProfile
	err := s.db.QueryRow(`SELECT level, current_xp, total_xp, title FROM player WHERE id = 1`).
		Scan(&p.Level, &p.CurrentXP, &p.TotalXP, &p.Title)
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return &p, nil
}

func (s *PlayerStore) Save(p model.PlayerProfile) error {
	_, err := s.db.Exec(
		`INSERT INTO player (id, level, current_xp, total_xp, title, updated_at) VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET level = excluded.level, current_xp = excluded.current_xp,
		   total_xp = excluded.total_xp, title = excluded.title, updated_at = excluded.updated_at`,
		p.Level, p.CurrentXP, p.TotalXP, p.Title, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

func (s *PlayerStore) AddEvent(e model.XPEvent) error {
	_, err := s.db.Exec(
		`INSERT INTO xp_events (id, source, amount, icon, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.Amount, e.Icon, e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert xp event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *PlayerStore) RecentEvents(limit int) ([]model.XPEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, source, amount, icon, occurred_at FROM xp_events ORDER BY seq DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list xp events: %w", err)
	}
	defer rows.Close()

	var events []model.XPEvent
	for rows.Next() {
		var e model.XPEvent
		if err := rows.Scan(&e.ID, &e.Source, &e.Amount, &e.Icon, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan xp event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountEventsBySource counts every logged event whose source matches.
func (s *PlayerStore) CountEventsBySource(source string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM xp_events WHERE source = ?`, source).Scan(&n); err != nil {
		return 0, fmt.Errorf("count xp events: %w", err)
	}
	return n, nil
}
