package model

import "time"

const DefaultTitle = "Beginner"

// PlayerProfile is the XP ledger.
type PlayerProfile struct {
	Level     int    `json:"level"`
	CurrentXP int    `json:"current_xp"`
	TotalXP   int    `json:"total_xp"`
	Title     string `json:"title"`
}

func NewPlayerProfile() PlayerProfile {
	return PlayerProfile{Level: 1, Title: DefaultTitle}
}

type XPEvent struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Amount    int       `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	Icon      string    `json:"icon"`
}
