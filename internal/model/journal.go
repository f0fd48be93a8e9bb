package model

import (
	"time"
)

type Mood string

const (
	MoodHappy      Mood = "happy"
	MoodNeutral    Mood = "neutral"
	MoodFrustrated Mood = "frustrated"
	MoodTilted     Mood = "tilted"
)

const JournalDayLayout = "2006-01-02"

// JournalEntry is the per-user per-day trading aggregate. TotalPnL accumulates
// across every trade closed on that day; notes and mood are user-authored.
// (OwnerID, Day) is unique.
type JournalEntry struct {
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Day       string    `json:"day" db:"day"`
	Notes     string    `json:"notes" db:"notes"`
	Mood      Mood      `json:"mood,omitempty" db:"mood"`
	TotalPnL  float64   `json:"total_pnl" db:"total_pnl"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
