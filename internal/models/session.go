package models

import "time"

// Session summarizes one contiguous Running period, written when it stops.
type Session struct {
	ID             string `gorm:"primaryKey;size:36"`
	StartedAt      time.Time
	StoppedAt      *time.Time
	ChatsProcessed int
	RepliesSent    int
	LeadsFound     int
	TokensUsed     int
	Model          string `gorm:"size:64"`
	Provider       string `gorm:"size:16"`
}
