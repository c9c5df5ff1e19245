package models

import "time"

// LogEntry is a persisted bot activity line. Only the newest entries are kept.
type LogEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Time      time.Time `gorm:"index"`
	Type      string    `gorm:"size:8"`
	Actor     string    `gorm:"size:8"`
	Message   string    `gorm:"type:text"`
	SessionID string    `gorm:"size:36;index"`
}
