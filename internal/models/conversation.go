package models

import "time"

// ConversationMessage is one turn of a messaging thread. Order is chronological.
type ConversationMessage struct {
	Speaker string `json:"speaker"`
	Message string `json:"message"`
}

// Conversation is the stored transcript for one lead. Messages holds the
// JSON-encoded []ConversationMessage.
type Conversation struct {
	LeadID       string `gorm:"primaryKey;size:191"`
	LeadName     string `gorm:"size:128"`
	Messages     string `gorm:"type:text"`
	MessageCount int
	LastSyncedAt time.Time `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
