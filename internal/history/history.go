// Package history stores conversation transcripts, lead profiles, the
// persisted activity log and session summaries.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// MaxMessages is the most turns kept per conversation; older turns are
	// trimmed first.
	MaxMessages = 500
	// MaxPersistedLogs is how many log entries survive a restart.
	MaxPersistedLogs = 50
	// ProfileTTL is how long a scraped lead profile stays fresh.
	ProfileTTL = 24 * time.Hour
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("history: not found")

// History is a decoded conversation transcript.
type History struct {
	LeadID       string
	LeadName     string
	Messages     []models.ConversationMessage
	LastSyncedAt time.Time
}

// Store reads and writes history rows through GORM.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New returns a Store backed by db. Tables must already be migrated.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// SaveConversation replaces the stored transcript for leadID with msgs,
// keeping only the newest MaxMessages turns in their original order.
func (s *Store) SaveConversation(leadID, leadName string, msgs []models.ConversationMessage) (*History, error) {
	if leadID == "" {
		return nil, fmt.Errorf("history: leadID is required")
	}
	if len(msgs) > MaxMessages {
		msgs = msgs[len(msgs)-MaxMessages:]
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("history: encode %s: %w", leadID, err)
	}

	now := s.now()
	row := models.Conversation{
		LeadID:       leadID,
		LeadName:     leadName,
		Messages:     string(data),
		MessageCount: len(msgs),
		LastSyncedAt: now,
	}
	err = s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("history: save conversation %s: %w", leadID, err)
	}

	out := make([]models.ConversationMessage, len(msgs))
	copy(out, msgs)
	return &History{LeadID: leadID, LeadName: leadName, Messages: out, LastSyncedAt: now}, nil
}

// GetConversation loads the transcript for leadID.
func (s *Store) GetConversation(leadID string) (*History, error) {
	var row models.Conversation
	err := s.db.Where("lead_id = ?", leadID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get conversation %s: %w", leadID, err)
	}
	return decode(row)
}

// ListConversations returns stored transcripts, most recently synced first.
// A limit of zero or less returns all of them.
func (s *Store) ListConversations(limit int) ([]History, error) {
	q := s.db.Order("last_synced_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Conversation
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("history: list conversations: %w", err)
	}
	out := make([]History, 0, len(rows))
	for _, r := range rows {
		h, err := decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, nil
}

// DeleteConversation removes the transcript for leadID. Transcripts are never
// removed any other way.
func (s *Store) DeleteConversation(leadID string) error {
	result := s.db.Where("lead_id = ?", leadID).Delete(&models.Conversation{})
	if result.Error != nil {
		return fmt.Errorf("history: delete conversation %s: %w", leadID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func decode(row models.Conversation) (*History, error) {
	var msgs []models.ConversationMessage
	if row.Messages != "" {
		if err := json.Unmarshal([]byte(row.Messages), &msgs); err != nil {
			return nil, fmt.Errorf("history: decode %s: %w", row.LeadID, err)
		}
	}
	return &History{
		LeadID:       row.LeadID,
		LeadName:     row.LeadName,
		Messages:     msgs,
		LastSyncedAt: row.LastSyncedAt,
	}, nil
}
