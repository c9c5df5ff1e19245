package history

import (
	"fmt"

	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveLogs replaces the persisted log with the first MaxPersistedLogs
// entries of newestFirst.
func (s *Store) SaveLogs(newestFirst []models.LogEntry) error {
	if len(newestFirst) > MaxPersistedLogs {
		newestFirst = newestFirst[:MaxPersistedLogs]
	}
	// Insert oldest first so autoincrement IDs follow time order.
	rows := make([]models.LogEntry, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		e := newestFirst[i]
		e.ID = 0
		rows = append(rows, e)
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.LogEntry{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("history: save logs: %w", err)
	}
	return nil
}

// LoadLogs returns the persisted log, newest first.
func (s *Store) LoadLogs() ([]models.LogEntry, error) {
	var rows []models.LogEntry
	if err := s.db.Order("id DESC").Limit(MaxPersistedLogs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("history: load logs: %w", err)
	}
	return rows, nil
}

// SaveSession records a session summary.
func (s *Store) SaveSession(sess *models.Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("history: session id is required")
	}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(sess).Error; err != nil {
		return fmt.Errorf("history: save session %s: %w", sess.ID, err)
	}
	return nil
}

// ListSessions returns session summaries, newest first.
func (s *Store) ListSessions(limit int) ([]models.Session, error) {
	q := s.db.Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Session
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("history: list sessions: %w", err)
	}
	return rows, nil
}
