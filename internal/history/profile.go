package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveLeadProfile upserts p. A zero LastScraped is stamped with the current time.
func (s *Store) SaveLeadProfile(p *models.LeadProfile) error {
	if p == nil || p.LeadID == "" {
		return fmt.Errorf("history: profile leadID is required")
	}
	if p.LastScraped.IsZero() {
		p.LastScraped = s.now()
	}
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(p).Error; err != nil {
		return fmt.Errorf("history: save profile %s: %w", p.LeadID, err)
	}
	return nil
}

// GetLeadProfile returns the cached profile for leadID.
func (s *Store) GetLeadProfile(leadID string) (*models.LeadProfile, error) {
	var p models.LeadProfile
	err := s.db.Where("lead_id = ?", leadID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get profile %s: %w", leadID, err)
	}
	return &p, nil
}

// ShouldRefreshProfile reports whether p is missing or older than ProfileTTL.
func ShouldRefreshProfile(p *models.LeadProfile, now time.Time) bool {
	if p == nil || p.LastScraped.IsZero() {
		return true
	}
	return now.Sub(p.LastScraped) > ProfileTTL
}
