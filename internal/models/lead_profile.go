package models

import "time"

// LeadProfile caches what was scraped from a lead's profile page.
type LeadProfile struct {
	LeadID           string `gorm:"primaryKey;size:191"`
	Headline         string `gorm:"size:512"`
	JobTitle         string `gorm:"size:256"`
	Company          string `gorm:"size:256"`
	Location         string `gorm:"size:256"`
	ConnectionDegree string `gorm:"size:16"`
	LastScraped      time.Time
}
