package models

import "gorm.io/gorm"

// Project holds the free-form record a team maintains once it is approved.
type Project struct {
	gorm.Model

	TeamID uint `gorm:"not null;uniqueIndex" json:"team_id"`

	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Theme       string `json:"theme"`
	Milestones  string `gorm:"type:text" json:"milestones"`
	Location    string `json:"location"`

	// Relations
	Team Team `json:"-"`
}
