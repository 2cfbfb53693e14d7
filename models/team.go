package models

import (
	"time"

	"gorm.io/gorm"
)

type TeamStatus string

const (
	TeamStatusPending  TeamStatus = "PENDING"
	TeamStatusApproved TeamStatus = "APPROVED"
	TeamStatusRejected TeamStatus = "REJECTED"
)

// A team must have a leader plus MinTeamMembers..MaxTeamMembers members.
const (
	MinTeamMembers = 3
	MaxTeamMembers = 5
)

// Team is a student group registered under a mentor for one project pillar.
// The team number is unique across all teams and its numeric suffix is drawn
// from the batch's configured ranges.
type Team struct {
	gorm.Model

	TeamNumber string     `gorm:"uniqueIndex;not null" json:"team_number"`
	Title      string     `gorm:"not null" json:"title"`
	Pillar     string     `gorm:"not null" json:"pillar"`
	Batch      string     `gorm:"not null;index" json:"batch"`
	Status     TeamStatus `gorm:"not null;default:'PENDING';index" json:"status"`

	LeaderID uint `gorm:"not null;index" json:"leader_id"`
	MentorID uint `gorm:"not null;index" json:"mentor_id"`

	// Decision trail, populated by the assigned mentor.
	RejectReason string     `json:"reject_reason,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`

	// Relations
	Leader   User         `gorm:"foreignKey:LeaderID" json:"leader,omitempty"`
	Mentor   User         `gorm:"foreignKey:MentorID" json:"mentor,omitempty"`
	Members  []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Proposal *Proposal    `gorm:"foreignKey:TeamID" json:"proposal,omitempty"`
	Project  *Project     `gorm:"foreignKey:TeamID" json:"project,omitempty"`
}

// TeamMember carries the denormalized member identity, optionally linked to a
// registered account.
type TeamMember struct {
	gorm.Model

	TeamID uint   `gorm:"not null;index;uniqueIndex:uniq_team_member_email" json:"team_id"`
	Name   string `gorm:"not null" json:"name"`
	Email  string `gorm:"not null;uniqueIndex:uniq_team_member_email" json:"email"`
	Roll   string `gorm:"not null" json:"roll"`
	UserID *uint  `gorm:"index" json:"user_id,omitempty"`

	// Relations
	Team Team  `json:"-"`
	User *User `json:"-"`
}
