package models

import (
	"gorm.io/gorm"
)

// UserRole is fixed at registration time and never transitions.
type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleMentor  UserRole = "MENTOR"
	RoleAdmin   UserRole = "ADMIN"
)

// User represents a portal account
type User struct {
	gorm.Model

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Profile information
	Name  string  `gorm:"not null" json:"name"`
	Roll  *string `gorm:"index" json:"roll,omitempty"`  // students only
	Batch *string `json:"batch,omitempty"`              // students only

	Role UserRole `gorm:"not null;default:'STUDENT';index" json:"role"`

	// Account status
	IsActive     bool `gorm:"default:true" json:"is_active"`
	IsRegistered bool `gorm:"default:true" json:"is_registered"`

	TokenVersion int `gorm:"default:0" json:"-"`
}
