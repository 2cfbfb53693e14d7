package utils

import (
	"strings"

	"ssrportal/config"
	"ssrportal/models"
)

// DeriveRole maps a registration email to a role by its domain: the admin
// domain yields ADMIN, the staff-mentor domain yields MENTOR, anything else
// is a STUDENT. The role is fixed at registration and never changes.
func DeriveRole(email string) models.UserRole {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return models.RoleStudent
	}
	domain := strings.ToLower(email[at+1:])

	switch domain {
	case strings.ToLower(config.AppConfig.AdminEmailDomain):
		return models.RoleAdmin
	case strings.ToLower(config.AppConfig.MentorEmailDomain):
		return models.RoleMentor
	default:
		return models.RoleStudent
	}
}
