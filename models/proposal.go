package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "DRAFT"
	ProposalStatusApproved ProposalStatus = "APPROVED"
	ProposalStatusRejected ProposalStatus = "REJECTED"
)

// ValidProposalTransition reports whether moving a proposal from one status to
// another is legal. APPROVED is terminal; the only way out of REJECTED is a
// student resubmission back to DRAFT.
func ValidProposalTransition(from, to ProposalStatus) bool {
	switch from {
	case ProposalStatusDraft:
		return to == ProposalStatusApproved || to == ProposalStatusRejected
	case ProposalStatusRejected:
		return to == ProposalStatusDraft
	default:
		return false
	}
}

// Proposal is a team's single project plan; one row per team, overwritten in
// place on resubmission rather than versioned.
type Proposal struct {
	gorm.Model

	TeamID uint `gorm:"not null;uniqueIndex" json:"team_id"`

	Title        string `gorm:"not null" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	Content      string `gorm:"type:text" json:"content"`
	ExternalLink string `json:"external_link,omitempty"`

	// Attachment references produced by the upload endpoint.
	AttachmentPath string `json:"attachment_path,omitempty"`

	// Structured side column for location/timing metadata. Legacy content
	// arriving with an embedded HTML-comment marker is folded in here.
	Metadata datatypes.JSON `json:"metadata,omitempty"`

	Status  ProposalStatus `gorm:"not null;default:'DRAFT';index" json:"status"`
	Remarks string         `gorm:"type:text" json:"remarks,omitempty"`

	SubmissionCount int `gorm:"default:1" json:"submission_count"`

	ReviewedByID *uint      `json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`

	// Relations
	Team       Team  `json:"-"`
	ReviewedBy *User `gorm:"foreignKey:ReviewedByID" json:"-"`
}

// Active reports whether the proposal blocks a new submission for its team.
// Only a REJECTED proposal may be overwritten.
func (p *Proposal) Active() bool {
	return p.Status == ProposalStatusDraft || p.Status == ProposalStatusApproved
}

// Editable reports whether the owning student may still change the proposal.
func (p *Proposal) Editable() bool {
	return p.Status == ProposalStatusDraft || p.Status == ProposalStatusRejected
}
