package controller

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ssrportal/metrics"
	"ssrportal/models"
	"ssrportal/utils"
)

type ProposalController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewProposalController(db *gorm.DB, logger *log.Logger) *ProposalController {
	return &ProposalController{
		DB:     db,
		Logger: logger,
	}
}

type ProposalRequest struct {
	Title          string          `json:"title" validate:"required,max=200"`
	Description    string          `json:"description" validate:"omitempty,max=5000"`
	Content        string          `json:"content" validate:"omitempty"`
	ExternalLink   string          `json:"external_link" validate:"omitempty,url"`
	AttachmentPath string          `json:"attachment_path" validate:"omitempty,max=500"`
	Metadata       json.RawMessage `json:"metadata"`
}

type ProposalReviewRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Remarks  string `json:"remarks" validate:"omitempty,max=2000"`
}

// applyPayload copies the request onto the proposal row. Content arriving
// with the legacy embedded metadata marker is split: the marker is stripped
// and its JSON lands in the structured column unless the caller sent
// metadata explicitly.
func applyPayload(p *models.Proposal, req *ProposalRequest) error {
	content, embedded, hadMarker := utils.ExtractMetadata(req.Content)

	meta := req.Metadata
	if len(meta) == 0 && hadMarker {
		meta = embedded
	}
	if len(meta) > 0 && !json.Valid(meta) {
		return utils.NewValidationError("metadata must be a valid JSON object")
	}

	p.Title = req.Title
	p.Description = req.Description
	p.Content = content
	p.ExternalLink = req.ExternalLink
	p.AttachmentPath = req.AttachmentPath
	p.Metadata = datatypes.JSON(meta)
	return nil
}

// SubmitProposal creates the team's proposal, or overwrites it when the
// previous one was rejected. An active (DRAFT or APPROVED) proposal blocks
// the submission.
func (pc *ProposalController) SubmitProposal(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	team, err := teamForStudent(pc.DB, user)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if team.Status != models.TeamStatusApproved {
		return utils.ErrorResponse(c, utils.NewValidationError("Your team must be approved before submitting a proposal"))
	}

	var req ProposalRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("Invalid request body"))
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError(err.Error()))
	}

	var proposal models.Proposal
	existing := true
	if err := pc.DB.Where("team_id = ?", team.ID).First(&proposal).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, utils.NewInternalError("Failed to fetch proposal", err))
		}
		existing = false
	}

	if existing && proposal.Active() {
		return utils.ErrorResponse(c, utils.NewConflictError("An active proposal already exists for your team"))
	}

	if existing {
		// Resubmission: REJECTED -> DRAFT, overwriting in place.
		if err := applyPayload(&proposal, &req); err != nil {
			return utils.ErrorResponse(c, err)
		}
		proposal.Status = models.ProposalStatusDraft
		proposal.Remarks = ""
		proposal.ReviewedByID = nil
		proposal.ReviewedAt = nil
		proposal.SubmissionCount++
		if err := pc.DB.Save(&proposal).Error; err != nil {
			return utils.ErrorResponse(c, utils.NewInternalError("Failed to resubmit proposal", err))
		}
	} else {
		proposal = models.Proposal{
			TeamID:          team.ID,
			Status:          models.ProposalStatusDraft,
			SubmissionCount: 1,
		}
		if err := applyPayload(&proposal, &req); err != nil {
			return utils.ErrorResponse(c, err)
		}
		if err := pc.DB.Create(&proposal).Error; err != nil {
			return utils.ErrorResponse(c, utils.NewInternalError("Failed to create proposal", err))
		}
	}

	metrics.ProposalsSubmitted.Inc()
	utils.LogEvent("proposal_submitted", map[string]interface{}{
		"team_id":     team.ID,
		"proposal_id": proposal.ID,
		"submission":  proposal.SubmissionCount,
	})

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(proposal))
}

// GetMyProposal returns the caller team's proposal with any legacy marker
// stripped from the content.
func (pc *ProposalController) GetMyProposal(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	team, err := teamForStudent(pc.DB, user)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	var proposal models.Proposal
	if err := pc.DB.Where("team_id = ?", team.ID).First(&proposal).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewNotFoundError("Proposal not found"))
	}

	sanitizeLegacyContent(&proposal)
	return c.JSON(utils.SuccessResponse(proposal))
}

// UpdateMyProposal edits a DRAFT in place; on a REJECTED proposal the edit
// counts as a resubmission and moves it back to DRAFT.
func (pc *ProposalController) UpdateMyProposal(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	team, err := teamForStudent(pc.DB, user)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	var proposal models.Proposal
	if err := pc.DB.Where("team_id = ?", team.ID).First(&proposal).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewNotFoundError("Proposal not found"))
	}
	if !proposal.Editable() {
		return utils.ErrorResponse(c, utils.NewConflictError("An approved proposal can no longer be edited"))
	}

	var req ProposalRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("Invalid request body"))
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError(err.Error()))
	}

	resubmitted := proposal.Status == models.ProposalStatusRejected
	if err := applyPayload(&proposal, &req); err != nil {
		return utils.ErrorResponse(c, err)
	}
	if resubmitted {
		proposal.Status = models.ProposalStatusDraft
		proposal.Remarks = ""
		proposal.ReviewedByID = nil
		proposal.ReviewedAt = nil
		proposal.SubmissionCount++
		metrics.ProposalsSubmitted.Inc()
	}

	if err := pc.DB.Save(&proposal).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to update proposal", err))
	}

	return c.JSON(utils.SuccessResponse(proposal))
}

// ListAssignedProposals returns proposals of the calling mentor's teams.
func (pc *ProposalController) ListAssignedProposals(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := pc.DB.Model(&models.Proposal{}).
		Joins("JOIN teams ON teams.id = proposals.team_id").
		Where("teams.mentor_id = ?", user.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("proposals.status = ?", status)
	}

	var total int64
	query.Count(&total)

	var proposals []models.Proposal
	if err := query.Preload("Team").
		Order("proposals.id desc").Offset(offset).Limit(limit).
		Find(&proposals).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to fetch proposals", err))
	}

	for i := range proposals {
		sanitizeLegacyContent(&proposals[i])
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  proposals,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// ReviewProposal lets the assigned mentor approve or reject a DRAFT.
func (pc *ProposalController) ReviewProposal(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	proposalID := utils.ParseUint(c.Params("id"))

	var req ProposalReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("Invalid request body"))
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError(err.Error()))
	}

	var proposal models.Proposal
	if err := pc.DB.Preload("Team").Preload("Team.Leader").
		First(&proposal, proposalID).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewNotFoundError("Proposal not found"))
	}

	if proposal.Team.MentorID != user.ID {
		return utils.ErrorResponse(c, utils.NewAuthorizationError("You are not the assigned mentor of this team"))
	}

	next := models.ProposalStatus(req.Decision)
	if !models.ValidProposalTransition(proposal.Status, next) {
		return utils.ErrorResponse(c, utils.NewConflictError("Only a draft proposal can be decided"))
	}

	proposal.Status = next
	proposal.Remarks = req.Remarks
	proposal.ReviewedByID = utils.Pointer(user.ID)
	proposal.ReviewedAt = utils.Pointer(time.Now())

	if err := pc.DB.Save(&proposal).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to record review", err))
	}

	metrics.ProposalsReviewed.WithLabelValues(req.Decision).Inc()
	utils.LogEvent("proposal_reviewed", map[string]interface{}{
		"proposal_id": proposal.ID,
		"decision":    req.Decision,
		"mentor":      user.ID,
	})

	if err := utils.SendProposalReviewEmail(proposal.Team.Leader.Email, proposal.Title, proposal.Status, proposal.Remarks); err != nil {
		pc.Logger.Printf("review mail to %s failed: %v", proposal.Team.Leader.Email, err)
	}

	return c.JSON(utils.SuccessResponse(proposal))
}

// sanitizeLegacyContent folds a marker left in a legacy row into the
// structured column so callers only ever see plain content.
func sanitizeLegacyContent(p *models.Proposal) {
	plain, embedded, ok := utils.ExtractMetadata(p.Content)
	if !ok {
		return
	}
	p.Content = plain
	if len(p.Metadata) == 0 {
		p.Metadata = datatypes.JSON(embedded)
	}
}
