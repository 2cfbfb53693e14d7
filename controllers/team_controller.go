package controller

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ssrportal/config"
	"ssrportal/metrics"
	"ssrportal/models"
	"ssrportal/utils"
)

type TeamController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTeamController(db *gorm.DB, logger *log.Logger) *TeamController {
	return &TeamController{
		DB:     db,
		Logger: logger,
	}
}

type MemberInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
	Roll  string `json:"roll" validate:"required,max=30"`
}

type CreateTeamRequest struct {
	Title    string        `json:"title" validate:"required,max=200"`
	Pillar   string        `json:"pillar" validate:"required,max=100"`
	Batch    string        `json:"batch" validate:"required,max=30"`
	MentorID uint          `json:"mentor_id" validate:"required"`
	Members  []MemberInput `json:"members" validate:"required,min=3,max=5,dive"`
}

type TeamDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Reason   string `json:"reason" validate:"omitempty,max=1000"`
}

// CreateTeam registers a team for the calling student: leader is the caller,
// members come denormalized in the payload, and the team number is the first
// unused slot in the batch's configured ranges.
func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("Invalid request body"))
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError(err.Error()))
	}

	if !utils.KnownBatch(req.Batch) {
		return utils.ErrorResponse(c, utils.NewValidationError("Unknown batch: "+req.Batch))
	}

	// No duplicate member identity within the team.
	seenEmail := make(map[string]struct{}, len(req.Members))
	seenRoll := make(map[string]struct{}, len(req.Members))
	seenName := make(map[string]struct{}, len(req.Members))
	for _, m := range req.Members {
		email := strings.ToLower(strings.TrimSpace(m.Email))
		roll := strings.ToLower(strings.TrimSpace(m.Roll))
		name := strings.ToLower(strings.TrimSpace(m.Name))
		if _, ok := seenEmail[email]; ok {
			return utils.ErrorResponse(c, utils.NewValidationError("Duplicate member email: "+m.Email))
		}
		if _, ok := seenRoll[roll]; ok {
			return utils.ErrorResponse(c, utils.NewValidationError("Duplicate member roll: "+m.Roll))
		}
		if _, ok := seenName[name]; ok {
			return utils.ErrorResponse(c, utils.NewValidationError("Duplicate member name: "+m.Name))
		}
		seenEmail[email] = struct{}{}
		seenRoll[roll] = struct{}{}
		seenName[name] = struct{}{}
	}

	var mentor models.User
	if err := tc.DB.Where("id = ? AND role = ?", req.MentorID, models.RoleMentor).First(&mentor).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("Mentor not found"))
	}

	var existingTeam models.Team
	if err := tc.DB.Where("leader_id = ?", user.ID).First(&existingTeam).Error; err == nil {
		return utils.ErrorResponse(c, utils.NewConflictError("You already lead a team"))
	}

	var team models.Team
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		number, err := utils.NextTeamNumber(tx, req.Batch, config.AppConfig.TeamNumberYear)
		if err != nil {
			return err
		}

		team = models.Team{
			TeamNumber: number,
			Title:      req.Title,
			Pillar:     req.Pillar,
			Batch:      req.Batch,
			Status:     models.TeamStatusPending,
			LeaderID:   user.ID,
			MentorID:   mentor.ID,
		}
		if err := tx.Create(&team).Error; err != nil {
			return err
		}

		for _, m := range req.Members {
			member := models.TeamMember{
				TeamID: team.ID,
				Name:   strings.TrimSpace(m.Name),
				Email:  strings.ToLower(strings.TrimSpace(m.Email)),
				Roll:   strings.TrimSpace(m.Roll),
			}
			// Link the member to a registered account when one exists.
			var linked models.User
			if err := tx.Where("email = ?", member.Email).First(&linked).Error; err == nil {
				member.UserID = &linked.ID
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrorResponse(c, utils.NewConflictError("Team number already taken, please retry"))
		}
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return utils.ErrorResponse(c, appErr)
		}
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to create team", err))
	}

	metrics.TeamsCreated.Inc()
	utils.LogEvent("team_created", map[string]interface{}{
		"team_id":     team.ID,
		"team_number": team.TeamNumber,
		"batch":       team.Batch,
	})

	tc.DB.Preload("Members").Preload("Mentor").First(&team, team.ID)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(team))
}

// GetMyTeam returns the caller's team, whether they lead it or appear as a
// linked member.
func (tc *TeamController) GetMyTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	team, err := teamForStudent(tc.DB, user)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	if err := tc.DB.
		Preload("Members").Preload("Mentor").Preload("Leader").
		Preload("Proposal").Preload("Project").
		First(team, team.ID).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to load team", err))
	}

	return c.JSON(utils.SuccessResponse(team))
}

// ListAssignedTeams returns the teams assigned to the calling mentor.
func (tc *TeamController) ListAssignedTeams(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := tc.DB.Model(&models.Team{}).Where("mentor_id = ?", user.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var teams []models.Team
	if err := query.Preload("Members").Preload("Leader").
		Order("id desc").Offset(offset).Limit(limit).Find(&teams).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to fetch teams", err))
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  teams,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// DecideTeam lets the assigned mentor approve or reject a PENDING team.
func (tc *TeamController) DecideTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))

	var req TeamDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("Invalid request body"))
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError(err.Error()))
	}
	if req.Decision == string(models.TeamStatusRejected) && strings.TrimSpace(req.Reason) == "" {
		return utils.ErrorResponse(c, utils.NewValidationError("A reason is required when rejecting a team"))
	}

	var team models.Team
	if err := tc.DB.Preload("Leader").First(&team, teamID).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewNotFoundError("Team not found"))
	}

	if team.MentorID != user.ID {
		return utils.ErrorResponse(c, utils.NewAuthorizationError("You are not the assigned mentor of this team"))
	}
	if team.Status != models.TeamStatusPending {
		return utils.ErrorResponse(c, utils.NewNotFoundError("No pending team to decide"))
	}

	team.Status = models.TeamStatus(req.Decision)
	team.DecidedAt = utils.Pointer(time.Now())
	if team.Status == models.TeamStatusRejected {
		team.RejectReason = req.Reason
	}

	if err := tc.DB.Save(&team).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to record decision", err))
	}

	metrics.TeamsDecided.WithLabelValues(req.Decision).Inc()
	utils.LogEvent("team_decided", map[string]interface{}{
		"team_id":  team.ID,
		"decision": req.Decision,
		"mentor":   user.ID,
	})

	if err := utils.SendTeamDecisionEmail(team.Leader.Email, team.TeamNumber, team.Status, team.RejectReason); err != nil {
		tc.Logger.Printf("decision mail to %s failed: %v", team.Leader.Email, err)
	}

	return c.JSON(utils.SuccessResponse(team))
}

// teamForStudent resolves the team a student belongs to, by leadership or by
// a member row carrying their account or email.
func teamForStudent(db *gorm.DB, user *models.User) (*models.Team, error) {
	var team models.Team
	if err := db.Where("leader_id = ?", user.ID).First(&team).Error; err == nil {
		return &team, nil
	}

	var member models.TeamMember
	if err := db.Where("user_id = ? OR email = ?", user.ID, strings.ToLower(user.Email)).
		First(&member).Error; err != nil {
		return nil, utils.NewNotFoundError("You do not belong to a team")
	}
	if err := db.First(&team, member.TeamID).Error; err != nil {
		return nil, utils.NewNotFoundError("You do not belong to a team")
	}
	return &team, nil
}
