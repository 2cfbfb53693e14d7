package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ssrportal/models"
	"ssrportal/utils"
)

type ProjectController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewProjectController(db *gorm.DB, logger *log.Logger) *ProjectController {
	return &ProjectController{
		DB:     db,
		Logger: logger,
	}
}

type ProjectRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Theme       string `json:"theme" validate:"omitempty,max=200"`
	Milestones  string `json:"milestones" validate:"omitempty,max=5000"`
	Location    string `json:"location" validate:"omitempty,max=200"`
}

// CreateProject attaches the project record to the caller's approved team.
func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	team, err := teamForStudent(pc.DB, user)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if team.Status != models.TeamStatusApproved {
		return utils.ErrorResponse(c, utils.NewValidationError("Your team must be approved before creating a project"))
	}

	var existing models.Project
	if err := pc.DB.Where("team_id = ?", team.ID).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, utils.NewConflictError("A project already exists for your team"))
	}

	var req ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("Invalid request body"))
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError(err.Error()))
	}

	project := models.Project{
		TeamID:      team.ID,
		Title:       req.Title,
		Description: req.Description,
		Theme:       req.Theme,
		Milestones:  req.Milestones,
		Location:    req.Location,
	}

	if err := pc.DB.Create(&project).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to create project", err))
	}

	utils.LogEvent("project_created", map[string]interface{}{
		"team_id":    team.ID,
		"project_id": project.ID,
	})

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(project))
}

func (pc *ProjectController) GetMyProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	team, err := teamForStudent(pc.DB, user)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	var project models.Project
	if err := pc.DB.Where("team_id = ?", team.ID).First(&project).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewNotFoundError("Project not found"))
	}

	return c.JSON(utils.SuccessResponse(project))
}

func (pc *ProjectController) UpdateMyProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	team, err := teamForStudent(pc.DB, user)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	var project models.Project
	if err := pc.DB.Where("team_id = ?", team.ID).First(&project).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewNotFoundError("Project not found"))
	}

	var req ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("Invalid request body"))
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError(err.Error()))
	}

	project.Title = req.Title
	project.Description = req.Description
	project.Theme = req.Theme
	project.Milestones = req.Milestones
	project.Location = req.Location

	if err := pc.DB.Save(&project).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to update project", err))
	}

	return c.JSON(utils.SuccessResponse(project))
}
