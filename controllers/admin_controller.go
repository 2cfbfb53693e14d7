package controller

import (
	"encoding/csv"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ssrportal/metrics"
	"ssrportal/models"
	"ssrportal/utils"
)

type AdminController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewAdminController(db *gorm.DB, logger *log.Logger) *AdminController {
	return &AdminController{
		DB:     db,
		Logger: logger,
	}
}

// exportHeader is the fixed CSV column order of the team export.
var exportHeader = []string{
	"teamCode", "teamStatus", "mentorName", "mentorEmail",
	"memberCount", "members", "memberEmails",
	"proposalCount", "latestProposalStatus",
	"projectTitle", "projectDescription",
	"createdAt", "updatedAt",
}

// ListUsers returns a paginated user listing with optional role and search
// filters.
func (ac *AdminController) ListUsers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := ac.DB.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("email LIKE ? OR name LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	query.Count(&total)

	var users []models.User
	if err := query.Order("id desc").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to fetch users", err))
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  users,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// ListTeams returns a paginated team summary across all batches.
func (ac *AdminController) ListTeams(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := ac.DB.Model(&models.Team{}).Preload("Leader").Preload("Mentor")
	if search := c.Query("search"); search != "" {
		query = query.Where("team_number LIKE ? OR title LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if batch := c.Query("batch"); batch != "" {
		query = query.Where("batch = ?", batch)
	}

	var total int64
	query.Count(&total)

	var teams []models.Team
	if err := query.Order("id desc").Offset(offset).Limit(limit).Find(&teams).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to fetch teams", err))
	}

	type TeamSummary struct {
		ID          uint              `json:"id"`
		TeamNumber  string            `json:"team_number"`
		Title       string            `json:"title"`
		Batch       string            `json:"batch"`
		Status      models.TeamStatus `json:"status"`
		LeaderName  string            `json:"leader_name"`
		MentorName  string            `json:"mentor_name"`
		MemberCount int64             `json:"member_count"`
	}

	summaries := make([]TeamSummary, 0, len(teams))
	for _, team := range teams {
		var memberCount int64
		ac.DB.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&memberCount)

		summaries = append(summaries, TeamSummary{
			ID:          team.ID,
			TeamNumber:  team.TeamNumber,
			Title:       team.Title,
			Batch:       team.Batch,
			Status:      team.Status,
			LeaderName:  team.Leader.Name,
			MentorName:  team.Mentor.Name,
			MemberCount: memberCount,
		})
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  summaries,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// ExportTeams flattens every team with its mentor, members, proposal and
// project into one CSV row. The dataset is assumed to fit in memory.
func (ac *AdminController) ExportTeams(c *fiber.Ctx) error {
	var teams []models.Team
	if err := ac.DB.
		Preload("Members").Preload("Mentor").
		Preload("Proposal").Preload("Project").
		Order("team_number").Find(&teams).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to fetch teams", err))
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", "attachment; filename=teams_export_"+time.Now().Format("20060102")+".csv")

	writer := csv.NewWriter(c)
	defer writer.Flush()

	if err := writer.Write(exportHeader); err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to generate CSV", err))
	}

	for _, team := range teams {
		names := make([]string, 0, len(team.Members))
		emails := make([]string, 0, len(team.Members))
		for _, m := range team.Members {
			names = append(names, m.Name)
			emails = append(emails, m.Email)
		}

		proposalCount := "0"
		proposalStatus := ""
		if team.Proposal != nil {
			proposalCount = strconv.Itoa(team.Proposal.SubmissionCount)
			proposalStatus = string(team.Proposal.Status)
		}

		projectTitle := ""
		projectDescription := ""
		if team.Project != nil {
			projectTitle = team.Project.Title
			projectDescription = team.Project.Description
		}

		record := []string{
			team.TeamNumber,
			string(team.Status),
			team.Mentor.Name,
			team.Mentor.Email,
			strconv.Itoa(len(team.Members)),
			strings.Join(names, ";"),
			strings.Join(emails, ";"),
			proposalCount,
			proposalStatus,
			projectTitle,
			projectDescription,
			team.CreatedAt.UTC().Format(time.RFC3339),
			team.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return utils.ErrorResponse(c, utils.NewInternalError("Failed to generate CSV", err))
		}
	}

	metrics.TeamExports.Inc()
	utils.LogEvent("teams_exported", map[string]interface{}{
		"count": len(teams),
	})

	return nil
}
