package controller_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ssrportal/config"
	"ssrportal/models"
	"ssrportal/routes"
	"ssrportal/utils"
)

const testPassword = "password-123"

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	config.AppConfig = config.Config{
		Environment:       "test",
		JWTSecret:         "test-secret",
		AdminEmailDomain:  "admin.ssr.edu",
		MentorEmailDomain: "staff.ssr.edu",
		TeamNumberYear:    "25",
		UploadDir:         t.TempDir(),
		MaxUploadBytes:    1 << 20,
		RateLimitAuthMax:  100,
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.MigrateDB(db))
	config.DB = db

	app := fiber.New()
	routes.SetupRoutes(app, db)
	return app, db
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.Split(email, "@")[0],
		Role:         role,
		IsActive:     true,
		IsRegistered: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	access, _, _, err := utils.GenerateJWTToken(user)
	require.NoError(t, err)
	return access
}

func do(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func data(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := decode(t, resp)
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "body has no data object: %v", body)
	return d
}

func members(n int) []map[string]string {
	out := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]string{
			"name":  fmt.Sprintf("Member %d", i+1),
			"email": fmt.Sprintf("member%d@students.ssr.edu", i+1),
			"roll":  fmt.Sprintf("21CS%03d", i+1),
		})
	}
	return out
}

func teamPayload(mentorID uint, memberCount int) map[string]interface{} {
	return map[string]interface{}{
		"title":     "Smart Irrigation",
		"pillar":    "Sustainability",
		"batch":     "CSE_D",
		"mentor_id": mentorID,
		"members":   members(memberCount),
	}
}

func TestCreateTeam(t *testing.T) {
	app, db := setupApp(t)
	leader := createUser(t, db, "lead@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "prof@staff.ssr.edu", models.RoleMentor)
	token := tokenFor(t, leader)

	resp := do(t, app, "POST", "/api/v1/teams", token, teamPayload(mentor.ID, 3))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	team := data(t, resp)
	assert.Equal(t, "SSR 25-078", team["team_number"])
	assert.Equal(t, "PENDING", team["status"])
	assert.Len(t, team["members"], 3)

	// The leader can fetch it back.
	resp = do(t, app, "GET", "/api/v1/teams/mine", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "SSR 25-078", data(t, resp)["team_number"])

	// A second team in the same batch takes the next slot.
	leader2 := createUser(t, db, "lead2@students.ssr.edu", models.RoleStudent)
	payload := teamPayload(mentor.ID, 3)
	payload["members"] = []map[string]string{
		{"name": "Other A", "email": "oa@students.ssr.edu", "roll": "21CS201"},
		{"name": "Other B", "email": "ob@students.ssr.edu", "roll": "21CS202"},
		{"name": "Other C", "email": "oc@students.ssr.edu", "roll": "21CS203"},
	}
	resp = do(t, app, "POST", "/api/v1/teams", tokenFor(t, leader2), payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "SSR 25-079", data(t, resp)["team_number"])
}

func TestCreateTeamRejectsBadMemberLists(t *testing.T) {
	app, db := setupApp(t)
	leader := createUser(t, db, "lead@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "prof@staff.ssr.edu", models.RoleMentor)
	token := tokenFor(t, leader)

	// Too few members.
	resp := do(t, app, "POST", "/api/v1/teams", token, teamPayload(mentor.ID, 2))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Too many members.
	resp = do(t, app, "POST", "/api/v1/teams", token, teamPayload(mentor.ID, 6))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Duplicate member email.
	payload := teamPayload(mentor.ID, 3)
	payload["members"] = []map[string]string{
		{"name": "A", "email": "same@students.ssr.edu", "roll": "21CS001"},
		{"name": "B", "email": "SAME@students.ssr.edu", "roll": "21CS002"},
		{"name": "C", "email": "c@students.ssr.edu", "roll": "21CS003"},
	}
	resp = do(t, app, "POST", "/api/v1/teams", token, payload)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Unknown batch.
	payload = teamPayload(mentor.ID, 3)
	payload["batch"] = "CSE_Z"
	resp = do(t, app, "POST", "/api/v1/teams", token, payload)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Mentor must actually hold the mentor role.
	payload = teamPayload(leader.ID, 3)
	resp = do(t, app, "POST", "/api/v1/teams", token, payload)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Nothing was persisted by any of the failed attempts.
	var count int64
	db.Model(&models.Team{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.TeamMember{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateTeamDuplicateNumberRollsBack(t *testing.T) {
	app, db := setupApp(t)
	leader := createUser(t, db, "lead@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "prof@staff.ssr.edu", models.RoleMentor)

	// A row already holds CSE_D's first code under a different batch, so the
	// allocator (which scans per batch) proposes it again and the unique
	// index has to catch the collision.
	require.NoError(t, db.Create(&models.Team{
		TeamNumber: "SSR 25-078",
		Title:      "squatter", Pillar: "p", Batch: "CSE_A",
		LeaderID: mentor.ID, MentorID: mentor.ID,
	}).Error)

	resp := do(t, app, "POST", "/api/v1/teams", tokenFor(t, leader), teamPayload(mentor.ID, 3))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// The transaction rolled back: only the pre-existing team remains and no
	// member rows survived.
	var teams, memberRows int64
	db.Model(&models.Team{}).Count(&teams)
	assert.EqualValues(t, 1, teams)
	db.Model(&models.TeamMember{}).Count(&memberRows)
	assert.Zero(t, memberRows)
}

func TestCreateTeamLeaderConflict(t *testing.T) {
	app, db := setupApp(t)
	leader := createUser(t, db, "lead@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "prof@staff.ssr.edu", models.RoleMentor)
	token := tokenFor(t, leader)

	resp := do(t, app, "POST", "/api/v1/teams", token, teamPayload(mentor.ID, 3))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	payload := teamPayload(mentor.ID, 3)
	payload["members"] = []map[string]string{
		{"name": "X", "email": "x@students.ssr.edu", "roll": "21CS301"},
		{"name": "Y", "email": "y@students.ssr.edu", "roll": "21CS302"},
		{"name": "Z", "email": "z@students.ssr.edu", "roll": "21CS303"},
	}
	resp = do(t, app, "POST", "/api/v1/teams", token, payload)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestRoleGates(t *testing.T) {
	app, db := setupApp(t)
	student := createUser(t, db, "s@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "m@staff.ssr.edu", models.RoleMentor)

	// Mentors cannot create teams.
	resp := do(t, app, "POST", "/api/v1/teams", tokenFor(t, mentor), teamPayload(mentor.ID, 3))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Students cannot list assigned teams.
	resp = do(t, app, "GET", "/api/v1/teams", tokenFor(t, student), nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Students cannot reach admin routes.
	resp = do(t, app, "GET", "/api/v1/admin/export/teams", tokenFor(t, student), nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// No token at all.
	resp = do(t, app, "GET", "/api/v1/teams/mine", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestDecideTeam(t *testing.T) {
	app, db := setupApp(t)
	leader := createUser(t, db, "lead@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "prof@staff.ssr.edu", models.RoleMentor)
	other := createUser(t, db, "other@staff.ssr.edu", models.RoleMentor)

	resp := do(t, app, "POST", "/api/v1/teams", tokenFor(t, leader), teamPayload(mentor.ID, 3))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	teamID := uint(data(t, resp)["ID"].(float64))
	decidePath := fmt.Sprintf("/api/v1/teams/%d/decision", teamID)

	// Only the assigned mentor may decide.
	resp = do(t, app, "POST", decidePath, tokenFor(t, other),
		map[string]string{"decision": "APPROVED"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var team models.Team
	require.NoError(t, db.First(&team, teamID).Error)
	assert.Equal(t, models.TeamStatusPending, team.Status)

	// Rejection requires a reason.
	resp = do(t, app, "POST", decidePath, tokenFor(t, mentor),
		map[string]string{"decision": "REJECTED"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Decision value is constrained.
	resp = do(t, app, "POST", decidePath, tokenFor(t, mentor),
		map[string]string{"decision": "MAYBE"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, "POST", decidePath, tokenFor(t, mentor),
		map[string]string{"decision": "REJECTED", "reason": "Scope too broad"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NoError(t, db.First(&team, teamID).Error)
	assert.Equal(t, models.TeamStatusRejected, team.Status)
	assert.Equal(t, "Scope too broad", team.RejectReason)
	assert.NotNil(t, team.DecidedAt)

	// A decided team cannot be decided again.
	resp = do(t, app, "POST", decidePath, tokenFor(t, mentor),
		map[string]string{"decision": "APPROVED"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// A malformed id resolves to no team.
	resp = do(t, app, "POST", "/api/v1/teams/abc/decision", tokenFor(t, mentor),
		map[string]string{"decision": "APPROVED"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListAssignedTeams(t *testing.T) {
	app, db := setupApp(t)
	leader := createUser(t, db, "lead@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "prof@staff.ssr.edu", models.RoleMentor)
	other := createUser(t, db, "other@staff.ssr.edu", models.RoleMentor)

	resp := do(t, app, "POST", "/api/v1/teams", tokenFor(t, leader), teamPayload(mentor.ID, 3))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = do(t, app, "GET", "/api/v1/teams", tokenFor(t, mentor), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.EqualValues(t, 1, body["total"])

	// An unrelated mentor sees nothing.
	resp = do(t, app, "GET", "/api/v1/teams", tokenFor(t, other), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decode(t, resp)
	assert.EqualValues(t, 0, body["total"])
}

// approvedTeam creates a team over the API and approves it as its mentor.
func approvedTeam(t *testing.T, app *fiber.App, leader, mentor *models.User) uint {
	t.Helper()

	resp := do(t, app, "POST", "/api/v1/teams", tokenFor(t, leader), teamPayload(mentor.ID, 3))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	teamID := uint(data(t, resp)["ID"].(float64))

	resp = do(t, app, "POST", fmt.Sprintf("/api/v1/teams/%d/decision", teamID),
		tokenFor(t, mentor), map[string]string{"decision": "APPROVED"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return teamID
}

func proposalPayload(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":         title,
		"description":   "short pitch",
		"content":       "full plan",
		"external_link": "https://example.edu/plan",
		"metadata":      map[string]string{"location": "Lab 3"},
	}
}

func TestProposalLifecycle(t *testing.T) {
	app, db := setupApp(t)
	leader := createUser(t, db, "lead@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "prof@staff.ssr.edu", models.RoleMentor)
	other := createUser(t, db, "other@staff.ssr.edu", models.RoleMentor)
	studentToken := tokenFor(t, leader)

	// No proposal before the team is approved.
	resp := do(t, app, "POST", "/api/v1/teams", studentToken, teamPayload(mentor.ID, 3))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	teamID := uint(data(t, resp)["ID"].(float64))

	resp = do(t, app, "POST", "/api/v1/proposals", studentToken, proposalPayload("v1"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, "POST", fmt.Sprintf("/api/v1/teams/%d/decision", teamID),
		tokenFor(t, mentor), map[string]string{"decision": "APPROVED"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// First submission lands in DRAFT.
	resp = do(t, app, "POST", "/api/v1/proposals", studentToken, proposalPayload("v1"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	proposal := data(t, resp)
	assert.Equal(t, "DRAFT", proposal["status"])
	assert.EqualValues(t, 1, proposal["submission_count"])
	proposalID := uint(proposal["ID"].(float64))
	reviewPath := fmt.Sprintf("/api/v1/proposals/%d/review", proposalID)

	// A draft blocks another submission.
	resp = do(t, app, "POST", "/api/v1/proposals", studentToken, proposalPayload("v1 again"))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// A draft can still be edited in place.
	resp = do(t, app, "PUT", "/api/v1/proposals/mine", studentToken, proposalPayload("v1 edited"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	edited := data(t, resp)
	assert.Equal(t, "v1 edited", edited["title"])
	assert.EqualValues(t, 1, edited["submission_count"])

	// Only the assigned mentor may review.
	resp = do(t, app, "POST", reviewPath, tokenFor(t, other),
		map[string]string{"decision": "APPROVED"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// A malformed id resolves to no proposal.
	resp = do(t, app, "POST", "/api/v1/proposals/abc/review", tokenFor(t, mentor),
		map[string]string{"decision": "APPROVED"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// Rejection with remarks.
	resp = do(t, app, "POST", reviewPath, tokenFor(t, mentor),
		map[string]string{"decision": "REJECTED", "remarks": "needs a timeline"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "REJECTED", data(t, resp)["status"])

	// Resubmission overwrites in place and returns to DRAFT.
	resp = do(t, app, "POST", "/api/v1/proposals", studentToken, proposalPayload("v2"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resubmitted := data(t, resp)
	assert.Equal(t, "DRAFT", resubmitted["status"])
	assert.EqualValues(t, 2, resubmitted["submission_count"])
	assert.Equal(t, "v2", resubmitted["title"])
	assert.EqualValues(t, proposalID, uint(resubmitted["ID"].(float64)))
	_, hasRemarks := resubmitted["remarks"]
	assert.False(t, hasRemarks, "remarks must be cleared on resubmission")

	// Approval is terminal.
	resp = do(t, app, "POST", reviewPath, tokenFor(t, mentor),
		map[string]string{"decision": "APPROVED", "remarks": "solid"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "APPROVED", data(t, resp)["status"])

	resp = do(t, app, "POST", reviewPath, tokenFor(t, mentor),
		map[string]string{"decision": "REJECTED", "remarks": "changed my mind"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = do(t, app, "PUT", "/api/v1/proposals/mine", studentToken, proposalPayload("v3"))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = do(t, app, "POST", "/api/v1/proposals", studentToken, proposalPayload("v3"))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestProposalLegacyMetadataMarker(t *testing.T) {
	app, db := setupApp(t)
	leader := createUser(t, db, "lead@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "prof@staff.ssr.edu", models.RoleMentor)
	approvedTeam(t, app, leader, mentor)

	payload := map[string]interface{}{
		"title":   "legacy",
		"content": "plan body\n\n<!-- METADATA:{\"location\":\"Block B\"} -->",
	}
	resp := do(t, app, "POST", "/api/v1/proposals", tokenFor(t, leader), payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	proposal := data(t, resp)
	assert.Equal(t, "plan body", proposal["content"])
	meta, ok := proposal["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Block B", meta["location"])
}

func TestProjectLifecycle(t *testing.T) {
	app, db := setupApp(t)
	leader := createUser(t, db, "lead@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "prof@staff.ssr.edu", models.RoleMentor)
	token := tokenFor(t, leader)

	project := map[string]interface{}{
		"title":       "Irrigation Controller",
		"description": "moisture driven valve control",
		"theme":       "AgriTech",
		"location":    "North Campus",
	}

	// Requires an approved team.
	resp := do(t, app, "POST", "/api/v1/teams", token, teamPayload(mentor.ID, 3))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	teamID := uint(data(t, resp)["ID"].(float64))

	resp = do(t, app, "POST", "/api/v1/projects", token, project)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, "POST", fmt.Sprintf("/api/v1/teams/%d/decision", teamID),
		tokenFor(t, mentor), map[string]string{"decision": "APPROVED"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = do(t, app, "POST", "/api/v1/projects", token, project)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// One project per team.
	resp = do(t, app, "POST", "/api/v1/projects", token, project)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	project["title"] = "Irrigation Controller v2"
	resp = do(t, app, "PUT", "/api/v1/projects/mine", token, project)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = do(t, app, "GET", "/api/v1/projects/mine", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Irrigation Controller v2", data(t, resp)["title"])
}

func TestMemberCanReadTeamResources(t *testing.T) {
	app, db := setupApp(t)
	leader := createUser(t, db, "lead@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "prof@staff.ssr.edu", models.RoleMentor)
	// Registered before the team exists, matched by email at creation time.
	member := createUser(t, db, "member1@students.ssr.edu", models.RoleStudent)

	approvedTeam(t, app, leader, mentor)

	resp := do(t, app, "GET", "/api/v1/teams/mine", tokenFor(t, member), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "SSR 25-078", data(t, resp)["team_number"])

	// Someone with no team gets a 404.
	outsider := createUser(t, db, "alone@students.ssr.edu", models.RoleStudent)
	resp = do(t, app, "GET", "/api/v1/teams/mine", tokenFor(t, outsider), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdminExportTeams(t *testing.T) {
	app, db := setupApp(t)
	leader := createUser(t, db, "lead@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "prof@staff.ssr.edu", models.RoleMentor)
	admin := createUser(t, db, "dean@admin.ssr.edu", models.RoleAdmin)
	token := tokenFor(t, leader)

	approvedTeam(t, app, leader, mentor)
	resp := do(t, app, "POST", "/api/v1/proposals", token, proposalPayload("plan"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp = do(t, app, "POST", "/api/v1/projects", token, map[string]interface{}{
		"title":       "Irrigation Controller",
		"description": "valve control",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = do(t, app, "GET", "/api/v1/admin/export/teams", tokenFor(t, admin), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{
		"teamCode", "teamStatus", "mentorName", "mentorEmail",
		"memberCount", "members", "memberEmails",
		"proposalCount", "latestProposalStatus",
		"projectTitle", "projectDescription",
		"createdAt", "updatedAt",
	}, records[0])

	row := records[1]
	assert.Equal(t, "SSR 25-078", row[0])
	assert.Equal(t, "APPROVED", row[1])
	assert.Equal(t, mentor.Email, row[3])
	assert.Equal(t, "3", row[4])
	assert.Equal(t, 3, len(strings.Split(row[6], ";")))
	assert.Equal(t, "1", row[7])
	assert.Equal(t, "DRAFT", row[8])
	assert.Equal(t, "Irrigation Controller", row[9])
}

func TestAdminListUsersAndTeams(t *testing.T) {
	app, db := setupApp(t)
	leader := createUser(t, db, "lead@students.ssr.edu", models.RoleStudent)
	mentor := createUser(t, db, "prof@staff.ssr.edu", models.RoleMentor)
	admin := createUser(t, db, "dean@admin.ssr.edu", models.RoleAdmin)

	resp := do(t, app, "POST", "/api/v1/teams", tokenFor(t, leader), teamPayload(mentor.ID, 3))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = do(t, app, "GET", "/api/v1/admin/users?role=MENTOR", tokenFor(t, admin), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode(t, resp)["total"])

	resp = do(t, app, "GET", "/api/v1/admin/teams?batch=CSE_D", tokenFor(t, admin), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.EqualValues(t, 1, body["total"])
	rows := body["data"].([]interface{})
	require.Len(t, rows, 1)
	summary := rows[0].(map[string]interface{})
	assert.Equal(t, "SSR 25-078", summary["team_number"])
	assert.EqualValues(t, 3, summary["member_count"])
}

func TestRegisterAndLogin(t *testing.T) {
	app, _ := setupApp(t)

	register := map[string]string{
		"email":    "alice@students.ssr.edu",
		"password": "longenough1",
		"name":     "Alice",
		"roll":     "21CS042",
		"batch":    "CSE_D",
	}
	resp := do(t, app, "POST", "/auth/register", "", register)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decode(t, resp)
	assert.NotEmpty(t, body["access_token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "STUDENT", user["role"])

	// A staff-domain address registers as a mentor.
	resp = do(t, app, "POST", "/auth/register", "", map[string]string{
		"email":    "prof@staff.ssr.edu",
		"password": "longenough1",
		"name":     "Prof",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	user = decode(t, resp)["user"].(map[string]interface{})
	assert.Equal(t, "MENTOR", user["role"])

	// Duplicate registration.
	resp = do(t, app, "POST", "/auth/register", "", register)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// Wrong password.
	resp = do(t, app, "POST", "/auth/login", "", map[string]string{
		"email":    "alice@students.ssr.edu",
		"password": "wrong-password",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = do(t, app, "POST", "/auth/login", "", map[string]string{
		"email":    "alice@students.ssr.edu",
		"password": "longenough1",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token := decode(t, resp)["access_token"].(string)

	resp = do(t, app, "GET", "/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@students.ssr.edu", data(t, resp)["email"])
}

func TestRegisterNormalizesEmailCase(t *testing.T) {
	app, _ := setupApp(t)

	resp := do(t, app, "POST", "/auth/register", "", map[string]string{
		"email":    " Alice@Students.SSR.edu ",
		"password": "longenough1",
		"name":     "Alice",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	user := decode(t, resp)["user"].(map[string]interface{})
	assert.Equal(t, "alice@students.ssr.edu", user["email"])

	// A differently-cased registration is the same account.
	resp = do(t, app, "POST", "/auth/register", "", map[string]string{
		"email":    "alice@students.ssr.edu",
		"password": "longenough1",
		"name":     "Alice Again",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// Login matches regardless of the case typed.
	resp = do(t, app, "POST", "/auth/login", "", map[string]string{
		"email":    "ALICE@students.ssr.edu",
		"password": "longenough1",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The staff domain still derives MENTOR after normalization.
	resp = do(t, app, "POST", "/auth/register", "", map[string]string{
		"email":    "Prof@STAFF.ssr.edu",
		"password": "longenough1",
		"name":     "Prof",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	user = decode(t, resp)["user"].(map[string]interface{})
	assert.Equal(t, "MENTOR", user["role"])
}

func TestChangePasswordRevokesTokens(t *testing.T) {
	app, db := setupApp(t)
	user := createUser(t, db, "alice@students.ssr.edu", models.RoleStudent)
	oldToken := tokenFor(t, user)

	resp := do(t, app, "POST", "/auth/change-password", oldToken, map[string]string{
		"current_password": testPassword,
		"new_password":     "brand-new-pass",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The pre-change token carries a stale version.
	resp = do(t, app, "GET", "/auth/me", oldToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = do(t, app, "POST", "/auth/login", "", map[string]string{
		"email":    "alice@students.ssr.edu",
		"password": "brand-new-pass",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUploadFile(t *testing.T) {
	app, db := setupApp(t)
	student := createUser(t, db, "s@students.ssr.edu", models.RoleStudent)
	token := tokenFor(t, student)

	upload := func(filename, contentType string, content []byte) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		h.Set("Content-Type", contentType)
		fw, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest("POST", "/api/v1/uploads", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	resp := upload("proposal v1.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	result := data(t, resp)
	filename := result["filename"].(string)
	assert.True(t, strings.HasSuffix(filename, "-proposal_v1.pdf"), "got %s", filename)
	assert.Equal(t, "/uploads/"+filename, result["path"])

	// Disallowed extension.
	resp = upload("payload.exe", "application/octet-stream", []byte("MZ"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Allowed extension but disallowed declared content type.
	resp = upload("page.pdf", "text/html", []byte("<html>"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// A charset suffix on the declared type is tolerated.
	resp = upload("chart.png", "image/png; charset=binary", []byte{0x89, 'P', 'N', 'G'})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// Oversized file.
	resp = upload("big.pdf", "application/pdf", bytes.Repeat([]byte("a"), int(config.AppConfig.MaxUploadBytes)+1))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Missing file part.
	req := httptest.NewRequest("POST", "/api/v1/uploads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp2, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp2.StatusCode)
}
