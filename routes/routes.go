package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	controller "ssrportal/controllers"
	"ssrportal/middleware"
	"ssrportal/models"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints; credential endpoints are rate limited
	auth.Post("/register", middleware.AuthRateLimiter(), controller.Register)
	auth.Post("/login", middleware.AuthRateLimiter(), controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Post("/change-password", controller.ChangePassword)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	teamController := controller.NewTeamController(db, log.New(os.Stdout, "TEAM: ", log.LstdFlags))
	proposalController := controller.NewProposalController(db, log.New(os.Stdout, "PROPOSAL: ", log.LstdFlags))
	projectController := controller.NewProjectController(db, log.New(os.Stdout, "PROJECT: ", log.LstdFlags))
	adminController := controller.NewAdminController(db, log.New(os.Stdout, "ADMIN: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	studentOnly := middleware.RequireRole(models.RoleStudent)
	mentorOnly := middleware.RequireRole(models.RoleMentor)

	// Team routes
	api.Post("/teams", studentOnly, teamController.CreateTeam)
	api.Get("/teams/mine", studentOnly, teamController.GetMyTeam)
	api.Get("/teams", mentorOnly, teamController.ListAssignedTeams)
	api.Post("/teams/:id/decision", mentorOnly, teamController.DecideTeam)

	// Proposal routes
	api.Post("/proposals", studentOnly, proposalController.SubmitProposal)
	api.Get("/proposals/mine", studentOnly, proposalController.GetMyProposal)
	api.Put("/proposals/mine", studentOnly, proposalController.UpdateMyProposal)
	api.Get("/proposals", mentorOnly, proposalController.ListAssignedProposals)
	api.Post("/proposals/:id/review", mentorOnly, proposalController.ReviewProposal)

	// Project routes
	api.Post("/projects", studentOnly, projectController.CreateProject)
	api.Get("/projects/mine", studentOnly, projectController.GetMyProject)
	api.Put("/projects/mine", studentOnly, projectController.UpdateMyProject)

	// Attachment upload
	api.Post("/uploads", studentOnly, controller.UploadFile)

	// Admin routes
	admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.Get("/users", adminController.ListUsers)
	admin.Get("/teams", adminController.ListTeams)
	admin.Get("/export/teams", adminController.ExportTeams)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
