package controller

import (
	"strings"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"ssrportal/config"
	"ssrportal/models"
	"ssrportal/utils"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=100"`
	Roll     string `json:"roll" validate:"omitempty,max=30"`
	Batch    string `json:"batch" validate:"omitempty,max=30"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	SessionID    string       `json:"session_id,omitempty"`
	User         *models.User `json:"user"`
}

func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("Invalid request body"))
	}

	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError(err.Error()))
	}
	// Emails are stored lowercased; the unique index and role derivation
	// both key off the normalized form.
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := checkmail.ValidateFormat(req.Email); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("email must be a valid address"))
	}

	// Check if user already exists
	var existingUser models.User
	if err := config.DB.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		return utils.ErrorResponse(c, utils.NewConflictError("Email already registered"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to hash password", err))
	}

	// Role is fixed here, derived from the email domain.
	user := models.User{
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Name:         req.Name,
		Role:         utils.DeriveRole(req.Email),
		IsActive:     true,
		IsRegistered: true,
	}
	if user.Role == models.RoleStudent {
		if req.Roll != "" {
			user.Roll = utils.Pointer(req.Roll)
		}
		if req.Batch != "" {
			user.Batch = utils.Pointer(req.Batch)
		}
	}

	if err := config.DB.Create(&user).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to create user", err))
	}

	accessToken, refreshToken, sessionID, err := utils.GenerateJWTToken(&user)
	if err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to generate tokens", err))
	}

	utils.LogEvent("user_registered", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		User:         &user,
	})
}

func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("Invalid request body"))
	}

	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError(err.Error()))
	}

	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := config.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	if !user.IsActive {
		return utils.ErrorResponse(c, utils.NewAuthorizationError("Account is not active"))
	}

	accessToken, refreshToken, sessionID, err := utils.GenerateJWTToken(&user)
	if err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to generate tokens", err))
	}

	return c.JSON(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		User:         &user,
	})
}

func RefreshToken(c *fiber.Ctx) error {
	var req RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("Invalid request body"))
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError(err.Error()))
	}

	access, refresh, err := utils.RefreshTokens(req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired refresh token",
		})
	}

	return c.JSON(fiber.Map{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func ChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("Invalid request body"))
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError(err.Error()))
	}

	user := c.Locals("user").(*models.User)

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid current password",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to hash password", err))
	}

	// Bumping the token version invalidates every outstanding token.
	user.PasswordHash = string(hashedPassword)
	user.TokenVersion++
	if err := config.DB.Save(user).Error; err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to update password", err))
	}

	return c.JSON(fiber.Map{"message": "Password updated"})
}

func GetCurrentUser(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	return c.JSON(utils.SuccessResponse(user))
}

func Logout(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}
