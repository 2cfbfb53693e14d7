package controller

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"ssrportal/config"
	"ssrportal/utils"
)

// allowedUploadExts lists the accepted attachment types: PDF plus common
// image formats.
var allowedUploadExts = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

// allowedUploadTypes is the matching set for the declared part content type.
var allowedUploadTypes = map[string]struct{}{
	"application/pdf": {},
	"image/png":       {},
	"image/jpeg":      {},
	"image/gif":       {},
	"image/webp":      {},
}

// UploadFile stores a proposal attachment under the public uploads path,
// keyed by "<timestamp>-<sanitized-filename>".
func UploadFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, utils.NewValidationError("A file is required"))
	}

	if file.Size > config.AppConfig.MaxUploadBytes {
		return utils.ErrorResponse(c, utils.NewValidationError(
			fmt.Sprintf("File too large (max %d bytes)", config.AppConfig.MaxUploadBytes)))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedUploadExts[ext]; !ok {
		return utils.ErrorResponse(c, utils.NewValidationError("Only PDF and image uploads are accepted"))
	}

	contentType := strings.ToLower(strings.TrimSpace(file.Header.Get("Content-Type")))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if _, ok := allowedUploadTypes[contentType]; !ok {
		return utils.ErrorResponse(c, utils.NewValidationError("Only PDF and image uploads are accepted"))
	}

	if err := os.MkdirAll(config.AppConfig.UploadDir, 0o755); err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to prepare upload directory", err))
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), utils.SanitizeFilename(file.Filename))
	dst := filepath.Join(config.AppConfig.UploadDir, name)

	if err := c.SaveFile(file, dst); err != nil {
		return utils.ErrorResponse(c, utils.NewInternalError("Failed to save file", err))
	}

	utils.LogEvent("file_uploaded", map[string]interface{}{
		"name": name,
		"size": file.Size,
	})

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"filename": name,
		"path":     "/uploads/" + name,
		"size":     file.Size,
	}))
}
