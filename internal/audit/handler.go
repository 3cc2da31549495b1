package audit

import (
	"gsb-backend/internal/httperr"
	"gsb-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LogResponse struct {
	ID          uint               `json:"id"`
	UserID      uint               `json:"user_id"`
	UserEmail   string             `json:"user_email"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	Date        string             `json:"date"`
}

// GET /api/admin/audit
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []models.AuditLog
		if err := db.Order("created_at DESC").Limit(200).Find(&rows).Error; err != nil {
			return httperr.Storage("Le journal d'audit n'a pas pu être chargé")
		}

		res := make([]LogResponse, 0, len(rows))
		for _, r := range rows {
			res = append(res, LogResponse{
				ID:          r.ID,
				UserID:      r.UserID,
				UserEmail:   r.UserEmail,
				EntityType:  r.EntityType,
				EntityID:    r.EntityID,
				Action:      r.Action,
				Description: r.Description,
				Date:        r.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"logs":    res,
		})
	}
}
