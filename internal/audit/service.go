package audit

import (
	"fmt"

	"gsb-backend/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      uint
	UserEmail   string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
}

// WriteLog trace une action de gestion. Appelé en best-effort: un échec
// d'écriture du journal ne doit jamais faire échouer l'opération appelante.
func WriteLog(db *gorm.DB, opts LogOptions) error {
	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserEmail:   opts.UserEmail,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
	}

	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("journal d'audit non enregistré: %w", err)
	}
	return nil
}
