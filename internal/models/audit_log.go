package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionReview AuditAction = "review"
	AuditActionDelete AuditAction = "delete"
)

type AuditLog struct {
	ID          uint        `gorm:"primaryKey"`
	UserID      uint        `gorm:"index;not null"`
	UserEmail   string      `gorm:"size:100;not null"`
	EntityType  string      `gorm:"size:30;index;not null"` // "fiche_frais" | "gsb_avance"
	EntityID    uint        `gorm:"index;not null"`
	Action      AuditAction `gorm:"size:20;not null"`
	Description string      `gorm:"size:255"`
	CreatedAt   time.Time
}

func (AuditLog) TableName() string { return "audit_log" }
