package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AvanceStatut string

const (
	AvancePending  AvanceStatut = "pending"
	AvanceAccepted AvanceStatut = "accepted"
	AvanceUsed     AvanceStatut = "used"
)

type Avance struct {
	ID           uint `gorm:"primaryKey"`
	UserID       uint `gorm:"not null;uniqueIndex:idx_avance_user_mois,priority:1"`
	User         User
	Montant      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Description  string          `gorm:"size:255;not null"`
	Statut       AvanceStatut    `gorm:"size:10;not null;default:pending"`
	DateCreation time.Time       `gorm:"index;not null"`
	Mois         string          `gorm:"size:7;not null;uniqueIndex:idx_avance_user_mois,priority:2"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Avance) TableName() string { return "gsb_avance" }
