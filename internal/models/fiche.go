package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type FicheStatut string

const (
	FichePending  FicheStatut = "Pending"
	FicheAccepted FicheStatut = "Accepted"
	FicheRejected FicheStatut = "Rejected"
	FicheClotured FicheStatut = "Clotured"
)

func ParseFicheStatut(s string) (FicheStatut, bool) {
	switch FicheStatut(s) {
	case FichePending, FicheAccepted, FicheRejected, FicheClotured:
		return FicheStatut(s), true
	}
	return "", false
}

// Transitions autorisées. Accepted/Rejected/Clotured sont terminaux,
// seule la suppression (Trash) les fait sortir de la table.
var ficheTransitions = map[FicheStatut][]FicheStatut{
	FichePending: {FicheAccepted, FicheRejected, FicheClotured},
}

// CanTransitionTo accepte la ré-application du même statut (no-op idempotent).
func (s FicheStatut) CanTransitionTo(target FicheStatut) bool {
	if s == target {
		return true
	}
	for _, t := range ficheTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

type FicheFrais struct {
	ID           uint   `gorm:"primaryKey"`
	Reference    string `gorm:"size:20;uniqueIndex;not null"`
	UserID       uint   `gorm:"not null;uniqueIndex:idx_fiche_user_mois,priority:1"`
	User         User
	Date         time.Time `gorm:"index;not null"`
	Mois         string    `gorm:"size:7;not null;uniqueIndex:idx_fiche_user_mois,priority:2"` // "2006-01"
	Description  string    `gorm:"size:255;not null"`
	MontantTotal decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Statut       FicheStatut     `gorm:"size:20;not null;default:Pending"`
	AvanceID     *uint           `gorm:"index"`
	Avance       *Avance
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (FicheFrais) TableName() string { return "fiche_frais" }

type FicheFraisDetail struct {
	ID       uint            `gorm:"primaryKey"`
	FicheID  uint            `gorm:"index;not null"`
	Type     string          `gorm:"size:10;not null"` // KM | REP | NUI
	Quantite decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Montant  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

func (FicheFraisDetail) TableName() string { return "fiche_frais_detail" }
