package models

import "github.com/shopspring/decimal"

// Codes des catégories de frais
const (
	TauxKilometre   = "KM"
	TauxRepas       = "REP"
	TauxHebergement = "NUI"
)

// TauxFrais - table de référence, lecture seule côté application
type TauxFrais struct {
	Code    string          `gorm:"primaryKey;size:10;column:t_id"`
	Libelle string          `gorm:"size:50;not null;column:t_libelle"`
	Montant decimal.Decimal `gorm:"type:decimal(10,2);not null;column:t_montant"`
}

func (TauxFrais) TableName() string { return "taux_frais" }
