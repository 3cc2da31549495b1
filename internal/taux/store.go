package taux

import (
	"errors"
	"fmt"

	"gsb-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrTauxInconnu signale une erreur de configuration: un taux absent
// ne vaut jamais zéro.
var ErrTauxInconnu = errors.New("taux inconnu")

func Get(db *gorm.DB, code string) (decimal.Decimal, error) {
	var t models.TauxFrais
	if err := db.First(&t, "t_id = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrTauxInconnu, code)
		}
		return decimal.Zero, err
	}
	return t.Montant, nil
}

// All retourne les taux indexés par code de catégorie.
func All(db *gorm.DB) (map[string]models.TauxFrais, error) {
	var rows []models.TauxFrais
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	res := make(map[string]models.TauxFrais, len(rows))
	for _, t := range rows {
		res[t.Code] = t
	}
	return res, nil
}
