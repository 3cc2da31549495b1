package taux

import (
	"gsb-backend/internal/httperr"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TauxResponse struct {
	Code    string `json:"code"`
	Libelle string `json:"libelle"`
	Taux    string `json:"taux"`
}

// GET /api/taux
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, err := All(db)
		if err != nil {
			return httperr.Storage("Les taux n'ont pas pu être chargés")
		}

		res := make(map[string]TauxResponse, len(all))
		for code, t := range all {
			res[code] = TauxResponse{
				Code:    t.Code,
				Libelle: t.Libelle,
				Taux:    t.Montant.StringFixed(2),
			}
		}

		return c.JSON(fiber.Map{
			"success": true,
			"taux":    res,
		})
	}
}
