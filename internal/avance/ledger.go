package avance

import (
	"errors"

	"gsb-backend/internal/httperr"
	"gsb-backend/internal/models"

	"gorm.io/gorm"
)

// Attach consomme une avance au profit d'une fiche de frais. Doit être appelé
// dans la même transaction que la création de la fiche: toute erreur retournée
// annule l'ensemble des écritures.
func Attach(tx *gorm.DB, avanceID, userID uint) (*models.Avance, error) {
	var av models.Avance
	if err := tx.First(&av, avanceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotEligible("Avance introuvable")
		}
		return nil, httperr.Storage("L'avance n'a pas pu être vérifiée")
	}

	if av.UserID != userID {
		return nil, httperr.NotEligible("Cette avance ne vous appartient pas")
	}

	// une avance ne finance qu'une seule fiche
	var count int64
	if err := tx.Model(&models.FicheFrais{}).Where("avance_id = ?", av.ID).Count(&count).Error; err != nil {
		return nil, httperr.Storage("L'avance n'a pas pu être vérifiée")
	}
	if count > 0 {
		return nil, httperr.AlreadyUsed("Cette avance est déjà rattachée à une fiche de frais")
	}

	if av.Statut != models.AvanceAccepted {
		return nil, httperr.NotEligible("Seule une avance acceptée peut être rattachée à une fiche")
	}

	if err := tx.Model(&av).Update("statut", models.AvanceUsed).Error; err != nil {
		return nil, httperr.Storage("L'avance n'a pas pu être consommée")
	}
	av.Statut = models.AvanceUsed

	return &av, nil
}
