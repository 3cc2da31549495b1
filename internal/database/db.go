package database

import (
	"fmt"

	"gsb-backend/internal/config"
	"gsb-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open retourne le handle de connexion, injecté ensuite dans chaque handler.
func Open(cfg *config.Config) (*gorm.DB, error) {
	// TranslateError pour recevoir gorm.ErrDuplicatedKey sur les index uniques (user, mois)
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connexion à la base impossible: %w", err)
	}
	return db, nil
}

// Migrate crée le schéma et insère les taux de référence s'ils sont absents.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.TauxFrais{},
		&models.Avance{},
		&models.FicheFrais{},
		&models.FicheFraisDetail{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("migration: %w", err)
	}
	return seedTaux(db)
}

func seedTaux(db *gorm.DB) error {
	defauts := []models.TauxFrais{
		{Code: models.TauxKilometre, Libelle: "kilomètre", Montant: decimal.RequireFromString("0.30")},
		{Code: models.TauxRepas, Libelle: "Repas", Montant: decimal.RequireFromString("15.00")},
		{Code: models.TauxHebergement, Libelle: "Nuitée", Montant: decimal.RequireFromString("60.00")},
	}
	for _, t := range defauts {
		res := db.FirstOrCreate(&t, models.TauxFrais{Code: t.Code})
		if res.Error != nil {
			return fmt.Errorf("insertion du taux %s: %w", t.Code, res.Error)
		}
	}
	return nil
}
