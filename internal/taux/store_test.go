package taux

import (
	"errors"
	"fmt"
	"testing"

	"gsb-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("ouverture db: %v", err)
	}
	if err := db.AutoMigrate(&models.TauxFrais{}); err != nil {
		t.Fatalf("migration: %v", err)
	}
	rows := []models.TauxFrais{
		{Code: models.TauxKilometre, Libelle: "kilomètre", Montant: decimal.RequireFromString("0.30")},
		{Code: models.TauxRepas, Libelle: "Repas", Montant: decimal.RequireFromString("15.00")},
	}
	for _, r := range rows {
		if err := db.Create(&r).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return db
}

func TestGet(t *testing.T) {
	db := setupDB(t)

	m, err := Get(db, models.TauxKilometre)
	if err != nil {
		t.Fatalf("erreur inattendue: %v", err)
	}
	if m.StringFixed(2) != "0.30" {
		t.Fatalf("taux KM attendu 0.30, obtenu %s", m.StringFixed(2))
	}
}

func TestGetTauxInconnu(t *testing.T) {
	db := setupDB(t)

	// une catégorie inconnue est une erreur de configuration, jamais un taux zéro
	_, err := Get(db, "XYZ")
	if !errors.Is(err, ErrTauxInconnu) {
		t.Fatalf("attendu ErrTauxInconnu, obtenu %v", err)
	}
}

func TestAll(t *testing.T) {
	db := setupDB(t)

	all, err := All(db)
	if err != nil {
		t.Fatalf("erreur inattendue: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("attendu 2 taux, obtenu %d", len(all))
	}
	if all[models.TauxRepas].Libelle != "Repas" {
		t.Fatalf("libellé inattendu: %+v", all[models.TauxRepas])
	}
}
