package avance

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gsb-backend/internal/auth"
	"gsb-backend/internal/models"

	"github.com/gofiber/fiber/v2"
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
	if err := db.AutoMigrate(&models.User{}, &models.Avance{}, &models.FicheFrais{}, &models.AuditLog{}); err != nil {
		t.Fatalf("migration: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	t.Helper()
	u := models.User{Nom: "Test", Prenom: "User", Email: email, PasswordHash: "x", Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func newApp(db *gorm.DB, userID uint, role models.Role) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"success": false, "message": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false})
		},
	})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, userID)
		c.Locals(auth.CtxUserRoleKey, role)
		return c.Next()
	})
	api := app.Group("/api")
	api.Post("/avances", CreateHandler(db))
	api.Get("/avances", ListAcceptedHandler(db))
	api.Get("/avances/pending", ListPendingHandler(db))
	api.Post("/avances/:id/review", ReviewHandler(db))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("requête %s %s: %v", method, path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("lecture réponse: %v", err)
	}
	var payload map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("décodage réponse %s: %v", string(raw), err)
		}
	}
	return resp, payload
}

func TestCreateAvance(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db, "b@gsb.fr", models.RoleVisiteurMedical)
	app := newApp(db, u.ID, u.Role)

	body := `{"date":"2026-04-10","montant":200,"motif":"Déplacement avril"}`
	resp, payload := doJSON(t, app, http.MethodPost, "/api/avances", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("attendu 201, obtenu %d (%v)", resp.StatusCode, payload)
	}
	details := payload["details"].(map[string]any)
	if details["status"] != "pending" {
		t.Fatalf("statut initial attendu pending, obtenu %v", details["status"])
	}
	if details["montant"] != "200.00" {
		t.Fatalf("montant attendu 200.00, obtenu %v", details["montant"])
	}

	var av models.Avance
	if err := db.First(&av, "user_id = ?", u.ID).Error; err != nil {
		t.Fatalf("avance absente: %v", err)
	}
	if av.Mois != "2026-04" {
		t.Fatalf("mois attendu 2026-04, obtenu %s", av.Mois)
	}
}

func TestCreateAvanceValidation(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db, "b@gsb.fr", models.RoleVisiteurMedical)
	app := newApp(db, u.ID, u.Role)

	cases := []struct {
		nom  string
		body string
	}{
		{"date absente", `{"montant":100,"motif":"x"}`},
		{"montant nul", `{"date":"2026-04-10","montant":0,"motif":"x"}`},
		{"montant négatif", `{"date":"2026-04-10","montant":-5,"motif":"x"}`},
		{"motif vide", `{"date":"2026-04-10","montant":100,"motif":"  "}`},
	}
	for _, tc := range cases {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/avances", tc.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: attendu 400, obtenu %d", tc.nom, resp.StatusCode)
		}
	}

	var count int64
	db.Model(&models.Avance{}).Count(&count)
	if count != 0 {
		t.Fatalf("les validations ne doivent rien écrire, %d avances trouvées", count)
	}
}

func TestCreateAvanceDoubleMois(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db, "b@gsb.fr", models.RoleVisiteurMedical)
	app := newApp(db, u.ID, u.Role)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/avances", `{"date":"2026-04-10","montant":200,"motif":"x"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("première création: %d", resp.StatusCode)
	}

	// même mois, autre jour: refusé quel que soit le statut de la première
	resp, _ = doJSON(t, app, http.MethodPost, "/api/avances", `{"date":"2026-04-25","montant":50,"motif":"y"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("attendu 409, obtenu %d", resp.StatusCode)
	}
}

func TestListAccepteesSeulement(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db, "b@gsb.fr", models.RoleVisiteurMedical)
	autre := seedUser(t, db, "c@gsb.fr", models.RoleVisiteurMedical)

	seed := []models.Avance{
		{UserID: u.ID, Montant: decimal.RequireFromString("100.00"), Description: "p", Statut: models.AvancePending,
			DateCreation: time.Now().AddDate(0, -2, 0), Mois: time.Now().AddDate(0, -2, 0).Format("2006-01")},
		{UserID: u.ID, Montant: decimal.RequireFromString("200.00"), Description: "a", Statut: models.AvanceAccepted,
			DateCreation: time.Now().AddDate(0, -1, 0), Mois: time.Now().AddDate(0, -1, 0).Format("2006-01")},
		{UserID: u.ID, Montant: decimal.RequireFromString("300.00"), Description: "u", Statut: models.AvanceUsed,
			DateCreation: time.Now(), Mois: time.Now().Format("2006-01")},
		{UserID: autre.ID, Montant: decimal.RequireFromString("400.00"), Description: "autre", Statut: models.AvanceAccepted,
			DateCreation: time.Now(), Mois: time.Now().Format("2006-01")},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	app := newApp(db, u.ID, u.Role)
	_, payload := doJSON(t, app, http.MethodGet, "/api/avances", "")
	rows := payload["avances"].([]any)
	if len(rows) != 1 {
		t.Fatalf("attendu 1 avance acceptée, obtenu %d", len(rows))
	}
	if rows[0].(map[string]any)["montant"] != "200.00" {
		t.Fatalf("avance inattendue: %v", rows[0])
	}
}

func TestReviewAvance(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db, "b@gsb.fr", models.RoleVisiteurMedical)
	av := models.Avance{
		UserID: u.ID, Montant: decimal.RequireFromString("150.00"), Description: "x",
		Statut: models.AvancePending, DateCreation: time.Now(), Mois: time.Now().Format("2006-01"),
	}
	if err := db.Create(&av).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	cpt := seedUser(t, db, "cpt@gsb.fr", models.RoleComptable)
	app := newApp(db, cpt.ID, cpt.Role)

	path := fmt.Sprintf("/api/avances/%d/review", av.ID)
	resp, _ := doJSON(t, app, http.MethodPost, path, `{"action":"Accept"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("acceptation: attendu 200, obtenu %d", resp.StatusCode)
	}
	db.First(&av, av.ID)
	if av.Statut != models.AvanceAccepted {
		t.Fatalf("statut attendu accepted, obtenu %s", av.Statut)
	}

	// ré-acceptation: no-op
	resp, _ = doJSON(t, app, http.MethodPost, path, `{"action":"Accept"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ré-acceptation: attendu 200, obtenu %d", resp.StatusCode)
	}

	// une avance consommée n'est plus révisable
	db.Model(&av).Update("statut", models.AvanceUsed)
	resp, _ = doJSON(t, app, http.MethodPost, path, `{"action":"Accept"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("avance consommée: attendu 409, obtenu %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/avances/9999/review", `{"action":"Accept"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("avance inconnue: attendu 404, obtenu %d", resp.StatusCode)
	}
}

func TestAttachRollback(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db, "b@gsb.fr", models.RoleVisiteurMedical)
	av := models.Avance{
		UserID: u.ID, Montant: decimal.RequireFromString("150.00"), Description: "x",
		Statut: models.AvanceAccepted, DateCreation: time.Now(), Mois: time.Now().Format("2006-01"),
	}
	if err := db.Create(&av).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Attach dans une transaction annulée ne doit pas consommer l'avance
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := Attach(tx, av.ID, u.ID); err != nil {
			t.Fatalf("attach: %v", err)
		}
		return fmt.Errorf("échec simulé après le rattachement")
	})
	if err == nil {
		t.Fatal("la transaction devait échouer")
	}

	db.First(&av, av.ID)
	if av.Statut != models.AvanceAccepted {
		t.Fatalf("le rollback doit restaurer accepted, obtenu %s", av.Statut)
	}
}
