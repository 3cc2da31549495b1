package avance

import (
	"errors"
	"log"
	"strings"
	"time"

	"gsb-backend/internal/audit"
	"gsb-backend/internal/auth"
	"gsb-backend/internal/httperr"
	"gsb-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateAvanceRequest struct {
	Date    string          `json:"date"` // "2025-04-10"
	Montant decimal.Decimal `json:"montant"`
	Motif   string          `json:"motif"`
}

type AvanceResponse struct {
	ID          uint                `json:"id"`
	Montant     string              `json:"montant"`
	Description string              `json:"description"`
	Statut      models.AvanceStatut `json:"status"`
	Date        string              `json:"date"`
}

type ReviewAvanceRequest struct {
	Action string `json:"action"` // seul "Accept" est reconnu
}

// Aide: email de l'appelant pour le journal d'audit
func callerEmail(db *gorm.DB, userID uint) string {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return ""
	}
	return user.Email
}

// POST /api/avances
func CreateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CallerID(c)
		if err != nil {
			return err
		}

		var body CreateAvanceRequest
		if err := c.BodyParser(&body); err != nil {
			return httperr.InvalidInput("Données JSON invalides")
		}

		body.Date = strings.TrimSpace(body.Date)
		body.Motif = strings.TrimSpace(body.Motif)

		if body.Date == "" {
			return httperr.InvalidInput("Le champ date est obligatoire")
		}
		d, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return httperr.InvalidInput("La date doit être au format 'YYYY-MM-DD'")
		}
		if !body.Montant.IsPositive() {
			return httperr.InvalidInput("Le montant doit être supérieur à 0")
		}
		if body.Motif == "" {
			return httperr.InvalidInput("Le motif de la demande est obligatoire")
		}

		mois := d.Format("2006-01")

		// pré-vérification pour un message clair; l'index unique (user, mois)
		// ferme la course entre deux créations simultanées
		var count int64
		if err := db.Model(&models.Avance{}).
			Where("user_id = ? AND mois = ?", userID, mois).
			Count(&count).Error; err != nil {
			return httperr.Storage("La demande n'a pas pu être vérifiée")
		}
		if count > 0 {
			return httperr.DuplicateMonth("Vous ne pouvez créer qu'une demande d'avance par mois. Une demande existe déjà pour le mois " + mois)
		}

		av := models.Avance{
			UserID:       userID,
			Montant:      body.Montant,
			Description:  body.Motif,
			Statut:       models.AvancePending,
			DateCreation: d,
			Mois:         mois,
		}

		if err := db.Create(&av).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return httperr.DuplicateMonth("Vous ne pouvez créer qu'une demande d'avance par mois. Une demande existe déjà pour le mois " + mois)
			}
			log.Println("création avance:", err)
			return httperr.Storage("La demande d'avance n'a pas pu être enregistrée")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Demande d'avance enregistrée avec succès !",
			"details": fiber.Map{
				"id":      av.ID,
				"montant": av.Montant.StringFixed(2),
				"status":  av.Statut,
			},
		})
	}
}

// GET /api/avances - uniquement les avances acceptées de l'appelant,
// les seules rattachables à une fiche
func ListAcceptedHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CallerID(c)
		if err != nil {
			return err
		}

		var rows []models.Avance
		if err := db.Where("user_id = ? AND statut = ?", userID, models.AvanceAccepted).
			Order("date_creation DESC").
			Find(&rows).Error; err != nil {
			return httperr.Storage("Les avances n'ont pas pu être chargées")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"avances": toResponses(rows),
		})
	}
}

// GET /api/avances/pending (COMPTABLE / ADMINISTRATEUR)
func ListPendingHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []models.Avance
		if err := db.Where("statut = ?", models.AvancePending).
			Order("date_creation DESC").
			Find(&rows).Error; err != nil {
			return httperr.Storage("Les avances n'ont pas pu être chargées")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"avances": toResponses(rows),
		})
	}
}

// POST /api/avances/:id/review (COMPTABLE / ADMINISTRATEUR)
// Passe une avance pending -> accepted. Ré-accepter une avance déjà
// acceptée est un no-op; une avance consommée n'est plus révisable.
func ReviewHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CallerID(c)
		if err != nil {
			return err
		}

		var body ReviewAvanceRequest
		if err := c.BodyParser(&body); err != nil {
			return httperr.InvalidInput("Données JSON invalides")
		}
		if body.Action != "Accept" {
			return httperr.InvalidInput("Action inconnue, seule 'Accept' est reconnue")
		}

		var av models.Avance
		if err := db.First(&av, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httperr.NotFound("Avance introuvable")
			}
			return httperr.Storage("L'avance n'a pas pu être chargée")
		}

		switch av.Statut {
		case models.AvanceAccepted:
			return c.JSON(fiber.Map{"success": true, "message": "Avance déjà acceptée"})
		case models.AvanceUsed:
			return httperr.AlreadyUsed("Cette avance a déjà été consommée")
		}

		if err := db.Model(&av).Update("statut", models.AvanceAccepted).Error; err != nil {
			return httperr.Storage("L'avance n'a pas pu être acceptée")
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			UserID:      userID,
			UserEmail:   callerEmail(db, userID),
			EntityType:  "gsb_avance",
			EntityID:    av.ID,
			Action:      models.AuditActionReview,
			Description: "Avance acceptée: " + av.Montant.StringFixed(2) + " €",
		}); logErr != nil {
			log.Println(logErr)
		}

		return c.JSON(fiber.Map{"success": true, "message": "Avance acceptée"})
	}
}

func toResponses(rows []models.Avance) []AvanceResponse {
	res := make([]AvanceResponse, 0, len(rows))
	for _, r := range rows {
		res = append(res, AvanceResponse{
			ID:          r.ID,
			Montant:     r.Montant.StringFixed(2),
			Description: r.Description,
			Statut:      r.Statut,
			Date:        r.DateCreation.Format("2006-01-02"),
		})
	}
	return res
}
