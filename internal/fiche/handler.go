package fiche

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"gsb-backend/internal/audit"
	"gsb-backend/internal/auth"
	"gsb-backend/internal/avance"
	"gsb-backend/internal/httperr"
	"gsb-backend/internal/models"
	"gsb-backend/internal/taux"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateFicheRequest struct {
	Date           string          `json:"date"` // "2025-04-10"
	Distance       decimal.Decimal `json:"distance"`
	NbRepas        int             `json:"nbRepas"`
	NbHebergements int             `json:"nbHebergements"`
	Description    string          `json:"description"`
	AvanceID       *uint           `json:"avanceId"`
}

type FicheResponse struct {
	ID           uint               `json:"id"`
	Reference    string             `json:"reference"`
	Date         string             `json:"date"`
	Description  string             `json:"description"`
	MontantTotal string             `json:"montant_total"`
	Statut       models.FicheStatut `json:"statut"`
	AvanceID     *uint              `json:"avance_id,omitempty"`
	Visiteur     string             `json:"visiteur,omitempty"`
}

type DetailResponse struct {
	ID       uint   `json:"id"`
	FicheID  uint   `json:"fiche_id"`
	Type     string `json:"type"`
	Quantite string `json:"quantite"`
	Montant  string `json:"montant"`
}

type UpdateFicheRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

type EditDetailEntry struct {
	DetailID uint            `json:"detailId"`
	FicheID  uint            `json:"ficheId"`
	Quantite decimal.Decimal `json:"quantite"`
}

type ReviewRequest struct {
	FicheID uint   `json:"ficheId"`
	Action  string `json:"action"` // Accept | Reject | Trash
}

// Aide: email de l'appelant pour le journal d'audit
func callerEmail(db *gorm.DB, userID uint) string {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return ""
	}
	return user.Email
}

// Référence de fiche: tranche mensuelle + suffixe aléatoire, format hérité
// FR-YYYYMM-NNNN. La collision n'est pas vérifiée, l'index unique la refuse.
func newReference(d time.Time) string {
	return fmt.Sprintf("FR-%s-%04d", d.Format("200601"), rand.Intn(9999)+1)
}

// closeStale clôture les fiches Pending datées de plus d'un mois. Exécutée
// en ligne avant chaque lecture de liste, mise à jour en masse sans contrôle
// du nombre de lignes.
func closeStale(db *gorm.DB, now time.Time) {
	limite := now.AddDate(0, -1, 0)
	if err := db.Model(&models.FicheFrais{}).
		Where("statut = ? AND date < ?", models.FichePending, limite).
		Update("statut", models.FicheClotured).Error; err != nil {
		log.Println("clôture automatique:", err)
	}
}

// POST /api/fiches
func CreateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CallerID(c)
		if err != nil {
			return err
		}

		var body CreateFicheRequest
		if err := c.BodyParser(&body); err != nil {
			return httperr.InvalidInput("Données JSON invalides")
		}

		body.Date = strings.TrimSpace(body.Date)
		body.Description = strings.TrimSpace(body.Description)

		// préconditions dans l'ordre: date, unicité mensuelle, quantités, description, avance
		if body.Date == "" {
			return httperr.InvalidInput("Le champ date est obligatoire")
		}
		d, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return httperr.InvalidInput("La date doit être au format 'YYYY-MM-DD'")
		}
		aujourdhui := time.Now().Format("2006-01-02")
		if body.Date < aujourdhui {
			return httperr.InvalidInput("La date ne peut pas être antérieure à aujourd'hui")
		}

		mois := d.Format("2006-01")
		var count int64
		if err := db.Model(&models.FicheFrais{}).
			Where("user_id = ? AND mois = ?", userID, mois).
			Count(&count).Error; err != nil {
			return httperr.Storage("La fiche n'a pas pu être vérifiée")
		}
		if count > 0 {
			return httperr.DuplicateMonth("Vous ne pouvez créer qu'une fiche de frais par mois. Une fiche existe déjà pour le mois " + mois)
		}

		bareme, err := taux.All(db)
		if err != nil {
			return httperr.Storage("Les taux n'ont pas pu être chargés")
		}
		montants := make(map[string]decimal.Decimal, len(bareme))
		for code, t := range bareme {
			montants[code] = t.Montant
		}

		lignes, total, err := Calculer(Quantites{
			Distance:       body.Distance,
			NbRepas:        body.NbRepas,
			NbHebergements: body.NbHebergements,
		}, montants)
		if err != nil {
			if errors.Is(err, ErrAucunFrais) {
				return httperr.InvalidInput("Au moins un type de frais (kilométrage, repas ou hébergement) doit être renseigné")
			}
			log.Println("calcul des frais:", err)
			return httperr.Storage("Le barème des frais est incomplet")
		}

		if body.Description == "" {
			return httperr.InvalidInput("Le champ description est obligatoire")
		}

		f := models.FicheFrais{
			Reference:    newReference(d),
			UserID:       userID,
			Date:         d,
			Mois:         mois,
			Description:  body.Description,
			MontantTotal: total,
			Statut:       models.FichePending,
		}

		// tout ou rien: entête, détails et consommation de l'avance
		txErr := db.Transaction(func(tx *gorm.DB) error {
			if body.AvanceID != nil {
				av, attachErr := avance.Attach(tx, *body.AvanceID, userID)
				if attachErr != nil {
					return attachErr
				}
				f.AvanceID = &av.ID
			}

			if err := tx.Create(&f).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return httperr.DuplicateMonth("Vous ne pouvez créer qu'une fiche de frais par mois. Une fiche existe déjà pour le mois " + mois)
				}
				log.Println("création fiche:", err)
				return httperr.Storage("La fiche de frais n'a pas pu être créée")
			}

			for _, l := range lignes {
				detail := models.FicheFraisDetail{
					FicheID:  f.ID,
					Type:     l.Type,
					Quantite: l.Quantite,
					Montant:  l.Montant,
				}
				if err := tx.Create(&detail).Error; err != nil {
					log.Println("création détail:", err)
					return httperr.Storage("Les détails de la fiche n'ont pas pu être enregistrés")
				}
			}

			return nil
		})
		if txErr != nil {
			return txErr
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			UserID:      userID,
			UserEmail:   callerEmail(db, userID),
			EntityType:  "fiche_frais",
			EntityID:    f.ID,
			Action:      models.AuditActionCreate,
			Description: "Fiche créée: " + f.Reference + " - " + total.StringFixed(2) + " €",
		}); logErr != nil {
			log.Println(logErr)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Fiche de frais ajoutée avec succès !",
			"details": fiber.Map{
				"id":        f.ID,
				"reference": f.Reference,
				"total":     total.StringFixed(2),
			},
		})
	}
}

// GET /api/fiches
// Clôture en ligne des fiches en attente trop anciennes, puis vue selon le
// rôle: les visiteurs ne voient que leurs fiches, comptables et
// administrateurs voient tout. Pending d'abord, puis date décroissante.
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CallerID(c)
		if err != nil {
			return err
		}
		role, err := auth.CallerRole(c)
		if err != nil {
			return err
		}

		closeStale(db, time.Now())

		q := db.Model(&models.FicheFrais{}).
			Order("CASE WHEN statut = 'Pending' THEN 0 ELSE 1 END").
			Order("date DESC")

		elevated := false
		switch role {
		case models.RoleComptable, models.RoleAdministrateur:
			elevated = true
			q = q.Preload("User")
		case models.RoleVisiteurMedical:
			q = q.Where("user_id = ?", userID)
		default:
			return httperr.Forbidden("Vous n'avez pas les droits pour cette opération")
		}

		var rows []models.FicheFrais
		if err := q.Find(&rows).Error; err != nil {
			return httperr.Storage("Les fiches n'ont pas pu être chargées")
		}

		res := make([]FicheResponse, 0, len(rows))
		for _, f := range rows {
			r := FicheResponse{
				ID:           f.ID,
				Reference:    f.Reference,
				Date:         f.Date.Format("2006-01-02"),
				Description:  f.Description,
				MontantTotal: f.MontantTotal.StringFixed(2),
				Statut:       f.Statut,
				AvanceID:     f.AvanceID,
			}
			if elevated {
				r.Visiteur = f.User.Prenom + " " + f.User.Nom
			}
			res = append(res, r)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"fiches":  res,
		})
	}
}

// GET /api/fiches/:id/details
func DetailsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CallerID(c)
		if err != nil {
			return err
		}
		role, err := auth.CallerRole(c)
		if err != nil {
			return err
		}

		var f models.FicheFrais
		if err := db.First(&f, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httperr.NotFound("Fiche non trouvée")
			}
			return httperr.Storage("La fiche n'a pas pu être chargée")
		}

		if f.UserID != userID && role != models.RoleComptable && role != models.RoleAdministrateur {
			return httperr.Forbidden("Cette fiche ne vous appartient pas")
		}

		var details []models.FicheFraisDetail
		if err := db.Where("fiche_id = ?", f.ID).Order("id ASC").Find(&details).Error; err != nil {
			return httperr.Storage("Les détails n'ont pas pu être chargés")
		}

		res := make([]DetailResponse, 0, len(details))
		for _, d := range details {
			res = append(res, DetailResponse{
				ID:       d.ID,
				FicheID:  d.FicheID,
				Type:     d.Type,
				Quantite: d.Quantite.StringFixed(2),
				Montant:  d.Montant.StringFixed(2),
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"details": res,
		})
	}
}

// PUT /api/fiches/:id
// Edition d'entête (date, description) par le propriétaire, fiche Pending
// uniquement. Le total n'est jamais fourni par le client, il reste dérivé
// des lignes de détail.
func UpdateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CallerID(c)
		if err != nil {
			return err
		}

		var body UpdateFicheRequest
		if err := c.BodyParser(&body); err != nil {
			return httperr.InvalidInput("Données JSON invalides")
		}

		body.Date = strings.TrimSpace(body.Date)
		body.Description = strings.TrimSpace(body.Description)

		if body.Date == "" {
			return httperr.InvalidInput("Le champ date est obligatoire")
		}
		d, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return httperr.InvalidInput("La date doit être au format 'YYYY-MM-DD'")
		}
		if body.Description == "" {
			return httperr.InvalidInput("Le champ description est obligatoire")
		}

		var f models.FicheFrais
		if err := db.First(&f, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httperr.NotFound("Fiche non trouvée")
			}
			return httperr.Storage("La fiche n'a pas pu être chargée")
		}

		if f.UserID != userID {
			return httperr.NotEditable("Vous n'êtes pas autorisé à modifier cette fiche de frais")
		}
		if f.Statut != models.FichePending {
			return httperr.NotEditable("Seules les fiches de frais en attente peuvent être modifiées")
		}

		updates := map[string]interface{}{
			"date":        d,
			"mois":        d.Format("2006-01"),
			"description": body.Description,
		}
		if err := db.Model(&f).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return httperr.DuplicateMonth("Une fiche existe déjà pour le mois " + d.Format("2006-01"))
			}
			return httperr.Storage("La fiche n'a pas pu être mise à jour")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Fiche de frais mise à jour avec succès",
		})
	}
}

// POST /api/fiches/details
// Edition des lignes de détail: chaque montant est recalculé depuis le taux
// stocké de sa catégorie, puis le total de chaque fiche touchée est recalculé
// comme la somme de ses lignes. Une seule transaction pour l'ensemble.
func UpdateDetailsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CallerID(c)
		if err != nil {
			return err
		}

		var entries []EditDetailEntry
		if err := c.BodyParser(&entries); err != nil {
			return httperr.InvalidInput("Payload JSON invalide")
		}
		if len(entries) == 0 {
			return httperr.InvalidInput("Aucune modification fournie")
		}

		txErr := db.Transaction(func(tx *gorm.DB) error {
			touchees := make(map[uint]struct{})

			for _, e := range entries {
				if e.DetailID == 0 || e.FicheID == 0 || e.Quantite.IsNegative() {
					return httperr.InvalidInput("Entrée invalide: ID ou quantité manquante")
				}

				var f models.FicheFrais
				if err := tx.First(&f, "id = ? AND user_id = ?", e.FicheID, userID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return httperr.NotEditable("Fiche inaccessible ou non modifiable")
					}
					return httperr.Storage("La fiche n'a pas pu être vérifiée")
				}
				if f.Statut != models.FichePending {
					return httperr.NotEditable("Fiche inaccessible ou non modifiable")
				}

				var d models.FicheFraisDetail
				if err := tx.First(&d, "id = ? AND fiche_id = ?", e.DetailID, e.FicheID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return httperr.NotFound("Détail introuvable pour la fiche donnée")
					}
					return httperr.Storage("Le détail n'a pas pu être vérifié")
				}

				t, err := taux.Get(tx, d.Type)
				if err != nil {
					log.Println("taux manquant:", err)
					return httperr.Storage("Taux introuvable pour le type " + d.Type)
				}

				montant := e.Quantite.Mul(t).Round(2)
				if err := tx.Model(&d).Updates(map[string]interface{}{
					"quantite": e.Quantite,
					"montant":  montant,
				}).Error; err != nil {
					return httperr.Storage("Le détail n'a pas pu être mis à jour")
				}

				touchees[e.FicheID] = struct{}{}
			}

			// total = somme des lignes, jamais une valeur en cache
			for ficheID := range touchees {
				var details []models.FicheFraisDetail
				if err := tx.Where("fiche_id = ?", ficheID).Find(&details).Error; err != nil {
					return httperr.Storage("Le total n'a pas pu être recalculé")
				}
				total := decimal.Zero
				for _, d := range details {
					total = total.Add(d.Montant)
				}
				if err := tx.Model(&models.FicheFrais{}).
					Where("id = ?", ficheID).
					Update("montant_total", total).Error; err != nil {
					return httperr.Storage("Le total n'a pas pu être enregistré")
				}
			}

			return nil
		})
		if txErr != nil {
			return txErr
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Modifications enregistrées avec succès",
		})
	}
}

// POST /api/fiches/review (COMPTABLE / ADMINISTRATEUR, Trash: ADMINISTRATEUR)
func ReviewHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CallerID(c)
		if err != nil {
			return err
		}
		role, err := auth.CallerRole(c)
		if err != nil {
			return err
		}

		var body ReviewRequest
		if err := c.BodyParser(&body); err != nil {
			return httperr.InvalidInput("Données JSON invalides")
		}
		if body.FicheID == 0 {
			return httperr.InvalidInput("L'ID de la fiche de frais est requis")
		}

		var f models.FicheFrais
		if err := db.First(&f, body.FicheID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httperr.NotFound("Fiche non trouvée")
			}
			return httperr.Storage("La fiche n'a pas pu être chargée")
		}

		var target models.FicheStatut
		switch body.Action {
		case "Accept":
			target = models.FicheAccepted
		case "Reject":
			target = models.FicheRejected
		case "Trash":
			if role != models.RoleAdministrateur {
				return httperr.Forbidden("La suppression est réservée aux administrateurs")
			}
			return trashFiche(c, db, userID, &f)
		default:
			return httperr.InvalidInput("Action inconnue (Accept|Reject|Trash)")
		}

		if f.Statut == target {
			// ré-application du même statut: no-op
			return c.JSON(fiber.Map{"success": true})
		}
		if !f.Statut.CanTransitionTo(target) {
			return httperr.InvalidInput(fmt.Sprintf("Transition %s -> %s interdite", f.Statut, target))
		}

		precedent := f.Statut
		if err := db.Model(&f).Update("statut", target).Error; err != nil {
			return httperr.Storage("Le statut n'a pas pu être mis à jour")
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			UserID:      userID,
			UserEmail:   callerEmail(db, userID),
			EntityType:  "fiche_frais",
			EntityID:    f.ID,
			Action:      models.AuditActionReview,
			Description: fmt.Sprintf("Fiche %s: %s -> %s", f.Reference, precedent, target),
		}); logErr != nil {
			log.Println(logErr)
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

// Suppression en cascade manuelle: les détails d'abord, l'entête ensuite,
// dans la même transaction. Zéro ligne affectée sur l'entête vaut échec.
func trashFiche(c *fiber.Ctx, db *gorm.DB, userID uint, f *models.FicheFrais) error {
	txErr := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("fiche_id = ?", f.ID).Delete(&models.FicheFraisDetail{}).Error; err != nil {
			return httperr.Storage("Les détails n'ont pas pu être supprimés")
		}

		res := tx.Delete(&models.FicheFrais{}, f.ID)
		if res.Error != nil {
			return httperr.Storage("La fiche n'a pas pu être supprimée")
		}
		if res.RowsAffected == 0 {
			return httperr.NotFound("Fiche non trouvée")
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	if logErr := audit.WriteLog(db, audit.LogOptions{
		UserID:      userID,
		UserEmail:   callerEmail(db, userID),
		EntityType:  "fiche_frais",
		EntityID:    f.ID,
		Action:      models.AuditActionDelete,
		Description: "Fiche supprimée: " + f.Reference,
	}); logErr != nil {
		log.Println(logErr)
	}

	return c.JSON(fiber.Map{"success": true})
}
