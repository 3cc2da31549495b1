package admin

import (
	"errors"
	"log"
	"strings"

	"gsb-backend/internal/httperr"
	"gsb-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var validate = validator.New()

type CreateVisiteurRequest struct {
	Nom      string `json:"nom" validate:"required"`
	Prenom   string `json:"prenom" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role"` // optionnel, VISITEUR_MEDICAL par défaut
}

type VisiteurResponse struct {
	ID     uint        `json:"id"`
	Nom    string      `json:"nom"`
	Prenom string      `json:"prenom"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

// GET /api/admin/visiteurs
func ListVisiteursHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []models.User
		if err := db.Order("nom ASC, prenom ASC").Find(&rows).Error; err != nil {
			return httperr.Storage("Les visiteurs n'ont pas pu être chargés")
		}

		res := make([]VisiteurResponse, 0, len(rows))
		for _, u := range rows {
			res = append(res, VisiteurResponse{
				ID:     u.ID,
				Nom:    u.Nom,
				Prenom: u.Prenom,
				Email:  u.Email,
				Role:   u.Role,
			})
		}

		return c.JSON(fiber.Map{
			"success":   true,
			"visiteurs": res,
		})
	}
}

// GET /api/admin/visiteurs/emails - liste des emails déjà pris,
// utilisée par le formulaire d'ajout
func ListEmailsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var emails []string
		if err := db.Model(&models.User{}).Order("email ASC").Pluck("email", &emails).Error; err != nil {
			return httperr.Storage("Les emails n'ont pas pu être chargés")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"emails":  emails,
		})
	}
}

// POST /api/admin/visiteurs
func CreateVisiteurHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateVisiteurRequest
		if err := c.BodyParser(&body); err != nil {
			return httperr.InvalidInput("Données JSON invalides")
		}

		body.Nom = strings.TrimSpace(body.Nom)
		body.Prenom = strings.TrimSpace(body.Prenom)
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		if err := validate.Struct(body); err != nil {
			return httperr.InvalidInput("Nom, prénom, email valide et mot de passe d'au moins 8 caractères sont obligatoires")
		}

		role := models.RoleVisiteurMedical
		if body.Role != "" {
			parsed, ok := models.ParseRole(body.Role)
			if !ok {
				return httperr.InvalidInput("Rôle inconnu")
			}
			role = parsed
		}

		var count int64
		db.Model(&models.User{}).Where("email = ?", body.Email).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Un compte existe déjà avec cet email")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return httperr.Storage("Le mot de passe n'a pas pu être hashé")
		}

		user := models.User{
			Nom:          body.Nom,
			Prenom:       body.Prenom,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         role,
		}

		if err := db.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Un compte existe déjà avec cet email")
			}
			log.Println("création visiteur:", err)
			return httperr.Storage("Le visiteur n'a pas pu être créé")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"visiteur": VisiteurResponse{
				ID:     user.ID,
				Nom:    user.Nom,
				Prenom: user.Prenom,
				Email:  user.Email,
				Role:   user.Role,
			},
		})
	}
}

// DELETE /api/admin/visiteurs/:id
func DeleteVisiteurHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := db.Delete(&models.User{}, "id = ?", c.Params("id"))
		if res.Error != nil {
			return httperr.Storage("Le visiteur n'a pas pu être supprimé")
		}
		if res.RowsAffected == 0 {
			return httperr.NotFound("Visiteur introuvable")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
