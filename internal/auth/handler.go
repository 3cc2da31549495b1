package auth

import (
	"errors"
	"log"
	"strings"

	"gsb-backend/internal/config"
	"gsb-backend/internal/httperr"
	"gsb-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var validate = validator.New()

type RegisterRequest struct {
	Nom      string `json:"nom" validate:"required"`
	Prenom   string `json:"prenom" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/register
// L'inscription crée toujours un visiteur médical, le rôle n'est jamais
// accepté depuis la requête (pas d'auto-promotion).
func RegisterHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return httperr.InvalidInput("Corps de requête invalide")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.Nom = strings.TrimSpace(body.Nom)
		body.Prenom = strings.TrimSpace(body.Prenom)

		if err := validate.Struct(body); err != nil {
			return httperr.InvalidInput("Nom, prénom, email valide et mot de passe d'au moins 8 caractères sont obligatoires")
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
			Role:         models.RoleVisiteurMedical,
		}

		if err := db.Create(&user).Error; err != nil {
			log.Println("création utilisateur:", err)
			return httperr.Storage("Le compte n'a pas pu être créé")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"user": fiber.Map{
				"id":    user.ID,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return httperr.InvalidInput("Corps de requête invalide")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := db.Where("email = ?", body.Email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httperr.Unauthorized("Email ou mot de passe incorrect")
			}
			return httperr.Storage("Erreur lors de la connexion")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return httperr.Unauthorized("Email ou mot de passe incorrect")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return httperr.Storage("Le token n'a pas pu être généré")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"token":   token,
			"user": fiber.Map{
				"id":     user.ID,
				"nom":    user.Nom,
				"prenom": user.Prenom,
				"email":  user.Email,
				"role":   user.Role,
			},
		})
	}
}

// GET /api/auth/me
func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CallerID(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			return httperr.NotFound("Utilisateur introuvable")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"user": fiber.Map{
				"id":     user.ID,
				"nom":    user.Nom,
				"prenom": user.Prenom,
				"email":  user.Email,
				"role":   user.Role,
			},
		})
	}
}
