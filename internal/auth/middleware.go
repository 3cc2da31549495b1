package auth

import (
	"fmt"
	"strings"

	"gsb-backend/internal/config"
	"gsb-backend/internal/httperr"
	"gsb-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return httperr.Unauthorized("Aucun token trouvé")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return httperr.Unauthorized("Le header Authorization doit être de la forme 'Bearer <token>'")
		}

		tokenStr := parts[1]

		token, err := jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("méthode de signature invalide")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return httperr.Unauthorized("Token invalide ou expiré")
		}

		claims, ok := token.Claims.(*JWTCustomClaims)
		if !ok {
			return httperr.Unauthorized("Token indéchiffrable")
		}

		// le rôle embarqué dans le token repasse par l'énumération fermée
		role, ok := models.ParseRole(string(claims.Role))
		if !ok {
			return httperr.Forbidden("Rôle inconnu")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, role)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.Role)
		if !ok {
			return httperr.Forbidden("Rôle introuvable")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return httperr.Forbidden("Vous n'avez pas les droits pour cette opération")
	}
}

// CallerID lit l'identité vérifiée posée par le middleware.
func CallerID(c *fiber.Ctx) (uint, error) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return 0, httperr.Forbidden("Utilisateur introuvable")
	}
	return id, nil
}

// CallerRole lit le rôle vérifié posé par le middleware.
func CallerRole(c *fiber.Ctx) (models.Role, error) {
	role, ok := c.Locals(CtxUserRoleKey).(models.Role)
	if !ok {
		return "", httperr.Forbidden("Rôle introuvable")
	}
	return role, nil
}
