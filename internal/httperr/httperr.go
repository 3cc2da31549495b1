// Package httperr centralise la taxonomie des erreurs métier et leur code HTTP.
// Les handlers retournent ces *fiber.Error, le ErrorHandler de main les met en forme.
package httperr

import "github.com/gofiber/fiber/v2"

// 400 - champ manquant, mal formé ou non positif
func InvalidInput(msg string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}

// 401 - identité absente ou invérifiable
func Unauthorized(msg string) *fiber.Error {
	return fiber.NewError(fiber.StatusUnauthorized, msg)
}

// 403 - rôle non autorisé ou ressource d'un autre utilisateur
func Forbidden(msg string) *fiber.Error {
	return fiber.NewError(fiber.StatusForbidden, msg)
}

// 404 - identifiant inconnu ou zéro ligne affectée
func NotFound(msg string) *fiber.Error {
	return fiber.NewError(fiber.StatusNotFound, msg)
}

// 409 - une fiche ou une avance existe déjà pour le mois
func DuplicateMonth(msg string) *fiber.Error {
	return fiber.NewError(fiber.StatusConflict, msg)
}

// 409 - avance déjà consommée par une autre fiche
func AlreadyUsed(msg string) *fiber.Error {
	return fiber.NewError(fiber.StatusConflict, msg)
}

// 400 - fiche non modifiable (mauvais statut ou mauvais propriétaire)
func NotEditable(msg string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}

// 400 - avance non rattachable (mauvais propriétaire ou statut différent d'accepted)
func NotEligible(msg string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}

// 500 - erreur du datastore; le texte brut du driver ne sort jamais vers l'appelant
func Storage(msg string) *fiber.Error {
	return fiber.NewError(fiber.StatusInternalServerError, msg)
}
