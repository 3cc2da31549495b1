package models

import "time"

type Role string

const (
	RoleVisiteurMedical Role = "VISITEUR_MEDICAL"
	RoleComptable       Role = "COMPTABLE"
	RoleAdministrateur  Role = "ADMINISTRATEUR"
)

// ParseRole refuse tout rôle inconnu, pas de branche par défaut silencieuse
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleVisiteurMedical, RoleComptable, RoleAdministrateur:
		return Role(s), true
	}
	return "", false
}

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Nom          string `gorm:"size:100;not null"`
	Prenom       string `gorm:"size:100;not null"`
	Email        string `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         Role   `gorm:"size:30;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Nom de table hérité de l'ancienne base GSB
func (User) TableName() string { return "user" }
