package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string
}

func Load() *Config {
	// l'absence de .env n'est pas une erreur, les variables peuvent venir de l'environnement
	if err := godotenv.Load(); err != nil {
		log.Println("Aucun fichier .env chargé")
	}

	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=gsb port=5432 sslmode=disable"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] La variable d'environnement JWT_SECRET n'est pas définie, elle est obligatoire.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET doit faire au moins 32 caractères.")
	}
	if cfg.DatabaseDSN == "host=localhost user=postgres password=postgres dbname=gsb port=5432 sslmode=disable" {
		log.Println("[WARN] DATABASE_DSN utilise la valeur par défaut, à remplacer en production.")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS utilise la valeur par défaut, à remplacer en production.")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
