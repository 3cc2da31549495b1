package main

import (
	"log"
	"strings"

	"gsb-backend/internal/admin"
	"gsb-backend/internal/audit"
	"gsb-backend/internal/auth"
	"gsb-backend/internal/avance"
	"gsb-backend/internal/config"
	"gsb-backend/internal/database"
	"gsb-backend/internal/fiche"
	"gsb-backend/internal/models"
	"gsb-backend/internal/taux"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Connexion à la base impossible: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration échouée: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"success": false,
					"message": e.Message,
				})
			}
			log.Println("Erreur inattendue:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Erreur serveur inattendue",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public
	api.Post("/auth/register", auth.RegisterHandler(db))
	api.Post("/auth/login", auth.LoginHandler(cfg, db))

	// Authentifié
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler(db))

	// Barème des frais
	protected.Get("/taux", taux.ListHandler(db))

	// Avances sur frais
	protected.Post("/avances", avance.CreateHandler(db))
	protected.Get("/avances", avance.ListAcceptedHandler(db))

	// Fiches de frais
	protected.Post("/fiches", fiche.CreateHandler(db))
	protected.Get("/fiches", fiche.ListHandler(db))
	protected.Get("/fiches/:id/details", fiche.DetailsHandler(db))
	protected.Put("/fiches/:id", fiche.UpdateHandler(db))
	protected.Post("/fiches/details", fiche.UpdateDetailsHandler(db))

	// Revue comptable
	review := protected.Group("")
	review.Use(auth.RequireRole(models.RoleComptable, models.RoleAdministrateur))
	review.Post("/fiches/review", fiche.ReviewHandler(db))
	review.Get("/avances/pending", avance.ListPendingHandler(db))
	review.Post("/avances/:id/review", avance.ReviewHandler(db))

	// Administration
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdministrateur))
	adminRoutes.Get("/visiteurs", admin.ListVisiteursHandler(db))
	adminRoutes.Get("/visiteurs/emails", admin.ListEmailsHandler(db))
	adminRoutes.Post("/visiteurs", admin.CreateVisiteurHandler(db))
	adminRoutes.Delete("/visiteurs/:id", admin.DeleteVisiteurHandler(db))
	adminRoutes.Get("/audit", audit.ListHandler(db))

	log.Println("Serveur démarré sur le port", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
