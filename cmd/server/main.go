package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"taskboard-backend/internal/api"
	"taskboard-backend/internal/authz"
	"taskboard-backend/internal/config"
	"taskboard-backend/internal/identity"
	"taskboard-backend/internal/store"
	"taskboard-backend/internal/task"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, db driver: %s)", cfg.Server.Port, cfg.Database.Driver)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 3. Bootstrap tables and seed first admin
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap tables: %v", err)
	}
	log.Println("Tables ready")

	// 4. Identity provider (embedded IdP for the demo deployment)
	provider, err := identity.NewProvider(cfg.Identity)
	if err != nil {
		log.Fatalf("Failed to create identity provider: %v", err)
	}

	// 5. Authorization core: key set -> verifier -> gateway.
	// With the embedded provider the key set reads the provider's keys
	// directly; a configured JWKS URL switches to an external IdP.
	var source authz.KeySetSource = provider
	if cfg.Identity.JWKSURL != "" {
		source = authz.NewHTTPKeySetSource(cfg.Identity.JWKSURL)
	}
	keys := authz.NewKeySet(source,
		authz.WithKeyTTL(cfg.Identity.KeyCacheTTL),
		authz.WithRefreshCooldown(cfg.Identity.RefreshCooldown),
		authz.WithRefreshTimeout(cfg.Identity.RefreshTimeout),
	)
	verifier := authz.NewVerifier(keys, cfg.Identity.Issuer, cfg.Identity.Audience, cfg.Identity.MaxTokenAge)
	gateway := authz.NewGateway(verifier)

	// 6. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 7. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 8. Identity routes (JWKS + login; no auth required)
	identityHandler := identity.NewHandler(db, provider, cfg.Identity)
	identity.RegisterRoutes(app, identityHandler)

	// 9. Task routes behind the authorization gateway
	authMW := authz.Middleware(gateway)
	taskHandler := task.NewHandler(task.NewStore(db), cfg.Tasks)
	task.RegisterRoutes(app, taskHandler, authMW)

	// 10. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}
