package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/currency/internal/auth"
	"github.com/congo-pay/currency/internal/config"
	"github.com/congo-pay/currency/internal/currency"
	"github.com/congo-pay/currency/internal/identity"
	"github.com/congo-pay/currency/internal/ledger"
	"github.com/congo-pay/currency/internal/metrics"
	"github.com/congo-pay/currency/internal/middleware"
	"github.com/congo-pay/currency/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Store   ledger.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Store == nil {
		return fmt.Errorf("ledger store is required")
	}
	// Signers must survive restarts outside dev.
	if !d.Cfg.IsDev() && d.DB == nil {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", d.Metrics.Handler())

	identityRepo, err := identityRepository(d.DB)
	if err != nil {
		return err
	}
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	authHandler := auth.NewHandler(identitySvc, authSvc)

	book := ledger.New(d.Store, auth.NewTokenAuthenticator(authSvc))
	currencySvc := currency.NewService(book, notification.NewLoggerNotifier(d.Logger), d.Metrics, d.Logger)
	currencyHandler := currency.NewHandler(currencySvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterIdentityRoutes(api, identitySvc, d.Logger)
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit))

	ops := api.Group("", middleware.Origin())
	if d.Cache != nil {
		ops.Use("/currency", middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	currencyHandler.Register(ops)

	return nil
}

func identityRepository(db *pgxpool.Pool) (identity.Repository, error) {
	if db == nil {
		return identity.NewMemoryRepository(), nil
	}
	repo := identity.NewPostgresRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}
