package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/importer"
	"github.com/jhoicas/crm-api/internal/application/listing"
	"github.com/jhoicas/crm-api/internal/application/records"
	"github.com/jhoicas/crm-api/internal/domain/policy"
	"github.com/jhoicas/crm-api/internal/infrastructure/metrics"
	"github.com/jhoicas/crm-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Importer    *importer.Engine
	ListUC      *listing.ListUseCase
	RecordsUC   *records.RecordsUseCase
	JWTSecret   string
	CORSOrigins string
	Import      ImportOptions
	Log         *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	app.Use(RequestLogger(log, metrics.HTTP()))
	if deps.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{AllowOrigins: deps.CORSOrigins, AllowHeaders: "Authorization, Content-Type"}))
	}

	// Métricas: solo admin
	app.Get("/metrics",
		AuthMiddleware(deps.JWTSecret),
		RequireRole(policy.RoleAdmin),
		adaptor.HTTPHandler(promhttp.Handler()),
	)

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Import: cualquier usuario autenticado, con límite por usuario
	importHandler := NewImportHandler(deps.Importer, deps.Import, log)
	imports := api.Group("/import", importLimiter(deps.Import.RateLimitPerMinute))
	imports.Post("/:kind", importHandler.ImportJSON)
	imports.Post("/:kind/xlsx", importHandler.ImportXLSX)
	imports.Post("/:kind/csv", importHandler.ImportCSV)

	// Registros individuales
	recordHandler := NewRecordHandler(deps.RecordsUC, log)
	api.Get("/contacts/:id", recordHandler.GetContact)
	api.Put("/contacts/:id", recordHandler.UpdateContact)
	api.Delete("/contacts/:id", recordHandler.DeleteContact)
	api.Get("/companies/:id", recordHandler.GetCompany)
	api.Put("/companies/:id", recordHandler.UpdateCompany)
	api.Delete("/companies/:id", recordHandler.DeleteCompany)

	// Listados
	listHandler := NewListHandler(deps.ListUC, log)
	api.Get("/:kind", listHandler.List)
}

func importLimiter(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return strconv.FormatInt(GetUserID(c), 10)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Code: "RATE_LIMITED", Message: "demasiadas importaciones, intenta en un minuto"})
		},
	})
}
