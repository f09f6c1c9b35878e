package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/crm-api/internal/application/importer"
	"github.com/jhoicas/crm-api/internal/application/listing"
	"github.com/jhoicas/crm-api/internal/application/records"
	"github.com/jhoicas/crm-api/internal/domain/repository"
	"github.com/jhoicas/crm-api/internal/infrastructure/memstore"
	"github.com/jhoicas/crm-api/internal/infrastructure/metrics"
	"github.com/jhoicas/crm-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/crm-api/internal/interfaces/http"
	"github.com/jhoicas/crm-api/pkg/config"
	"github.com/jhoicas/crm-api/pkg/logger"
)

// storage agrupa los puertos que necesita la aplicación, sea PostgreSQL o memoria.
type storage struct {
	tx    repository.TxRunner
	audit repository.AuditRepository
	repos listing.Repositories
	close func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Msg("iniciando aplicación")

	st, err := openStorage(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer st.close()

	engine := importer.NewEngine(st.tx, st.audit, metrics.Import(), log.Component("importer"), importer.Config{
		DefaultBatchSize: cfg.Import.DefaultBatchSize,
		MaxBatchSize:     cfg.Import.MaxBatchSize,
	})
	listUC := listing.NewListUseCase(st.repos)
	recordsUC := records.NewRecordsUseCase(st.tx, st.audit, log.Component("records"))

	importTimeout := time.Duration(cfg.Import.TimeoutSeconds) * time.Second
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    (cfg.Import.MaxUploadMB + 1) << 20,
		ReadTimeout:  time.Second * 30,
		WriteTimeout: importTimeout + 10*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "CRM API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Importer:    engine,
		ListUC:      listUC,
		RecordsUC:   recordsUC,
		JWTSecret:   cfg.JWT.Secret,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Import: httpRouter.ImportOptions{
			RateLimitPerMinute: cfg.Import.RateLimitPerMinute,
			MaxUploadMB:        cfg.Import.MaxUploadMB,
			MaxRows:            cfg.Import.MaxRows,
			Timeout:            importTimeout,
		},
		Log: log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.App.Storage == "memory" {
		store := memstore.New()
		return &storage{
			tx:    store,
			audit: store,
			repos: listing.Repositories{
				Contacts:  store.Contacts(),
				Companies: store.Companies(),
				Deals:     store.Deals(),
				Tasks:     store.Tasks(),
			},
			close: func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &storage{
		tx:    postgres.NewTxRunner(pool),
		audit: postgres.NewAuditRepository(pool),
		repos: listing.Repositories{
			Contacts:  postgres.NewContactRepository(pool),
			Companies: postgres.NewCompanyRepository(pool),
			Deals:     postgres.NewDealRepository(pool),
			Tasks:     postgres.NewTaskRepository(pool),
		},
		close: pool.Close,
	}, nil
}
