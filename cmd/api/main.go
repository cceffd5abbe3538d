package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/kafka"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/stock-ledger/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/telemetry"
)

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
		Str("store", cfg.Inventory.Store).
		Str("batch_mode", cfg.Inventory.BatchMode).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry, cfg.App.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error().Err(err).Msg("cerrar trazas")
		}
	}()

	var (
		txRunner   inventory.TxRunner
		itemRepo   repository.InventoryItemRepository
		ledgerRepo repository.StockAdjustmentRepository
	)
	switch cfg.Inventory.Store {
	case "memory":
		store := memory.New()
		txRunner, itemRepo, ledgerRepo = store.Runner(), store.Items(), store.Ledger()
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("crear esquema")
		}
		txRunner = postgres.NewTxRunner(pool)
		itemRepo = postgres.NewInventoryItemRepository(pool)
		ledgerRepo = postgres.NewStockAdjustmentRepository(pool)
	}

	// Candado de rollback: Redis si hay dirección (varias réplicas), si no en proceso.
	var guard inventory.RollbackGuard = memory.NewRollbackGuard()
	if cfg.Redis.Addr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		guard = infraredis.NewRollbackGuard(rdb, cfg.Inventory.RollbackLockTTL, log)
	}

	var publisher inventory.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer kp.Close()
		publisher = kp
	}

	engine := inventory.NewAdjustStockUseCase(txRunner, itemRepo, publisher, log)
	itemUC := inventory.NewItemUseCase(txRunner, itemRepo, engine, log)
	ordersUC := inventory.NewOrderDeductionUseCase(txRunner, itemRepo, ledgerRepo, engine, guard, inventory.OrderDeductionConfig{
		Mode:            inventory.ParseBatchMode(cfg.Inventory.BatchMode),
		RollbackEnabled: cfg.Inventory.RollbackEnabled,
	}, log)
	auditUC := inventory.NewAuditQueryUseCase(itemRepo, ledgerRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Items:   itemUC,
		Adjust:  engine,
		Orders:  ordersUC,
		Audit:   auditUC,
		Reorder: inventory.NewReplenishmentUseCase(itemRepo, ledgerRepo),
		Log:     log,
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
