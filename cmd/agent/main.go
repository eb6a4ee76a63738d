package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appbreakdown "github.com/gestoapp/turno-core/internal/application/breakdown"
	"github.com/gestoapp/turno-core/internal/application/session"
	"github.com/gestoapp/turno-core/internal/infrastructure/api"
	"github.com/gestoapp/turno-core/internal/infrastructure/storage"
	httpRouter "github.com/gestoapp/turno-core/internal/interfaces/http"
	"github.com/gestoapp/turno-core/pkg/config"
	"github.com/gestoapp/turno-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("server", cfg.Server.BaseURL).
		Msg("iniciando agente de turno")

	ctx := context.Background()

	var store storage.Store
	if cfg.Redis.Addr != "" {
		redisStore := storage.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisStore.Ping(ctx); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		defer redisStore.Close()
		store = redisStore
		log.Info().Str("addr", cfg.Redis.Addr).Msg("almacenamiento en Redis")
	} else {
		store = storage.NewMemoryStore()
		log.Warn().Msg("sin REDIS_ADDR: almacenamiento en memoria, se pierde al reiniciar")
	}

	apiClient := api.New(cfg.Server, log)
	sessions := session.NewManager(cfg, log, store, apiClient)
	defer sessions.StopAll()
	breakdownUC := appbreakdown.New(store, log)

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
		Sessions:  sessions,
		Breakdown: breakdownUC,
		API:       apiClient,
		Store:     store,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("agente detenido")
}
