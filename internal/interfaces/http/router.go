package http

import (
	"github.com/gofiber/fiber/v2"

	appbreakdown "github.com/gestoapp/turno-core/internal/application/breakdown"
	"github.com/gestoapp/turno-core/internal/application/session"
	"github.com/gestoapp/turno-core/internal/infrastructure/api"
	"github.com/gestoapp/turno-core/internal/infrastructure/storage"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Sessions  *session.Manager
	Breakdown *appbreakdown.Usecase
	API       *api.Client
	Store     storage.Store
}

// Router registra las rutas de la API local.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Selección persistente de pantalla
	settings := api.Group("/settings")
	settingsHandler := NewSettingsHandler(deps.Store)
	settings.Get("/", settingsHandler.Get)
	settings.Patch("/", settingsHandler.Update)

	// Catálogos del colaborador remoto
	catalogHandler := NewCatalogHandler(deps.API, deps.Store)
	api.Get("/areas", catalogHandler.Areas)
	api.Get("/areas/:id/employees", catalogHandler.Employees)
	api.Get("/observation", catalogHandler.GetObservation)
	api.Post("/observation", catalogHandler.SaveObservation)

	// Pantallas de conteo, una por flujo
	sessions := api.Group("/sessions/:flow")
	sessionHandler := NewSessionHandler(deps.Sessions)
	sessions.Get("/", sessionHandler.Get)
	sessions.Post("/focus", sessionHandler.Focus)
	sessions.Post("/reload", sessionHandler.Reload)
	sessions.Get("/search", sessionHandler.Search)
	sessions.Put("/slot", sessionHandler.SetSlot)
	sessions.Put("/quantity", sessionHandler.SetQuantity)
	sessions.Put("/transfer-target", sessionHandler.TransferTarget)
	sessions.Post("/ledger", sessionHandler.SaveLedger)
	sessions.Post("/close", sessionHandler.RequestClose)
	sessions.Post("/close/confirm", sessionHandler.ConfirmClose)
	sessions.Post("/close/cancel", sessionHandler.CancelClose)

	// Desglose de caja
	breakdown := api.Group("/breakdown")
	breakdownHandler := NewBreakdownHandler(deps.Breakdown, deps.Sessions)
	breakdown.Get("/", breakdownHandler.Get)
	breakdown.Post("/focus", breakdownHandler.Focus)
	breakdown.Put("/value", breakdownHandler.SetValue)
	breakdown.Put("/tip", breakdownHandler.SetTip)
	breakdown.Put("/rate", breakdownHandler.SetRate)
}
